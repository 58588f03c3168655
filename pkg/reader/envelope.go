package reader

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// envelopeIDLen is the identifier block that precedes the first envelope
// header in a stream.
const envelopeIDLen = 10

// Dialect describes a container format that wraps groups of records in
// envelopes:
//
//	[id(10)][header][data ...][checksum][header][data ...][checksum]...
//
// The header ends with a right-justified ASCII size of the data that
// follows it.
type Dialect struct {
	Tag         string
	HeaderLen   int
	SizeLen     int
	ChecksumLen int
}

var dialects = []Dialect{
	{Tag: "PED", HeaderLen: 8, SizeLen: 8, ChecksumLen: 8},
	{Tag: "PSD", HeaderLen: 11, SizeLen: 8, ChecksumLen: 8},
	{Tag: "PLC", HeaderLen: 13, SizeLen: 8, ChecksumLen: 8},
	{Tag: "PQI", HeaderLen: 15, SizeLen: 8, ChecksumLen: 8},
	{Tag: "PLS", HeaderLen: 22, SizeLen: 15, ChecksumLen: 10},
}

// Dialects returns the known envelope dialects.
func Dialects() []Dialect {
	return append([]Dialect(nil), dialects...)
}

// SniffDialect selects the dialect whose tag starts buf.
func SniffDialect(buf []byte) (Dialect, bool) {
	for _, d := range dialects {
		if strings.HasPrefix(string(buf), d.Tag) {
			return d, true
		}
	}
	return Dialect{}, false
}

// ParseSize reads the data size from an envelope header.
func (d Dialect) ParseSize(hdr []byte) (int, error) {
	if len(hdr) < d.HeaderLen {
		return 0, errors.Errorf("%s envelope header is %d bytes, want %d", d.Tag, len(hdr), d.HeaderLen)
	}
	field := strings.Trim(string(hdr[d.HeaderLen-d.SizeLen:d.HeaderLen]), " \x00")
	size, err := strconv.Atoi(field)
	if err != nil || size < 0 {
		return 0, errors.Errorf("%s envelope size field %q is not a size", d.Tag, field)
	}
	return size, nil
}

// NextOffset returns the stream offset of the envelope following one
// whose header ends at cur and declares size data bytes. The checksum
// that precedes the next header is skipped when that header is read.
func (d Dialect) NextOffset(cur int64, size int) int64 {
	return cur + int64(size)
}
