package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

// Identity names the channel a record or trace belongs to.
type Identity struct {
	Network  string
	Station  string
	Location string
	Channel  string
}

// String returns the source name NET_STA_LOC_CHAN.
func (id Identity) String() string {
	return fmt.Sprintf("%s_%s_%s_%s", id.Network, id.Station, id.Location, id.Channel)
}

// Encoding is the data encoding id carried by the 1000 blockette.
type Encoding uint8

const (
	EncodingASCII   Encoding = 0
	EncodingInt16   Encoding = 1
	EncodingInt24   Encoding = 2
	EncodingInt32   Encoding = 3
	EncodingFloat32 Encoding = 4
	EncodingFloat64 Encoding = 5
	EncodingSteim1  Encoding = 10
	EncodingSteim2  Encoding = 11
)

var encodingNames = map[Encoding]string{
	EncodingASCII:   "ASCII",
	EncodingInt16:   "INT16",
	EncodingInt24:   "INT24",
	EncodingInt32:   "INT32",
	EncodingFloat32: "FLOAT32",
	EncodingFloat64: "FLOAT64",
	EncodingSteim1:  "STEIM1",
	EncodingSteim2:  "STEIM2",
}

func (e Encoding) String() string {
	if name, ok := encodingNames[e]; ok {
		return name
	}
	return fmt.Sprintf("encoding(%d)", uint8(e))
}

// ParseEncoding maps a name such as "INT32" or a numeric id to an
// Encoding.
func ParseEncoding(s string) (Encoding, error) {
	for e, name := range encodingNames {
		if name == s {
			return e, nil
		}
	}
	var id uint8
	if _, err := fmt.Sscanf(s, "%d", &id); err == nil {
		return Encoding(id), nil
	}
	return 0, errors.Errorf("unknown encoding %q", s)
}

// SampleType returns the type of samples the encoding decodes to.
func (e Encoding) SampleType() SampleType {
	switch e {
	case EncodingASCII:
		return SampleText
	case EncodingInt16, EncodingInt24, EncodingInt32, EncodingSteim1, EncodingSteim2:
		return SampleInt
	case EncodingFloat32:
		return SampleFloat
	case EncodingFloat64:
		return SampleDouble
	}
	return SampleNone
}

// Order is the byte order id carried by the 1000 blockette.
type Order uint8

const (
	OrderLittle Order = 0
	OrderBig    Order = 1
)

// Binary returns the encoding/binary byte order for o.
func (o Order) Binary() binary.ByteOrder {
	if o == OrderLittle {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

func (o Order) String() string {
	if o == OrderLittle {
		return "little"
	}
	return "big"
}

var (
	// ErrShortRecord is returned when a buffer is too short for the
	// structures its header declares.
	ErrShortRecord = errors.New("record too short")
	// ErrNotData is returned when decoding a record whose quality
	// indicator does not mark a data record.
	ErrNotData = errors.New("not a data record")
	// ErrUnknownFormat is returned for encodings the codec cannot
	// unpack or pack.
	ErrUnknownFormat = errors.New("unknown data format")
	// ErrRecordLength is returned when asked to pack records of an
	// illegal length.
	ErrRecordLength = errors.New("invalid record length")
	// ErrSampleRange is returned when a sample does not fit the
	// requested encoding.
	ErrSampleRange = errors.New("sample out of range for encoding")
)

// Record is a decoded data record.
type Record struct {
	Raw         []byte
	Header      FixedHeader
	HeaderOrder binary.ByteOrder

	Identity    Identity
	Quality     byte
	StartTime   Time
	SampleRate  float64
	SampleCount int64
	Encoding    Encoding
	ByteOrder   Order
	// DeclaredLength is the length from the 1000 blockette, 0 if absent.
	DeclaredLength int
	// Length is the number of bytes the record occupied in the stream.
	Length int

	// Samples is empty unless the record was unpacked.
	Samples Samples
}

// EndTime returns the time of the last sample.
func (r *Record) EndTime() Time {
	if r.SampleRate <= 0 || r.SampleCount <= 0 {
		return r.StartTime
	}
	return r.StartTime + SampleOffset(r.SampleCount-1, r.SampleRate)
}

// SourceName returns the record's NET_STA_LOC_CHAN.
func (r *Record) SourceName() string {
	return r.Identity.String()
}

// Template carries the header values copied into packed records.
type Template struct {
	Identity Identity
	Quality  byte
}

// TemplateOf returns a packing template matching rec.
func TemplateOf(rec *Record) *Template {
	return &Template{Identity: rec.Identity, Quality: rec.Quality}
}

// EncodeRequest describes samples to be packed into records.
type EncodeRequest struct {
	Template     *Template
	Samples      Samples
	Start        Time
	SampleRate   float64
	RecordLength int
	Encoding     Encoding
	ByteOrder    Order
	// Flush packs all samples, leaving the last record under-full.
	Flush bool
}

// EncodeResult reports the records produced by an encode.
type EncodeResult struct {
	Records [][]byte
	// Consumed is the number of leading samples packed.
	Consumed int
	// NextStart is the time of the first sample not packed.
	NextStart Time
}

// Decoder turns raw record bytes into a Record.
type Decoder interface {
	Decode(raw []byte, unpack bool) (*Record, error)
}

// Encoder packs samples into raw records.
type Encoder interface {
	Encode(req EncodeRequest) (*EncodeResult, error)
}

// Codec decodes and encodes records.
type Codec interface {
	Decoder
	Encoder
}
