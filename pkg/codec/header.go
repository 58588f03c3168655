package codec

import (
	"encoding/binary"
	"strings"

	"github.com/pkg/errors"
)

const (
	// FixedHeaderLen is the size of the fixed section of a record header.
	FixedHeaderLen = 48
	// MinRecordLen is the smallest legal record, 2^8 bytes.
	MinRecordLen = 256
	// MaxRecordLen is the largest legal record, 2^20 bytes.
	MaxRecordLen = 1048576
)

// Fixed header field offsets.
const (
	offSequence        = 0
	offQuality         = 6
	offReserved        = 7
	offStation         = 8
	offLocation        = 13
	offChannel         = 15
	offNetwork         = 18
	offYear            = 20
	offDay             = 22
	offHour            = 24
	offMinute          = 25
	offSecond          = 26
	offUnused          = 27
	offFract           = 28
	offNumSamples      = 30
	offRateFactor      = 32
	offRateMultiplier  = 34
	offActivityFlags   = 36
	offIOFlags         = 37
	offQualityFlags    = 38
	offNumBlockettes   = 39
	offTimeCorrection  = 40
	offDataOffset      = 44
	offBlocketteOffset = 46
)

// Plausible year range used to infer header byte order.
const (
	minPlausibleYear = 1900
	maxPlausibleYear = 2050
)

// activityTimeCorrected is set in the activity flags when the time
// correction has already been applied to the start time.
const activityTimeCorrected = 0x02

// FixedHeader is the decoded fixed section of a record header.
type FixedHeader struct {
	SequenceNumber  string
	Quality         byte
	Reserved        byte
	Station         string
	Location        string
	Channel         string
	Network         string
	StartTime       BTime
	NumSamples      uint16
	RateFactor      int16
	RateMultiplier  int16
	ActivityFlags   uint8
	IOFlags         uint8
	QualityFlags    uint8
	NumBlockettes   uint8
	TimeCorrection  int32 // 0.0001 seconds
	DataOffset      uint16
	BlocketteOffset uint16
}

// ErrShortHeader is returned when a buffer cannot hold a fixed header.
var ErrShortHeader = errors.New("buffer too short for fixed header")

// HeaderByteOrder infers the byte order of the header in buf from the
// start time year. Headers are big-endian unless that yields an
// implausible year.
func HeaderByteOrder(buf []byte) binary.ByteOrder {
	year := binary.BigEndian.Uint16(buf[offYear:])
	if year < minPlausibleYear || year > maxPlausibleYear {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// DecodeFixedHeader decodes the fixed header at the start of buf and
// returns it along with the byte order it was stored in.
func DecodeFixedHeader(buf []byte) (FixedHeader, binary.ByteOrder, error) {
	if len(buf) < FixedHeaderLen {
		return FixedHeader{}, nil, errors.Wrapf(ErrShortHeader, "%d bytes", len(buf))
	}

	order := HeaderByteOrder(buf)
	h := FixedHeader{
		SequenceNumber: string(buf[offSequence:offQuality]),
		Quality:        buf[offQuality],
		Reserved:       buf[offReserved],
		Station:        cleanField(buf[offStation:offLocation]),
		Location:       cleanField(buf[offLocation:offChannel]),
		Channel:        cleanField(buf[offChannel:offNetwork]),
		Network:        cleanField(buf[offNetwork:offYear]),
		StartTime: BTime{
			Year:   order.Uint16(buf[offYear:]),
			Day:    order.Uint16(buf[offDay:]),
			Hour:   buf[offHour],
			Minute: buf[offMinute],
			Second: buf[offSecond],
			Unused: buf[offUnused],
			Fract:  order.Uint16(buf[offFract:]),
		},
		NumSamples:      order.Uint16(buf[offNumSamples:]),
		RateFactor:      int16(order.Uint16(buf[offRateFactor:])),
		RateMultiplier:  int16(order.Uint16(buf[offRateMultiplier:])),
		ActivityFlags:   buf[offActivityFlags],
		IOFlags:         buf[offIOFlags],
		QualityFlags:    buf[offQualityFlags],
		NumBlockettes:   buf[offNumBlockettes],
		TimeCorrection:  int32(order.Uint32(buf[offTimeCorrection:])),
		DataOffset:      order.Uint16(buf[offDataOffset:]),
		BlocketteOffset: order.Uint16(buf[offBlocketteOffset:]),
	}
	return h, order, nil
}

// Encode writes the header into the first FixedHeaderLen bytes of buf.
func (h *FixedHeader) Encode(buf []byte, order binary.ByteOrder) error {
	if len(buf) < FixedHeaderLen {
		return errors.Wrapf(ErrShortHeader, "%d bytes", len(buf))
	}

	putField(buf[offSequence:offQuality], h.SequenceNumber, '0')
	buf[offQuality] = h.Quality
	buf[offReserved] = h.Reserved
	if buf[offReserved] == 0 {
		buf[offReserved] = ' '
	}
	putField(buf[offStation:offLocation], h.Station, ' ')
	putField(buf[offLocation:offChannel], h.Location, ' ')
	putField(buf[offChannel:offNetwork], h.Channel, ' ')
	putField(buf[offNetwork:offYear], h.Network, ' ')

	order.PutUint16(buf[offYear:], h.StartTime.Year)
	order.PutUint16(buf[offDay:], h.StartTime.Day)
	buf[offHour] = h.StartTime.Hour
	buf[offMinute] = h.StartTime.Minute
	buf[offSecond] = h.StartTime.Second
	buf[offUnused] = h.StartTime.Unused
	order.PutUint16(buf[offFract:], h.StartTime.Fract)

	order.PutUint16(buf[offNumSamples:], h.NumSamples)
	order.PutUint16(buf[offRateFactor:], uint16(h.RateFactor))
	order.PutUint16(buf[offRateMultiplier:], uint16(h.RateMultiplier))
	buf[offActivityFlags] = h.ActivityFlags
	buf[offIOFlags] = h.IOFlags
	buf[offQualityFlags] = h.QualityFlags
	buf[offNumBlockettes] = h.NumBlockettes
	order.PutUint32(buf[offTimeCorrection:], uint32(h.TimeCorrection))
	order.PutUint16(buf[offDataOffset:], h.DataOffset)
	order.PutUint16(buf[offBlocketteOffset:], h.BlocketteOffset)
	return nil
}

// Identity returns the channel identity carried by the header.
func (h *FixedHeader) Identity() Identity {
	return Identity{
		Network:  h.Network,
		Station:  h.Station,
		Location: h.Location,
		Channel:  h.Channel,
	}
}

// IsDataIndicator reports whether c is a data record quality indicator.
func IsDataIndicator(c byte) bool {
	return c == 'D' || c == 'R' || c == 'Q' || c == 'M'
}

// IsValidHeader checks the fields of a fixed header that have a known,
// limited set of values. buf must hold at least FixedHeaderLen bytes.
func IsValidHeader(buf []byte) bool {
	if len(buf) < FixedHeaderLen {
		return false
	}
	for _, c := range buf[offSequence:offQuality] {
		if !isDigit(c) && c != ' ' && c != 0 {
			return false
		}
	}
	return IsDataIndicator(buf[offQuality]) &&
		(buf[offReserved] == ' ' || buf[offReserved] == 0) &&
		buf[offHour] <= 23 &&
		buf[offMinute] <= 59 &&
		buf[offSecond] <= 60
}

// IsValidBlank reports whether buf starts with a blank or noise record:
// a sequence number followed by spaces through the end of the fixed
// header.
func IsValidBlank(buf []byte) bool {
	if len(buf) < FixedHeaderLen {
		return false
	}
	for _, c := range buf[offSequence:offQuality] {
		if !isDigit(c) && c != 0 {
			return false
		}
	}
	for _, c := range buf[offQuality:FixedHeaderLen] {
		if c != ' ' {
			return false
		}
	}
	return true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func cleanField(b []byte) string {
	return strings.Trim(string(b), " \x00")
}

func putField(dst []byte, s string, pad byte) {
	n := copy(dst, s)
	if pad == '0' {
		// Right justify numeric fields.
		if n < len(dst) {
			copy(dst[len(dst)-n:], s)
			for i := 0; i < len(dst)-n; i++ {
				dst[i] = '0'
			}
		}
		return
	}
	for i := n; i < len(dst); i++ {
		dst[i] = pad
	}
}
