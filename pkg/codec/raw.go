package codec

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"
	"sync/atomic"

	"github.com/pkg/errors"
)

// Layout of records written by RawCodec.
const (
	rawDataOnlyOffset = FixedHeaderLen
	rawDataExtOffset  = rawDataOnlyOffset + 8
	rawRateOffset     = rawDataExtOffset + 8
	rawDataOffset     = 64
	rawDataOffsetRate = 128
	maxRecordSamples  = math.MaxUint16
)

// RawCodec decodes record headers for any encoding and packs or unpacks
// the uncompressed encodings: ASCII, INT16, INT32, FLOAT32 and FLOAT64.
// Compressed encodings fail with ErrUnknownFormat when samples are
// requested.
type RawCodec struct {
	seq atomic.Int64
}

// NewRawCodec creates a codec whose sequence numbers start at 1.
func NewRawCodec() *RawCodec {
	return &RawCodec{}
}

// Decode parses the record in raw. Samples are decoded only when
// unpack is set.
func (c *RawCodec) Decode(raw []byte, unpack bool) (*Record, error) {
	h, order, err := DecodeFixedHeader(raw)
	if err != nil {
		return nil, errors.Wrap(ErrShortRecord, err.Error())
	}
	if !IsDataIndicator(h.Quality) {
		return nil, errors.Wrapf(ErrNotData, "quality indicator %q", h.Quality)
	}

	rec := &Record{
		Raw:         raw,
		Header:      h,
		HeaderOrder: order,
		Identity:    h.Identity(),
		Quality:     h.Quality,
		SampleRate:  NominalRate(h.RateFactor, h.RateMultiplier),
		SampleCount: int64(h.NumSamples),
		Length:      len(raw),
		ByteOrder:   OrderBig,
	}
	if order == binary.LittleEndian {
		rec.ByteOrder = OrderLittle
	}

	var (
		micro    int8
		dataOnly bool
	)
	WalkBlockettes(raw, order, h.BlocketteOffset, func(b Blockette) bool {
		switch b.Type {
		case BlocketteRate:
			if rate, ok := b.Rate(order); ok {
				rec.SampleRate = float64(rate)
			}
		case BlocketteDataOnly:
			if d, ok := b.DataOnly(); ok {
				dataOnly = true
				rec.Encoding = d.Encoding
				rec.ByteOrder = d.ByteOrder
				rec.DeclaredLength = d.RecordLength()
			}
		case BlocketteDataExt:
			if d, ok := b.DataExt(); ok {
				micro = d.Microseconds
			}
		}
		return true
	})

	rec.StartTime = h.StartTime.Time()
	if h.ActivityFlags&activityTimeCorrected == 0 {
		rec.StartTime += Time(h.TimeCorrection) * 100
	}
	rec.StartTime += Time(micro)

	if !unpack || rec.SampleCount == 0 {
		return rec, nil
	}
	if !dataOnly {
		return nil, errors.Wrap(ErrUnknownFormat, "no 1000 blockette")
	}

	samples, err := unpackSamples(raw, int(h.DataOffset), rec.Encoding, rec.ByteOrder.Binary(), int(rec.SampleCount))
	if err != nil {
		return nil, errors.Wrapf(err, "unpacking %s", rec.SourceName())
	}
	rec.Samples = samples
	return rec, nil
}

func unpackSamples(raw []byte, offset int, enc Encoding, order binary.ByteOrder, n int) (Samples, error) {
	size := encodedSize(enc)
	if size == 0 {
		return Samples{}, errors.Wrapf(ErrUnknownFormat, "encoding %s", enc)
	}
	if offset < FixedHeaderLen || offset+n*size > len(raw) {
		return Samples{}, errors.Wrapf(ErrShortRecord, "%d samples of %s at offset %d in %d bytes",
			n, enc, offset, len(raw))
	}

	data := raw[offset : offset+n*size]
	switch enc {
	case EncodingASCII:
		return TextSamples(append([]byte(nil), data...)), nil
	case EncodingInt16:
		v := make([]int32, n)
		for i := range v {
			v[i] = int32(int16(order.Uint16(data[i*2:])))
		}
		return IntSamples(v), nil
	case EncodingInt32:
		v := make([]int32, n)
		for i := range v {
			v[i] = int32(order.Uint32(data[i*4:]))
		}
		return IntSamples(v), nil
	case EncodingFloat32:
		v := make([]float32, n)
		for i := range v {
			v[i] = math.Float32frombits(order.Uint32(data[i*4:]))
		}
		return FloatSamples(v), nil
	default:
		v := make([]float64, n)
		for i := range v {
			v[i] = math.Float64frombits(order.Uint64(data[i*8:]))
		}
		return DoubleSamples(v), nil
	}
}

// encodedSize returns the packed sample size of the uncompressed
// encodings, 0 for anything else.
func encodedSize(enc Encoding) int {
	switch enc {
	case EncodingASCII:
		return 1
	case EncodingInt16:
		return 2
	case EncodingInt32, EncodingFloat32:
		return 4
	case EncodingFloat64:
		return 8
	}
	return 0
}

// Encode packs as many full records as the samples allow, or all of them
// when req.Flush is set.
func (c *RawCodec) Encode(req EncodeRequest) (*EncodeResult, error) {
	n := req.RecordLength
	if n < MinRecordLen || n > MaxRecordLen || n&(n-1) != 0 {
		return nil, errors.Wrapf(ErrRecordLength, "%d", n)
	}
	size := encodedSize(req.Encoding)
	if size == 0 {
		return nil, errors.Wrapf(ErrUnknownFormat, "cannot pack %s", req.Encoding)
	}
	if want := req.Encoding.SampleType(); req.Samples.Type() != want {
		return nil, errors.Wrapf(ErrSampleTypeMismatch, "%s needs %s samples, got %s",
			req.Encoding, want, req.Samples.Type())
	}
	if req.Encoding == EncodingInt16 {
		for i, v := range req.Samples.Ints() {
			if v < math.MinInt16 || v > math.MaxInt16 {
				return nil, errors.Wrapf(ErrSampleRange, "sample %d is %d, INT16 holds %d..%d",
					i, v, math.MinInt16, math.MaxInt16)
			}
		}
	}

	factor, multiplier, exact := RateFactorMultiplier(req.SampleRate)
	dataOffset := rawDataOffset
	if !exact {
		dataOffset = rawDataOffsetRate
	}
	capacity := min((n-dataOffset)/size, maxRecordSamples)

	res := &EncodeResult{}
	total := req.Samples.Len()
	for remaining := total; remaining >= capacity || (req.Flush && remaining > 0); remaining = total - res.Consumed {
		count := min(capacity, remaining)
		start := req.Start + SampleOffset(int64(res.Consumed), req.SampleRate)
		chunk := req.Samples.Slice(res.Consumed, res.Consumed+count)

		res.Records = append(res.Records, c.packRecord(req, chunk, start, factor, multiplier, exact, dataOffset))
		res.Consumed += count
	}
	res.NextStart = req.Start + SampleOffset(int64(res.Consumed), req.SampleRate)
	return res, nil
}

func (c *RawCodec) packRecord(req EncodeRequest, chunk Samples, start Time,
	factor, multiplier int16, exact bool, dataOffset int) []byte {
	buf := make([]byte, req.RecordLength)
	order := req.ByteOrder.Binary()

	bt, micro := start.BTime()
	h := FixedHeader{
		SequenceNumber:  fmt.Sprintf("%06d", c.seq.Add(1)%1000000),
		Quality:         'D',
		StartTime:       bt,
		NumSamples:      uint16(chunk.Len()),
		RateFactor:      factor,
		RateMultiplier:  multiplier,
		NumBlockettes:   2,
		DataOffset:      uint16(dataOffset),
		BlocketteOffset: rawDataOnlyOffset,
		ActivityFlags:   activityTimeCorrected,
	}
	if t := req.Template; t != nil {
		h.Network, h.Station = t.Identity.Network, t.Identity.Station
		h.Location, h.Channel = t.Identity.Location, t.Identity.Channel
		if IsDataIndicator(t.Quality) {
			h.Quality = t.Quality
		}
	}

	extNext := uint16(0)
	if !exact {
		h.NumBlockettes = 3
		extNext = rawRateOffset
	}
	// Header construction cannot fail on a buffer of at least MinRecordLen.
	_ = h.Encode(buf, order)

	exp := uint8(bits.TrailingZeros(uint(req.RecordLength)))
	putBlockette(buf, order, rawDataOnlyOffset, BlocketteDataOnly, rawDataExtOffset,
		[]byte{byte(req.Encoding), byte(req.ByteOrder), exp, 0})
	putBlockette(buf, order, rawDataExtOffset, BlocketteDataExt, extNext,
		[]byte{0, byte(micro), 0, 0})
	if !exact {
		rate := make([]byte, 8)
		order.PutUint32(rate, math.Float32bits(float32(req.SampleRate)))
		putBlockette(buf, order, rawRateOffset, BlocketteRate, 0, rate)
	}

	data := buf[dataOffset:]
	switch req.Encoding {
	case EncodingASCII:
		copy(data, chunk.Text())
	case EncodingInt16:
		for i, v := range chunk.Ints() {
			order.PutUint16(data[i*2:], uint16(int16(v)))
		}
	case EncodingInt32:
		for i, v := range chunk.Ints() {
			order.PutUint32(data[i*4:], uint32(v))
		}
	case EncodingFloat32:
		for i, v := range chunk.Floats() {
			order.PutUint32(data[i*4:], math.Float32bits(v))
		}
	case EncodingFloat64:
		for i, v := range chunk.Doubles() {
			order.PutUint64(data[i*8:], math.Float64bits(v))
		}
	}
	return buf
}
