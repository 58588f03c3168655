package codec

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testIdentity = Identity{Network: "IU", Station: "ANMO", Location: "00", Channel: "BHZ"}

var testStart = TimeFromStd(time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC))

func ramp(n int) []int32 {
	v := make([]int32, n)
	for i := range v {
		v[i] = int32(i*7 - 300)
	}
	return v
}

// encodeOne packs a single INT32 sample into a record of the given length.
func encodeOne(t testing.TB, length int, order Order) []byte {
	t.Helper()

	res, err := NewRawCodec().Encode(EncodeRequest{
		Template:     &Template{Identity: testIdentity, Quality: 'D'},
		Samples:      IntSamples([]int32{42}),
		Start:        testStart,
		SampleRate:   20,
		RecordLength: length,
		Encoding:     EncodingInt32,
		ByteOrder:    order,
		Flush:        true,
	})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	return res.Records[0]
}

func TestRawCodec_EncodeFullRecords(t *testing.T) {
	c := NewRawCodec()
	values := ramp(1000)

	req := EncodeRequest{
		Template:     &Template{Identity: testIdentity, Quality: 'Q'},
		Samples:      IntSamples(values),
		Start:        testStart,
		SampleRate:   40,
		RecordLength: 512,
		Encoding:     EncodingInt32,
		ByteOrder:    OrderBig,
	}

	// (512-64)/4 = 112 samples per record.
	res, err := c.Encode(req)
	require.NoError(t, err)
	assert.Len(t, res.Records, 8)
	assert.Equal(t, 896, res.Consumed)
	assert.Equal(t, testStart+22400000, res.NextStart)

	req.Flush = true
	res, err = c.Encode(req)
	require.NoError(t, err)
	assert.Len(t, res.Records, 9)
	assert.Equal(t, 1000, res.Consumed)
	assert.Equal(t, testStart+25000000, res.NextStart)

	for i, raw := range res.Records {
		assert.Len(t, raw, 512)

		rec, err := c.Decode(raw, true)
		require.NoError(t, err)
		assert.Equal(t, testIdentity, rec.Identity)
		assert.Equal(t, byte('Q'), rec.Quality)
		assert.Equal(t, 40.0, rec.SampleRate)
		assert.Equal(t, EncodingInt32, rec.Encoding)
		assert.Equal(t, 512, rec.DeclaredLength)
		assert.Equal(t, testStart+Time(i)*2800000, rec.StartTime)

		lo := i * 112
		hi := min(lo+112, len(values))
		assert.Equal(t, int64(hi-lo), rec.SampleCount)
		assert.Equal(t, values[lo:hi], rec.Samples.Ints())
	}
}

func TestRawCodec_RoundTripEncodings(t *testing.T) {
	tests := []struct {
		name    string
		enc     Encoding
		samples Samples
	}{
		{name: "ascii", enc: EncodingASCII, samples: TextSamples([]byte("station log message"))},
		{name: "int16", enc: EncodingInt16, samples: IntSamples([]int32{-32768, -1, 0, 1, 32767})},
		{name: "int32", enc: EncodingInt32, samples: IntSamples([]int32{math.MinInt32, 0, math.MaxInt32})},
		{name: "float32", enc: EncodingFloat32, samples: FloatSamples([]float32{-1.5, 0, 3.25})},
		{name: "float64", enc: EncodingFloat64, samples: DoubleSamples([]float64{math.Pi, -math.E, 1e-300})},
	}

	for _, tt := range tests {
		for _, order := range []Order{OrderBig, OrderLittle} {
			t.Run(tt.name+"/"+order.String(), func(t *testing.T) {
				c := NewRawCodec()
				res, err := c.Encode(EncodeRequest{
					Template:     &Template{Identity: testIdentity},
					Samples:      tt.samples,
					Start:        testStart,
					SampleRate:   1,
					RecordLength: 256,
					Encoding:     tt.enc,
					ByteOrder:    order,
					Flush:        true,
				})
				require.NoError(t, err)
				require.Len(t, res.Records, 1)

				rec, err := c.Decode(res.Records[0], true)
				require.NoError(t, err)
				assert.Equal(t, order, rec.ByteOrder)
				assert.Equal(t, order.Binary(), rec.HeaderOrder)
				assert.Equal(t, byte('D'), rec.Quality)
				assert.Equal(t, tt.samples, rec.Samples)
			})
		}
	}
}

func TestRawCodec_MicrosecondStart(t *testing.T) {
	c := NewRawCodec()
	start := testStart + 123456

	res, err := c.Encode(EncodeRequest{
		Samples:      IntSamples(ramp(10)),
		Start:        start,
		SampleRate:   100,
		RecordLength: 256,
		Encoding:     EncodingInt32,
		Flush:        true,
	})
	require.NoError(t, err)

	rec, err := c.Decode(res.Records[0], false)
	require.NoError(t, err)
	assert.Equal(t, uint16(1234), rec.Header.StartTime.Fract)
	assert.Equal(t, start, rec.StartTime)
	assert.Equal(t, start+90000, rec.EndTime())
	assert.Equal(t, 0, rec.Samples.Len())
}

func TestRawCodec_InexactRate(t *testing.T) {
	c := NewRawCodec()

	res, err := c.Encode(EncodeRequest{
		Samples:      IntSamples(ramp(5)),
		Start:        testStart,
		SampleRate:   math.Pi,
		RecordLength: 256,
		Encoding:     EncodingInt32,
		Flush:        true,
	})
	require.NoError(t, err)

	rec, err := c.Decode(res.Records[0], true)
	require.NoError(t, err)
	assert.Equal(t, uint16(rawDataOffsetRate), rec.Header.DataOffset)
	assert.Equal(t, uint8(3), rec.Header.NumBlockettes)
	assert.InDelta(t, math.Pi, rec.SampleRate, 1e-6)
	assert.Equal(t, ramp(5), rec.Samples.Ints())
}

func TestRawCodec_TimeCorrection(t *testing.T) {
	c := NewRawCodec()
	raw := encodeOne(t, 256, OrderBig)

	raw[offActivityFlags] = 0
	binary.BigEndian.PutUint32(raw[offTimeCorrection:], 10000)

	rec, err := c.Decode(raw, false)
	require.NoError(t, err)
	assert.Equal(t, testStart+HPTModulus, rec.StartTime)

	raw[offActivityFlags] = activityTimeCorrected
	rec, err = c.Decode(raw, false)
	require.NoError(t, err)
	assert.Equal(t, testStart, rec.StartTime)
}

func TestRawCodec_SequenceNumbers(t *testing.T) {
	c := NewRawCodec()
	req := EncodeRequest{
		Samples:      IntSamples(ramp(60)),
		Start:        testStart,
		SampleRate:   1,
		RecordLength: 256,
		Encoding:     EncodingInt32,
		Flush:        true,
	}

	res, err := c.Encode(req)
	require.NoError(t, err)
	require.Len(t, res.Records, 2)

	assert.Equal(t, "000001", string(res.Records[0][:6]))
	assert.Equal(t, "000002", string(res.Records[1][:6]))
}

func TestRawCodec_Errors(t *testing.T) {
	c := NewRawCodec()
	base := EncodeRequest{
		Samples:      IntSamples(ramp(10)),
		Start:        testStart,
		SampleRate:   1,
		RecordLength: 512,
		Encoding:     EncodingInt32,
		Flush:        true,
	}

	t.Run("record length not a power of two", func(t *testing.T) {
		req := base
		req.RecordLength = 300
		_, err := c.Encode(req)
		assert.ErrorIs(t, err, ErrRecordLength)
	})

	t.Run("record length too small", func(t *testing.T) {
		req := base
		req.RecordLength = 128
		_, err := c.Encode(req)
		assert.ErrorIs(t, err, ErrRecordLength)
	})

	t.Run("compressed encoding", func(t *testing.T) {
		req := base
		req.Encoding = EncodingSteim2
		_, err := c.Encode(req)
		assert.ErrorIs(t, err, ErrUnknownFormat)
	})

	t.Run("sample type mismatch", func(t *testing.T) {
		req := base
		req.Samples = FloatSamples([]float32{1, 2})
		_, err := c.Encode(req)
		assert.ErrorIs(t, err, ErrSampleTypeMismatch)
	})

	t.Run("sample out of INT16 range", func(t *testing.T) {
		req := base
		req.Encoding = EncodingInt16
		req.Samples = IntSamples([]int32{0, 32767, -32768, 40000})
		_, err := c.Encode(req)
		assert.ErrorIs(t, err, ErrSampleRange)

		req.Samples = IntSamples([]int32{0, 32767, -32768})
		res, err := c.Encode(req)
		require.NoError(t, err)
		assert.Len(t, res.Records, 1)
	})

	t.Run("short buffer", func(t *testing.T) {
		_, err := c.Decode(make([]byte, 20), false)
		assert.ErrorIs(t, err, ErrShortRecord)
	})

	t.Run("not a data record", func(t *testing.T) {
		raw := encodeOne(t, 256, OrderBig)
		raw[offQuality] = 'V'
		_, err := c.Decode(raw, false)
		assert.ErrorIs(t, err, ErrNotData)
	})

	t.Run("unpack compressed", func(t *testing.T) {
		raw := encodeOne(t, 256, OrderBig)
		raw[rawDataOnlyOffset+blocketteHeaderLen] = byte(EncodingSteim1)

		rec, err := c.Decode(raw, false)
		require.NoError(t, err)
		assert.Equal(t, EncodingSteim1, rec.Encoding)

		_, err = c.Decode(raw, true)
		assert.ErrorIs(t, err, ErrUnknownFormat)
	})

	t.Run("sample count past record end", func(t *testing.T) {
		raw := encodeOne(t, 256, OrderBig)
		binary.BigEndian.PutUint16(raw[offNumSamples:], 1000)
		_, err := c.Decode(raw, true)
		assert.ErrorIs(t, err, ErrShortRecord)
	})
}

func TestRateFactorMultiplier(t *testing.T) {
	tests := []struct {
		rate       float64
		factor     int16
		multiplier int16
	}{
		{rate: 100, factor: 100, multiplier: 1},
		{rate: 0.1, factor: -10, multiplier: 1},
		{rate: 0.5, factor: -2, multiplier: 1},
		{rate: 2.5, factor: 5, multiplier: -2},
		{rate: 0, factor: 0, multiplier: 0},
	}

	for _, tt := range tests {
		factor, multiplier, exact := RateFactorMultiplier(tt.rate)
		assert.Equal(t, tt.factor, factor, "rate %g", tt.rate)
		assert.Equal(t, tt.multiplier, multiplier, "rate %g", tt.rate)
		assert.True(t, exact, "rate %g", tt.rate)
		assert.Equal(t, tt.rate, NominalRate(factor, multiplier), "rate %g", tt.rate)
	}

	factor, multiplier, exact := RateFactorMultiplier(math.Pi)
	assert.False(t, exact)
	assert.InDelta(t, math.Pi, NominalRate(factor, multiplier), 1e-6)
}

func TestNominalRate(t *testing.T) {
	assert.Equal(t, 20.0, NominalRate(20, 1))
	assert.Equal(t, 40.0, NominalRate(20, 2))
	assert.Equal(t, 10.0, NominalRate(20, -2))
	assert.Equal(t, 0.1, NominalRate(-10, 1))
	assert.Equal(t, 0.05, NominalRate(-10, -2))
	assert.Equal(t, 0.0, NominalRate(0, 1))
}

func TestRateTolerable(t *testing.T) {
	assert.True(t, RateTolerable(100, 100))
	assert.True(t, RateTolerable(100, 100.005))
	assert.False(t, RateTolerable(100, 100.02))
	assert.True(t, RateTolerable(0, 0))
	assert.False(t, RateTolerable(0, 1))
	assert.False(t, RateTolerable(1, 0))
}
