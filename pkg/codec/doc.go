// Package codec provides the data record format used by the reader and
// trace packages.
//
// A record starts with a 48 byte fixed header followed by a chain of
// blockettes and a data section:
//
//	[fixed header(48)][blockette chain][padding][data]
//
// Header fields are read and written one at a time at fixed offsets.
// The header byte order is not stored anywhere; it is inferred from the
// start year, which must fall between 1900 and 2050 when read in the
// correct order.
//
// # Blockettes
//
// Each blockette starts with a 2 byte type and a 2 byte offset of the
// next blockette, 0 ending the chain. Three types are understood:
//   - 100: float32 sample rate, overriding the header factor/multiplier
//   - 1000: encoding, data byte order and record length exponent
//   - 1001: timing quality and a microsecond start time offset
//
// # Record Length
//
// FindRecordLength determines the length of a record from the start of
// its bytes, preferring the 1000 blockette and otherwise looking ahead
// in the stream for the next header.
//
// # Usage
//
//	c := codec.NewRawCodec()
//
//	res, err := c.Encode(codec.EncodeRequest{
//	    Template:     &codec.Template{Identity: id, Quality: 'D'},
//	    Samples:      codec.IntSamples(values),
//	    Start:        start,
//	    SampleRate:   40,
//	    RecordLength: 512,
//	    Encoding:     codec.EncodingInt32,
//	    ByteOrder:    codec.OrderBig,
//	    Flush:        true,
//	})
//	if err != nil {
//	    return err
//	}
//
//	rec, err := c.Decode(res.Records[0], true)
//
// # Thread Safety
//
// RawCodec instances are safe for concurrent use; the only shared state
// is the sequence number counter. Samples buffers are not synchronized.
package codec
