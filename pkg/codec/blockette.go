package codec

import (
	"encoding/binary"
	"math"
)

// Header extension (blockette) types understood by the codec.
const (
	BlocketteRate     = 100
	BlocketteDataOnly = 1000
	BlocketteDataExt  = 1001
)

const blocketteHeaderLen = 4

// Blockette is one link of a header extension chain.
type Blockette struct {
	Type    uint16
	Next    uint16
	Offset  int
	Payload []byte
}

// DataOnly is the payload of a 1000 blockette.
type DataOnly struct {
	Encoding  Encoding
	ByteOrder Order
	LengthExp uint8
}

// RecordLength returns 2^LengthExp. Exponents that cannot describe a
// legal record are clamped to 2^31 so range checks still reject them.
func (d DataOnly) RecordLength() int {
	return 1 << min(d.LengthExp, 31)
}

// DataExt is the payload of a 1001 blockette.
type DataExt struct {
	TimingQuality uint8
	Microseconds  int8
	FrameCount    uint8
}

// WalkBlockettes follows the extension chain in buf starting at first,
// calling fn for each link until fn returns false, the chain ends, or a
// link would fall outside buf. Offsets must strictly increase.
func WalkBlockettes(buf []byte, order binary.ByteOrder, first uint16, fn func(Blockette) bool) {
	offset := int(first)
	for offset != 0 && offset >= FixedHeaderLen && offset+blocketteHeaderLen <= len(buf) {
		b := Blockette{
			Type:   order.Uint16(buf[offset:]),
			Next:   order.Uint16(buf[offset+2:]),
			Offset: offset,
		}
		end := len(buf)
		if next := int(b.Next); next > offset+blocketteHeaderLen && next < end {
			end = next
		}
		b.Payload = buf[offset+blocketteHeaderLen : end]

		if !fn(b) {
			return
		}
		if int(b.Next) <= offset {
			return
		}
		offset = int(b.Next)
	}
}

// DataOnly decodes a 1000 blockette payload.
func (b Blockette) DataOnly() (DataOnly, bool) {
	if b.Type != BlocketteDataOnly || len(b.Payload) < 4 {
		return DataOnly{}, false
	}
	return DataOnly{
		Encoding:  Encoding(b.Payload[0]),
		ByteOrder: Order(b.Payload[1]),
		LengthExp: b.Payload[2],
	}, true
}

// DataExt decodes a 1001 blockette payload.
func (b Blockette) DataExt() (DataExt, bool) {
	if b.Type != BlocketteDataExt || len(b.Payload) < 4 {
		return DataExt{}, false
	}
	return DataExt{
		TimingQuality: b.Payload[0],
		Microseconds:  int8(b.Payload[1]),
		FrameCount:    b.Payload[3],
	}, true
}

// Rate decodes the float sample rate of a 100 blockette.
func (b Blockette) Rate(order binary.ByteOrder) (float32, bool) {
	if b.Type != BlocketteRate || len(b.Payload) < 8 {
		return 0, false
	}
	return math.Float32frombits(order.Uint32(b.Payload)), true
}

func putBlockette(buf []byte, order binary.ByteOrder, offset int, typ, next uint16, payload []byte) {
	order.PutUint16(buf[offset:], typ)
	order.PutUint16(buf[offset+2:], next)
	copy(buf[offset+blocketteHeaderLen:], payload)
}
