package codec

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindRecordLength_DataOnlyBlockette(t *testing.T) {
	for exp := 8; exp <= 20; exp++ {
		length := 1 << exp
		rec := encodeOne(t, length, OrderBig)
		require.Len(t, rec, length)

		for probe := MinRecordLen; probe <= 8192 && probe <= length; probe *= 2 {
			t.Run(fmt.Sprintf("2^%d/probe %d", exp, probe), func(t *testing.T) {
				got, err := FindRecordLength(rec[:probe], nil)
				require.NoError(t, err)
				assert.Equal(t, length, got)
			})
		}
	}
}

func TestFindRecordLength_LittleEndian(t *testing.T) {
	rec := encodeOne(t, 4096, OrderLittle)

	got, err := FindRecordLength(rec[:MinRecordLen], nil)
	require.NoError(t, err)
	assert.Equal(t, 4096, got)
}

func TestFindRecordLength_NotRecord(t *testing.T) {
	got, err := FindRecordLength(bytes.Repeat([]byte{0xAB}, MinRecordLen), nil)
	require.NoError(t, err)
	assert.Equal(t, NotRecord, got)

	got, err = FindRecordLength(make([]byte, 10), nil)
	require.NoError(t, err)
	assert.Equal(t, NotRecord, got)
}

func TestFindRecordLength_ReadAhead(t *testing.T) {
	window := rawHeader(t, binary.BigEndian)
	blank := append([]byte("000002"), bytes.Repeat([]byte(" "), FixedHeaderLen-6)...)

	tests := []struct {
		name  string
		ahead Peeker
		want  int
	}{
		{name: "no read-ahead", ahead: nil, want: LengthUnknown},
		{name: "next header", ahead: bufio.NewReader(bytes.NewReader(rawHeader(t, binary.BigEndian))), want: MinRecordLen},
		{name: "blank record", ahead: bufio.NewReader(bytes.NewReader(blank)), want: MinRecordLen},
		{name: "end of stream", ahead: bufio.NewReader(bytes.NewReader(nil)), want: MinRecordLen},
		{name: "short tail", ahead: bufio.NewReader(bytes.NewReader([]byte("0000"))), want: MinRecordLen},
		{name: "garbage", ahead: bufio.NewReader(bytes.NewReader(bytes.Repeat([]byte{0xFF}, 64))), want: LengthUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindRecordLength(window, tt.ahead)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type failingPeeker struct{}

func (failingPeeker) Peek(int) ([]byte, error) { return nil, io.ErrClosedPipe }

func TestFindRecordLength_ReadAheadError(t *testing.T) {
	got, err := FindRecordLength(rawHeader(t, binary.BigEndian), failingPeeker{})
	assert.ErrorIs(t, err, io.ErrClosedPipe)
	assert.Equal(t, LengthUnknown, got)
}

func TestFindRecordLength_TruncatedChain(t *testing.T) {
	rec := encodeOne(t, 512, OrderBig)

	// The 1000 blockette starts at 48 and does not fit in a 50 byte window.
	got, err := FindRecordLength(rec[:50], nil)
	require.NoError(t, err)
	assert.Equal(t, LengthUnknown, got)
}

func TestSeekPeeker_RestoresPosition(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789"), 10)
	r := bytes.NewReader(data)
	_, err := r.Seek(10, io.SeekStart)
	require.NoError(t, err)

	p := NewSeekPeeker(r)
	b, err := p.Peek(ReadAheadLen)
	require.NoError(t, err)
	assert.Equal(t, data[10:10+ReadAheadLen], b)

	pos, _ := r.Seek(0, io.SeekCurrent)
	assert.Equal(t, int64(10), pos)

	_, err = r.Seek(95, io.SeekStart)
	require.NoError(t, err)
	b, err = p.Peek(ReadAheadLen)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, data[95:], b)

	pos, _ = r.Seek(0, io.SeekCurrent)
	assert.Equal(t, int64(95), pos)
}
