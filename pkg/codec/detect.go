package codec

import (
	"io"
)

// Results of FindRecordLength other than a positive length.
const (
	// NotRecord means the window does not start with a data record header.
	NotRecord = -1
	// LengthUnknown means the window starts with a data record whose
	// length could not be determined from the bytes available.
	LengthUnknown = 0
)

// ReadAheadLen is the number of bytes peeked past the window when no
// 1000 blockette declares the record length.
const ReadAheadLen = 48

// Peeker gives read-ahead access to a stream without consuming it.
// *bufio.Reader satisfies Peeker.
type Peeker interface {
	Peek(n int) ([]byte, error)
}

// FindRecordLength determines the length of the record at the start of
// window:
//
//  1. the window must start with a valid fixed header;
//  2. the header byte order is inferred from the start year;
//  3. the blockette chain is searched, within the window, for a 1000
//     blockette whose length exponent gives the record length;
//  4. failing that, and if ahead is not nil, the next ReadAheadLen bytes
//     are peeked. If they start another header or a blank record, or the
//     stream ends there, the window length is the record length.
//
// The result is NotRecord, LengthUnknown or the record length in bytes.
// An error is only returned when the read-ahead fails.
func FindRecordLength(window []byte, ahead Peeker) (int, error) {
	if !IsValidHeader(window) {
		return NotRecord, nil
	}

	order := HeaderByteOrder(window)
	first := order.Uint16(window[offBlocketteOffset:])

	length := LengthUnknown
	WalkBlockettes(window, order, first, func(b Blockette) bool {
		if d, ok := b.DataOnly(); ok {
			length = d.RecordLength()
			return false
		}
		return true
	})
	if length != LengthUnknown || ahead == nil {
		return length, nil
	}

	next, err := ahead.Peek(ReadAheadLen)
	switch {
	case len(next) < ReadAheadLen && err == io.EOF:
		return len(window), nil
	case err != nil:
		return LengthUnknown, err
	case IsValidHeader(next) || IsValidBlank(next):
		return len(window), nil
	}
	return LengthUnknown, nil
}

// seekPeeker adapts an io.ReadSeeker to Peeker by reading and seeking
// back.
type seekPeeker struct {
	rs io.ReadSeeker
}

// NewSeekPeeker returns a Peeker over rs. Each Peek restores the read
// position of rs before returning, including when the read fails.
func NewSeekPeeker(rs io.ReadSeeker) Peeker {
	return &seekPeeker{rs: rs}
}

func (p *seekPeeker) Peek(n int) (b []byte, err error) {
	start, err := p.rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	defer func() {
		if _, serr := p.rs.Seek(start, io.SeekStart); serr != nil && err == nil {
			err = serr
		}
	}()

	b = make([]byte, n)
	read, err := io.ReadFull(p.rs, b)
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return b[:read], err
}
