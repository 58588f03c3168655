package reader

import (
	"github.com/pkg/errors"

	"github.com/EarthScope/sac2mseed/pkg/codec"
)

// End of stream is reported as io.EOF. Every other failure wraps one of
// the errors below and leaves the cursor closed.
var (
	// ErrIO is a failed or unexpectedly short read.
	ErrIO = errors.New("i/o failure")
	// ErrNotRecognized means no record could be found: the stream ended
	// before any record was read, or no record length could be detected.
	ErrNotRecognized = errors.New("data not recognized as records")
	// ErrOutOfRange is a record length outside the legal limits.
	ErrOutOfRange = errors.New("record length out of range")
	// ErrWrongLength is a record whose declared length disagrees with the
	// length the cursor read.
	ErrWrongLength = errors.New("record length does not match read length")
	// ErrUnknownFormat is a record whose data encoding cannot be unpacked.
	ErrUnknownFormat = codec.ErrUnknownFormat
	// ErrClosed is returned by Next on a cursor with no open stream.
	ErrClosed = errors.New("cursor is not open")
)

// errorKind names err for metrics.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrNotRecognized):
		return "not_recognized"
	case errors.Is(err, ErrOutOfRange):
		return "out_of_range"
	case errors.Is(err, ErrWrongLength):
		return "wrong_length"
	case errors.Is(err, ErrUnknownFormat):
		return "unknown_format"
	case errors.Is(err, ErrIO):
		return "io"
	}
	return "other"
}
