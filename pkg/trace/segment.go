package trace

import (
	"github.com/pkg/errors"

	"github.com/EarthScope/sac2mseed/pkg/codec"
)

// Whence tells which end of a segment a span is adjacent to.
type Whence int

const (
	WhenceNone Whence = iota
	// WhenceEnd means the span follows the segment.
	WhenceEnd
	// WhenceStart means the span precedes the segment.
	WhenceStart
)

func (w Whence) String() string {
	switch w {
	case WhenceEnd:
		return "end"
	case WhenceStart:
		return "start"
	}
	return "none"
}

// Segment is a continuous waveform span of one channel.
type Segment struct {
	id codec.Identity

	// Quality is the data quality indicator, 0 when unset or when merged
	// inputs disagreed.
	Quality    byte
	SampleRate float64
	Start      codec.Time
	End        codec.Time

	// Samples holds the decoded samples. SampleCount is the number of
	// samples the segment covers, which exceeds Samples.Len() when some
	// contributing records were not unpacked.
	Samples     codec.Samples
	SampleCount int64

	// Template is carried for the packer and never examined by matching
	// or merging.
	Template *codec.Template
}

// NewSegment creates an empty segment starting and ending at start.
func NewSegment(id codec.Identity, quality byte, rate float64, start codec.Time) *Segment {
	return &Segment{
		id:         id,
		Quality:    quality,
		SampleRate: rate,
		Start:      start,
		End:        start,
	}
}

// Identity returns the channel identity, fixed at creation.
func (s *Segment) Identity() codec.Identity {
	return s.id
}

// SourceName returns NET_STA_LOC_CHAN, with _Q appended when the quality
// indicator is set.
func (s *Segment) SourceName() string {
	if s.Quality != 0 {
		return s.id.String() + "_" + string(s.Quality)
	}
	return s.id.String()
}

// Span is time coverage, with optional samples, to merge into a segment.
type Span struct {
	Start       codec.Time
	End         codec.Time
	Samples     codec.Samples
	SampleCount int64
	Quality     byte
}

// AddSpan merges span onto the end or the start of s. Samples of a
// different type are rejected with codec.ErrSampleTypeMismatch and s is
// left unchanged. The sample count grows by span.SampleCount even when
// the span carries no samples.
func (s *Segment) AddSpan(span Span, whence Whence) error {
	var err error
	switch whence {
	case WhenceEnd:
		err = s.Samples.Append(span.Samples)
	case WhenceStart:
		err = s.Samples.Prepend(span.Samples)
	default:
		return errors.Errorf("cannot add span to %s at %s", s.SourceName(), whence)
	}
	if err != nil {
		return errors.Wrapf(err, "adding span to %s", s.SourceName())
	}

	if whence == WhenceEnd {
		s.End = span.End
	} else {
		s.Start = span.Start
	}
	if s.Quality != 0 && span.Quality != 0 && s.Quality != span.Quality {
		s.Quality = 0
	}
	s.SampleCount += span.SampleCount
	return nil
}

// span returns the coverage of s as a span.
func (s *Segment) span() Span {
	return Span{
		Start:       s.Start,
		End:         s.End,
		Samples:     s.Samples,
		SampleCount: s.SampleCount,
		Quality:     s.Quality,
	}
}
