package trace

import (
	"github.com/pkg/errors"

	"github.com/EarthScope/sac2mseed/pkg/codec"
	"github.com/EarthScope/sac2mseed/pkg/logging"
	"github.com/EarthScope/sac2mseed/pkg/metrics"
)

// Group is an ordered collection of segments. It is not safe for
// concurrent use.
type Group struct {
	segments []*Segment

	log     logging.L
	metrics *metrics.Metrics
}

// GroupOption configures a Group.
type GroupOption func(*Group)

// WithLogger sets the logger used for listing warnings.
func WithLogger(l logging.L) GroupOption {
	return func(g *Group) {
		g.log = logging.Must(l)
	}
}

// WithMetrics records segment creation and merges to m.
func WithMetrics(m *metrics.Metrics) GroupOption {
	return func(g *Group) {
		g.metrics = m
	}
}

// NewGroup returns an empty group.
func NewGroup(opts ...GroupOption) *Group {
	g := &Group{log: logging.Nop}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Len returns the number of segments.
func (g *Group) Len() int {
	return len(g.segments)
}

// Segments returns the segments in order. The slice is owned by the group.
func (g *Group) Segments() []*Segment {
	return g.segments
}

// Add appends s.
func (g *Group) Add(s *Segment) {
	g.segments = append(g.segments, s)
}

// Remove removes and returns the segment at index i.
func (g *Group) Remove(i int) *Segment {
	s := g.segments[i]
	copy(g.segments[i:], g.segments[i+1:])
	g.segments[len(g.segments)-1] = nil
	g.segments = g.segments[:len(g.segments)-1]
	return s
}

// Reset drops every segment.
func (g *Group) Reset() {
	clear(g.segments)
	g.segments = g.segments[:0]
}

// AddRecord merges rec into an adjacent segment or starts a new one, and
// returns the segment that received it. A record that matches a segment
// but has no samples or no sample rate leaves it untouched.
func (g *Group) AddRecord(rec *codec.Record, opts MatchOptions) (*Segment, error) {
	if rec == nil {
		return nil, errors.New("nil record")
	}

	var quality byte
	if opts.Quality {
		quality = rec.Quality
	}
	span := Span{
		Start:       rec.StartTime,
		End:         rec.EndTime(),
		Samples:     rec.Samples,
		SampleCount: rec.SampleCount,
		Quality:     quality,
	}

	seg, whence := g.FindAdjacent(Coverage{
		Identity:   rec.Identity,
		Quality:    quality,
		SampleRate: rec.SampleRate,
		Start:      span.Start,
		End:        span.End,
	}, opts)
	if seg != nil {
		if rec.SampleCount <= 0 || rec.SampleRate <= 0 {
			return seg, nil
		}
		if err := seg.AddSpan(span, whence); err != nil {
			return nil, err
		}
		g.metrics.Merged(metrics.MergeAdd, 1)
		return seg, nil
	}

	seg = NewSegment(rec.Identity, quality, rec.SampleRate, rec.StartTime)
	if err := seg.AddSpan(span, WhenceEnd); err != nil {
		return nil, err
	}
	g.Add(seg)
	g.metrics.SegmentCreated()
	return seg, nil
}
