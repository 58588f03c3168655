package trace

import (
	"math"

	"github.com/EarthScope/sac2mseed/pkg/codec"
)

// ToleranceMode selects how a tolerance is applied.
type ToleranceMode int

const (
	// ToleranceDefault uses the built in check: a relative rate deviation
	// below 1e-4, or half a sample period of time.
	ToleranceDefault ToleranceMode = iota
	// ToleranceExplicit uses Tolerance.Value, in Hz or seconds.
	ToleranceExplicit
	// ToleranceDisabled skips the check.
	ToleranceDisabled
)

// Tolerance is a sample rate or time tolerance. The zero value is the
// default tolerance.
type Tolerance struct {
	Mode  ToleranceMode
	Value float64
}

// Explicit returns a tolerance of v.
func Explicit(v float64) Tolerance {
	return Tolerance{Mode: ToleranceExplicit, Value: v}
}

// Disabled is a tolerance that skips its check.
var Disabled = Tolerance{Mode: ToleranceDisabled}

// MatchOptions control how coverage is matched to segments.
type MatchOptions struct {
	// Quality requires the data quality indicators to match.
	Quality bool
	Time    Tolerance
	Rate    Tolerance
}

// Coverage describes a span of data looking for a segment to join.
type Coverage struct {
	Identity   codec.Identity
	Quality    byte
	SampleRate float64
	Start      codec.Time
	End        codec.Time
}

func (t Tolerance) rateMatches(a, b float64) bool {
	switch t.Mode {
	case ToleranceDisabled:
		return true
	case ToleranceExplicit:
		return math.Abs(a-b) <= t.Value
	}
	return codec.RateTolerable(a, b)
}

// fit decides where a span with the given gaps fits. Gaps are negative
// for overlaps and positive for gaps, in seconds.
func (t Tolerance) fit(postgap, pregap, period float64) Whence {
	if t.Mode == ToleranceDisabled {
		if math.Abs(postgap) < math.Abs(pregap) {
			return WhenceEnd
		}
		return WhenceStart
	}

	limit := t.Value
	if t.Mode == ToleranceDefault {
		limit = 0.5 * period
	}
	switch {
	case math.Abs(postgap) <= limit:
		return WhenceEnd
	case math.Abs(pregap) <= limit:
		return WhenceStart
	}
	return WhenceNone
}

// samplePeriod returns 1/rate, or 0 for a zero rate.
func samplePeriod(rate float64) float64 {
	if rate == 0 {
		return 0
	}
	return 1 / rate
}

// gaps returns the gap between s and the span [start, end] when the span
// is placed after s (postgap) and before s (pregap), less one period.
func gaps(s *Segment, start, end codec.Time, period float64) (postgap, pregap float64) {
	postgap = codec.Seconds(start-s.End) - period
	pregap = codec.Seconds(s.Start-end) - period
	return postgap, pregap
}

// FindAdjacent returns the first segment that cov can be merged into and
// which end of it cov fits. Candidates must share the identity, the
// quality when opts.Quality is set, and a tolerable sample rate. When
// the time tolerance is disabled the first candidate is returned with
// whichever end is closer.
func (g *Group) FindAdjacent(cov Coverage, opts MatchOptions) (*Segment, Whence) {
	period := samplePeriod(cov.SampleRate)

	for _, s := range g.segments {
		if s.id != cov.Identity {
			continue
		}
		if opts.Quality && s.Quality != cov.Quality {
			continue
		}
		if !opts.Rate.rateMatches(cov.SampleRate, s.SampleRate) {
			continue
		}

		postgap, pregap := gaps(s, cov.Start, cov.End, period)
		if whence := opts.Time.fit(postgap, pregap, period); whence != WhenceNone {
			return s, whence
		}
	}
	return nil, WhenceNone
}
