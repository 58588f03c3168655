package trace

import (
	"github.com/EarthScope/sac2mseed/pkg/codec"
	"github.com/EarthScope/sac2mseed/pkg/metrics"
)

// Heal merges segments of the group that turn out to be adjacent, which
// happens when records arrive out of order. Segments with different
// sample types are never merged. With the time tolerance disabled no gap
// fits, so nothing is merged. It returns the number of merges; healing a
// healed group returns 0.
func (g *Group) Heal(opts MatchOptions) int {
	merged := 0
	if opts.Time.Mode == ToleranceDisabled {
		return merged
	}

	for i := 0; i < len(g.segments); i++ {
		cur := g.segments[i]
		for j := 0; j < len(g.segments); j++ {
			if j == i {
				continue
			}
			other := g.segments[j]
			if !healable(cur, other, opts) {
				continue
			}

			period := samplePeriod(cur.SampleRate)
			postgap, pregap := gaps(cur, other.Start, other.End, period)
			whence := opts.Time.fit(postgap, pregap, period)
			if whence == WhenceNone {
				continue
			}
			if err := cur.AddSpan(other.span(), whence); err != nil {
				continue
			}

			g.Remove(j)
			merged++
			if j < i {
				i--
			}
			// cur grew, so earlier segments may now fit.
			j = -1
		}
	}

	g.metrics.Merged(metrics.MergeHeal, merged)
	return merged
}

func healable(a, b *Segment, opts MatchOptions) bool {
	if a.id != b.id {
		return false
	}
	if opts.Quality && a.Quality != b.Quality {
		return false
	}
	at, bt := a.Samples.Type(), b.Samples.Type()
	if at != codec.SampleNone && bt != codec.SampleNone && at != bt {
		return false
	}
	return opts.Rate.rateMatches(a.SampleRate, b.SampleRate)
}
