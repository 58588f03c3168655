package trace

import (
	"sort"

	"github.com/EarthScope/sac2mseed/pkg/codec"
)

// Sort orders segments by source name, then sample rate when the rates
// are not tolerably equal, then start time ascending, then end time
// descending. Equal segments keep their order.
func (g *Group) Sort() {
	sort.SliceStable(g.segments, func(i, j int) bool {
		return segmentLess(g.segments[i], g.segments[j])
	})
}

func segmentLess(a, b *Segment) bool {
	if an, bn := a.SourceName(), b.SourceName(); an != bn {
		return an < bn
	}
	if !codec.RateTolerable(a.SampleRate, b.SampleRate) {
		return a.SampleRate < b.SampleRate
	}
	if a.Start != b.Start {
		return a.Start < b.Start
	}
	return a.End > b.End
}
