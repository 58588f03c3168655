package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EarthScope/sac2mseed/pkg/codec"
)

func TestHealOutOfOrderRecords(t *testing.T) {
	g := NewGroup()
	for _, first := range []int{0, 20, 10} {
		_, err := g.AddRecord(intRecord(anmo, 1, first, 10), MatchOptions{})
		require.NoError(t, err)
	}
	// The middle record joined the first segment, leaving a gap it does
	// not fill on its own.
	require.Equal(t, 2, g.Len())

	assert.Equal(t, 1, g.Heal(MatchOptions{}))
	require.Equal(t, 1, g.Len())
	s := g.Segments()[0]
	assert.Equal(t, at(0, 1), s.Start)
	assert.Equal(t, at(29, 1), s.End)
	assert.EqualValues(t, 30, s.SampleCount)
	assert.Equal(t, seq(0, 30), s.Samples.Ints())

	assert.Equal(t, 0, g.Heal(MatchOptions{}))
}

func segmentOf(rec *codec.Record) *Segment {
	s := NewSegment(rec.Identity, 0, rec.SampleRate, rec.StartTime)
	_ = s.AddSpan(Span{
		Start:       rec.StartTime,
		End:         rec.EndTime(),
		Samples:     rec.Samples,
		SampleCount: rec.SampleCount,
	}, WhenceEnd)
	return s
}

func TestHealChain(t *testing.T) {
	other := anmo
	other.Channel = "BHE"

	g := NewGroup()
	g.Add(segmentOf(intRecord(anmo, 1, 30, 10)))
	g.Add(segmentOf(intRecord(other, 1, 0, 10)))
	g.Add(segmentOf(intRecord(anmo, 1, 10, 10)))
	g.Add(segmentOf(intRecord(anmo, 1, 0, 10)))
	g.Add(segmentOf(intRecord(anmo, 1, 20, 10)))

	assert.Equal(t, 3, g.Heal(MatchOptions{}))
	require.Equal(t, 2, g.Len())

	var merged *Segment
	for _, s := range g.Segments() {
		if s.Identity() == anmo {
			merged = s
		}
	}
	require.NotNil(t, merged)
	assert.Equal(t, seq(0, 40), merged.Samples.Ints())
	assert.Equal(t, at(0, 1), merged.Start)
	assert.Equal(t, at(39, 1), merged.End)

	assert.Equal(t, 0, g.Heal(MatchOptions{}))
}

func TestHealSkipsMismatchedTypes(t *testing.T) {
	text := intRecord(anmo, 1, 10, 4)
	text.Samples = codec.TextSamples([]byte("abcd"))

	g := NewGroup()
	g.Add(segmentOf(intRecord(anmo, 1, 0, 10)))
	g.Add(segmentOf(text))

	assert.Equal(t, 0, g.Heal(MatchOptions{}))
	assert.Equal(t, 2, g.Len())
}

func TestHealDisabledTimeToleranceNeverMerges(t *testing.T) {
	g := NewGroup()
	g.Add(segmentOf(intRecord(anmo, 1, 10, 10)))
	g.Add(segmentOf(intRecord(anmo, 1, 0, 10)))

	assert.Equal(t, 0, g.Heal(MatchOptions{Time: Disabled}))
	assert.Equal(t, 2, g.Len())

	// The same pair is adjacent under the default tolerance.
	assert.Equal(t, 1, g.Heal(MatchOptions{}))
	assert.Equal(t, 1, g.Len())
}

func TestHealQuality(t *testing.T) {
	a := segmentOf(intRecord(anmo, 1, 0, 10))
	a.Quality = 'D'
	b := segmentOf(intRecord(anmo, 1, 10, 10))
	b.Quality = 'Q'

	g := NewGroup()
	g.Add(a)
	g.Add(b)
	assert.Equal(t, 0, g.Heal(MatchOptions{Quality: true}))

	assert.Equal(t, 1, g.Heal(MatchOptions{}))
	assert.Equal(t, byte(0), g.Segments()[0].Quality)
}
