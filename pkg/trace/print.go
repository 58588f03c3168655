package trace

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/pkg/errors"

	"github.com/EarthScope/sac2mseed/pkg/codec"
)

// TimeFormat selects how listings print times.
type TimeFormat int

const (
	TimeSEED TimeFormat = iota
	TimeISO
	TimeEpoch
)

// ParseTimeFormat maps "seed", "iso" or "epoch" to a TimeFormat.
func ParseTimeFormat(s string) (TimeFormat, error) {
	switch strings.ToLower(s) {
	case "seed", "":
		return TimeSEED, nil
	case "iso":
		return TimeISO, nil
	case "epoch":
		return TimeEpoch, nil
	}
	return TimeSEED, errors.Errorf("unknown time format %q", s)
}

// Format formats t.
func (f TimeFormat) Format(t codec.Time) string {
	switch f {
	case TimeISO:
		return t.ISOString()
	case TimeEpoch:
		return fmt.Sprintf("%.6f", t.Epoch())
	}
	return t.SEEDString()
}

// printer keeps the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

// formatGap renders a gap in seconds, switching to hours and days for
// long gaps.
func formatGap(gap float64) string {
	switch {
	case math.Abs(gap) >= 86400:
		return fmt.Sprintf("%-3.1fd", gap/86400)
	case math.Abs(gap) >= 3600:
		return fmt.Sprintf("%-3.1fh", gap/3600)
	}
	return fmt.Sprintf("%-4.4g", gap)
}

// clampOverlap limits an overlap to the coverage of s plus one sample.
func clampOverlap(gap float64, s *Segment) float64 {
	if gap >= 0 {
		return gap
	}
	coverage := codec.Seconds(s.End-s.Start) + samplePeriod(s.SampleRate)
	if -gap > coverage {
		return -coverage
	}
	return gap
}

// PrintTraceList writes one line per segment. details adds the sample
// rate and count, gaps adds the gap from the previous segment of the
// same source.
func (g *Group) PrintTraceList(w io.Writer, format TimeFormat, details, gaps bool) error {
	p := &printer{w: w}

	header := "   Source                Start sample             End sample"
	switch {
	case details && gaps:
		header += "        Gap  Hz  Samples"
	case gaps:
		header += "        Gap"
	case details:
		header += "        Hz  Samples"
	}
	p.printf("%s\n", header)

	var prev *Segment
	for _, s := range g.segments {
		name := s.SourceName()
		start, end := format.Format(s.Start), format.Format(s.End)

		switch {
		case gaps:
			gap := 0.0
			if prev != nil && prev.SourceName() == name && codec.RateTolerable(prev.SampleRate, s.SampleRate) {
				gap = codec.Seconds(s.Start - prev.End)
			}
			gapstr := formatGap(clampOverlap(gap, s))
			if details {
				p.printf("%-17s %-24s %-24s %-s %-3.3g %-d\n", name, start, end, gapstr, s.SampleRate, s.SampleCount)
			} else {
				p.printf("%-17s %-24s %-24s %-4s\n", name, start, end, gapstr)
			}
			prev = s
		case details:
			p.printf("%-17s %-24s %-24s %-3.3g %-d\n", name, start, end, s.SampleRate, s.SampleCount)
		default:
			p.printf("%-17s %-24s %-24s\n", name, start, end)
		}
	}

	if details {
		p.printf("Total: %d trace(s)\n", len(g.segments))
	}
	return errors.Wrap(p.err, "printing trace list")
}

// PrintGapList writes the gaps and overlaps between consecutive segments
// of the same source; the group should be sorted first. Gaps shorter
// than minGap or longer than maxGap, in seconds, are left out when the
// bounds are set. Segments with no sample rate are passed over.
func (g *Group) PrintGapList(w io.Writer, format TimeFormat, minGap, maxGap *float64) error {
	p := &printer{w: w}
	p.printf("   Source                Last Sample              Next Sample       Gap  Samples\n")

	count := 0
	for i := 0; i+1 < len(g.segments); i++ {
		cur, next := g.segments[i], g.segments[i+1]
		name := cur.SourceName()
		if name != next.SourceName() || cur.SampleRate == 0 {
			continue
		}
		if !codec.RateTolerable(cur.SampleRate, next.SampleRate) {
			g.log.Warnf("%s sample rate changed: %.10g -> %.10g", name, cur.SampleRate, next.SampleRate)
		}

		gap := clampOverlap(codec.Seconds(next.Start-cur.End), next)
		if minGap != nil && gap < *minGap {
			continue
		}
		if maxGap != nil && gap > *maxGap {
			continue
		}

		missing := math.Abs(gap) * cur.SampleRate
		if gap > 0 {
			missing--
		} else {
			missing++
		}
		p.printf("%-17s %-24s %-24s %-4s %-.8g\n", name,
			format.Format(cur.End), format.Format(next.Start), formatGap(gap), missing)
		count++
	}

	p.printf("Total: %d gap(s)\n", count)
	return errors.Wrap(p.err, "printing gap list")
}
