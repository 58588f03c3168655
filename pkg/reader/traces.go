package reader

import (
	"io"

	"github.com/pkg/errors"

	"github.com/EarthScope/sac2mseed/pkg/trace"
)

// ReadTraces adds every remaining record of the open stream to g and
// returns how many were added. Reaching the end of the stream is not an
// error. The cursor is finished when it returns.
func (c *Cursor) ReadTraces(g *trace.Group, opts Options, match trace.MatchOptions) (int, error) {
	n := 0
	for {
		res, err := c.Next(opts)
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, err
		}

		if _, err := g.AddRecord(res.Record, match); err != nil {
			return n, c.fail(errors.Wrapf(err, "record at offset %d of %s", res.Offset, c.id))
		}
		n++
	}
}

// ReadTraces reads every record of path into g with a cursor of its own.
func ReadTraces(path string, g *trace.Group, opts Options, match trace.MatchOptions, copts ...CursorOption) (int, error) {
	c := NewCursor(copts...)
	if err := c.Open(path); err != nil {
		return 0, err
	}
	return c.ReadTraces(g, opts, match)
}
