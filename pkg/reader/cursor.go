package reader

import (
	"bufio"
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/EarthScope/sac2mseed/pkg/codec"
	"github.com/EarthScope/sac2mseed/pkg/logging"
	"github.com/EarthScope/sac2mseed/pkg/metrics"
)

const (
	// StdinPath opens standard input instead of a file.
	StdinPath = "-"
	// maxProbeLen bounds the window grown while detecting a record length.
	maxProbeLen = 8192
)

// Options control a single read.
type Options struct {
	// RecordLength selects how records are delimited: 0 detects the
	// length of the first record and expects it for the rest, a negative
	// value detects the length of every record and a positive value reads
	// records of exactly that length.
	RecordLength int
	// SkipNotData passes over blocks that do not start with a data
	// record header instead of failing on them.
	SkipNotData bool
	// Unpack decodes the record samples.
	Unpack bool
	// Verbose enables progress logging; 1 logs detections, 2 also logs
	// envelopes and skipped blocks.
	Verbose int
}

// Result is one record read from a stream.
type Result struct {
	Record *codec.Record
	// Offset is the stream offset of the first byte of the record.
	Offset int64
	// Last is set when the stream ends after this record.
	Last bool
}

// Cursor reads the records of one stream at a time. It remembers the
// detected record length, any container envelope and the stream offset
// between calls to Next.
//
// Any error, including end of stream, closes the cursor. A Cursor must
// not be used from more than one goroutine at a time.
type Cursor struct {
	decoder codec.Decoder
	log     logging.L
	metrics *metrics.Metrics
	stdin   io.Reader

	id     string
	closer io.Closer
	br     *bufio.Reader
	buf    []byte

	detect  bool
	readLen int

	sniffed      bool
	dialect      *Dialect
	nextEnvelope int64

	offset int64
	count  int
}

// CursorOption configures a Cursor.
type CursorOption func(*Cursor)

// WithDecoder sets the record decoder. The default is a codec.RawCodec.
func WithDecoder(d codec.Decoder) CursorOption {
	return func(c *Cursor) { c.decoder = d }
}

// WithLogger sets the logger.
func WithLogger(l logging.L) CursorOption {
	return func(c *Cursor) { c.log = l }
}

// WithMetrics sets the metrics the cursor reports to.
func WithMetrics(m *metrics.Metrics) CursorOption {
	return func(c *Cursor) { c.metrics = m }
}

// WithStdin replaces os.Stdin as the stream opened for StdinPath.
func WithStdin(r io.Reader) CursorOption {
	return func(c *Cursor) { c.stdin = r }
}

// NewCursor creates a cursor with no open stream.
func NewCursor(opts ...CursorOption) *Cursor {
	c := &Cursor{
		decoder: codec.NewRawCodec(),
		stdin:   os.Stdin,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = logging.Must(c.log)
	c.clear()
	return c
}

// IsOpen reports whether a stream is attached.
func (c *Cursor) IsOpen() bool {
	return c.br != nil
}

// StreamID returns the path or id of the open stream.
func (c *Cursor) StreamID() string {
	return c.id
}

// Count returns the number of records read from the open stream.
func (c *Cursor) Count() int {
	return c.count
}

// Offset returns the current stream offset.
func (c *Cursor) Offset() int64 {
	return c.offset
}

// Open attaches the file at path, or standard input for StdinPath. If
// the cursor is already reading path this is a no-op. If it is reading
// a different stream, that stream is closed and all detection state is
// discarded first.
func (c *Cursor) Open(path string) error {
	if c.continues(path) {
		return nil
	}
	if path == StdinPath {
		c.attach(path, c.stdin, nil)
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(ErrIO, "opening %s: %v", path, err)
	}
	c.attach(path, f, f)
	return nil
}

// OpenStream attaches r under id, following the same rules as Open. The
// cursor never closes r.
func (c *Cursor) OpenStream(id string, r io.Reader) error {
	if c.continues(id) {
		return nil
	}
	c.attach(id, r, nil)
	return nil
}

func (c *Cursor) continues(id string) bool {
	if c.br == nil {
		return false
	}
	if id == c.id {
		return true
	}
	c.log.Warnf("cursor reading %s called for %s before being finished, resetting", c.id, id)
	if err := c.Finish(); err != nil {
		c.log.Warnf("closing %s: %v", c.id, err)
	}
	return false
}

func (c *Cursor) attach(id string, r io.Reader, closer io.Closer) {
	c.clear()
	c.id = id
	c.closer = closer
	c.br = bufio.NewReader(r)
}

// Read opens path if needed and returns its next record.
func (c *Cursor) Read(path string, opts Options) (*Result, error) {
	if err := c.Open(path); err != nil {
		return nil, err
	}
	return c.Next(opts)
}

// Next returns the next record of the open stream, or io.EOF at the end
// of the stream. On any error the cursor is finished before returning.
func (c *Cursor) Next(opts Options) (*Result, error) {
	if c.br == nil {
		return nil, ErrClosed
	}

	if opts.RecordLength > 0 && c.detect {
		if opts.RecordLength < codec.FixedHeaderLen || opts.RecordLength > codec.MaxRecordLen {
			return nil, c.fail(errors.Wrapf(ErrOutOfRange, "requested record length %d", opts.RecordLength))
		}
		c.readLen = opts.RecordLength
		c.detect = false
	}
	if opts.RecordLength < 0 {
		c.detect = true
	}

	var (
		res *Result
		err error
	)
	if c.detect {
		res, err = c.nextDetect(opts)
	} else {
		res, err = c.nextFixed(opts)
	}
	if err != nil {
		return nil, c.fail(err)
	}
	return res, nil
}

// Finish closes the stream, unless it is standard input or was attached
// with OpenStream, and releases all cursor state.
func (c *Cursor) Finish() error {
	var err error
	if c.closer != nil {
		err = c.closer.Close()
	}
	c.clear()
	if err != nil {
		return errors.Wrapf(ErrIO, "closing stream: %v", err)
	}
	return nil
}

func (c *Cursor) clear() {
	c.id = ""
	c.closer = nil
	c.br = nil
	c.buf = nil
	c.detect = true
	c.readLen = codec.MinRecordLen
	c.sniffed = false
	c.dialect = nil
	c.nextEnvelope = 0
	c.offset = 0
	c.count = 0
}

func (c *Cursor) fail(err error) error {
	if err != io.EOF {
		c.metrics.ReadError(errorKind(err))
		c.log.Debugf("read of %s failed at offset %d: %v", c.id, c.offset, err)
	}
	if cerr := c.Finish(); cerr != nil {
		c.log.Warnf("%v", cerr)
	}
	return err
}

// nextDetect reads a record whose length is not yet known, growing the
// read window until the length can be determined.
func (c *Cursor) nextDetect(opts Options) (*Result, error) {
	if err := c.beginRecord(opts); err != nil {
		return nil, err
	}

	start := c.offset
	c.buf = c.buf[:0]
	length := codec.LengthUnknown
	for probe := codec.MinRecordLen; probe <= maxProbeLen; {
		want := probe
		if c.dialect != nil && c.nextEnvelope > start && c.nextEnvelope-start < int64(want) {
			want = int(c.nextEnvelope - start)
		}
		if err := c.fill(want); err != nil {
			return nil, err
		}

		// A record never spans an envelope boundary.
		if c.atEnvelope() {
			length = len(c.buf)
			break
		}

		var err error
		length, err = codec.FindRecordLength(c.buf, c.br)
		if err != nil {
			return nil, errors.Wrapf(ErrIO, "read-ahead at offset %d: %v", c.offset, err)
		}
		if length > 0 {
			break
		}

		if length == codec.NotRecord && opts.SkipNotData {
			c.skipped(opts, start)
			if err := c.beginRecord(opts); err != nil {
				return nil, err
			}
			start = c.offset
			c.buf = c.buf[:0]
			continue
		}
		probe *= 2
	}

	if length <= 0 {
		return nil, errors.Wrapf(ErrNotRecognized, "cannot detect record length at offset %d of %s", start, c.id)
	}
	if length < codec.MinRecordLen || length > codec.MaxRecordLen {
		return nil, errors.Wrapf(ErrOutOfRange, "detected record length %d at offset %d", length, start)
	}

	c.metrics.LengthDetected(length)
	if opts.Verbose > 0 {
		c.log.Infof("detected record length of %d bytes at offset %d of %s", length, start, c.id)
	}

	switch {
	case length > len(c.buf):
		if err := c.fill(length); err != nil {
			return nil, err
		}
	case length < len(c.buf):
		c.unread(c.buf[length:])
		c.buf = c.buf[:length]
	}

	c.readLen = length
	c.detect = false
	return c.finishRecord(opts, start)
}

// nextFixed reads a record of the settled length.
func (c *Cursor) nextFixed(opts Options) (*Result, error) {
	for {
		if err := c.beginRecord(opts); err != nil {
			return nil, err
		}

		start := c.offset
		c.buf = c.buf[:0]
		if err := c.fill(c.readLen); err != nil {
			return nil, err
		}
		if opts.SkipNotData && !codec.IsValidHeader(c.buf) {
			c.skipped(opts, start)
			continue
		}
		return c.finishRecord(opts, start)
	}
}

func (c *Cursor) finishRecord(opts Options, start int64) (*Result, error) {
	raw := append([]byte(nil), c.buf...)

	rec, err := c.decoder.Decode(raw, opts.Unpack)
	if err != nil {
		if errors.Is(err, codec.ErrNotData) {
			return nil, errors.Wrapf(ErrNotRecognized, "record at offset %d: %v", start, err)
		}
		return nil, errors.Wrapf(err, "decoding record at offset %d", start)
	}
	if rec.DeclaredLength != 0 && rec.DeclaredLength != len(raw) {
		return nil, errors.Wrapf(ErrWrongLength, "record at offset %d declares %d bytes, read %d",
			start, rec.DeclaredLength, len(raw))
	}

	c.count++
	c.metrics.RecordRead(len(raw))
	return &Result{Record: rec, Offset: start, Last: c.atEnd()}, nil
}

// fill reads into the scratch buffer until it holds n bytes.
func (c *Cursor) fill(n int) error {
	have := len(c.buf)
	if cap(c.buf) < n {
		grown := make([]byte, have, n)
		copy(grown, c.buf)
		c.buf = grown
	}
	c.buf = c.buf[:n]

	got, err := io.ReadFull(c.br, c.buf[have:])
	c.offset += int64(got)
	if err == nil {
		return nil
	}
	c.buf = c.buf[:have+got]

	if err != io.EOF && err != io.ErrUnexpectedEOF {
		return errors.Wrapf(ErrIO, "reading %s at offset %d: %v", c.id, c.offset, err)
	}
	if c.count == 0 {
		return errors.Wrapf(ErrNotRecognized, "%s ended after %d bytes without a record", c.id, c.offset)
	}
	if len(c.buf) > 0 {
		c.log.Warnf("ignoring %d trailing bytes at end of %s", len(c.buf), c.id)
	}
	return io.EOF
}

// unread returns bytes read past the end of a record to the stream.
func (c *Cursor) unread(b []byte) {
	extra := append([]byte(nil), b...)
	c.br = bufio.NewReader(io.MultiReader(bytes.NewReader(extra), c.br))
	c.offset -= int64(len(extra))
}

// atEnd reports whether nothing but a trailing envelope checksum
// follows the current offset.
func (c *Cursor) atEnd() bool {
	n := 1
	if c.atEnvelope() {
		n += c.dialect.ChecksumLen
	}
	b, err := c.br.Peek(n)
	return len(b) < n && err == io.EOF
}

func (c *Cursor) skipped(opts Options, start int64) {
	c.metrics.RecordSkipped()
	if opts.Verbose > 1 {
		what := "non-data record"
		if codec.IsValidBlank(c.buf) {
			what = "blank/noise record"
		}
		c.log.Debugf("skipped %d bytes of %s at byte offset %d", len(c.buf), what, start)
	}
}

func (c *Cursor) atEnvelope() bool {
	return c.dialect != nil && c.offset == c.nextEnvelope
}

// beginRecord sniffs the envelope dialect at the start of the stream and
// consumes any envelope headers due at the current offset.
func (c *Cursor) beginRecord(opts Options) error {
	if !c.sniffed {
		c.sniffed = true
		if tag, _ := c.br.Peek(3); len(tag) == 3 {
			if d, ok := SniffDialect(tag); ok {
				c.dialect = &d
				c.nextEnvelope = c.offset
				if opts.Verbose > 0 {
					c.log.Infof("detected %s envelope in %s", d.Tag, c.id)
				}
			}
		}
	}

	for c.atEnvelope() {
		size, err := c.readEnvelope()
		if err != nil {
			return err
		}
		c.nextEnvelope = c.dialect.NextOffset(c.offset, size)
		if opts.Verbose > 1 {
			c.log.Debugf("read %s envelope header at offset %d (%d bytes follow)",
				c.dialect.Tag, c.offset-int64(c.dialect.HeaderLen), size)
		}
	}
	return nil
}

// readEnvelope skips the checksum of the previous envelope, or the
// identifier at the start of the stream, and reads the next header. A
// stream that ends instead of starting another envelope returns io.EOF.
func (c *Cursor) readEnvelope() (int, error) {
	skip := c.dialect.ChecksumLen
	if c.offset == 0 {
		skip = envelopeIDLen
	}

	n, err := c.br.Discard(skip)
	c.offset += int64(n)
	if err == io.EOF {
		return 0, io.EOF
	}
	if err != nil {
		return 0, errors.Wrapf(ErrIO, "skipping %s envelope checksum at offset %d: %v", c.dialect.Tag, c.offset, err)
	}
	if _, err := c.br.Peek(1); err == io.EOF {
		return 0, io.EOF
	}

	hdr := make([]byte, c.dialect.HeaderLen)
	n, err = io.ReadFull(c.br, hdr)
	c.offset += int64(n)
	if err != nil {
		return 0, errors.Wrapf(ErrIO, "reading %s envelope header at offset %d: %v", c.dialect.Tag, c.offset, err)
	}

	size, err := c.dialect.ParseSize(hdr)
	if err != nil {
		return 0, errors.Wrapf(ErrNotRecognized, "at offset %d: %v", c.offset, err)
	}
	return size, nil
}
