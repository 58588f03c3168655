package trace

import (
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/EarthScope/sac2mseed/pkg/codec"
)

// ErrSampleCountMismatch is returned when packing a segment whose sample
// count differs from the samples it buffers, which happens when records
// were added without unpacking.
var ErrSampleCountMismatch = errors.New("sample count does not match buffered samples")

// Sink receives packed records.
type Sink interface {
	WriteRecord(rec []byte) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(rec []byte) error

func (f SinkFunc) WriteRecord(rec []byte) error {
	return f(rec)
}

// WriterSink writes records back to back to an io.Writer.
type WriterSink struct {
	W io.Writer
}

func (s WriterSink) WriteRecord(rec []byte) error {
	_, err := s.W.Write(rec)
	return err
}

// PackOptions control record packing.
type PackOptions struct {
	RecordLength int
	// Encoding is chosen from the sample type when nil.
	Encoding  *codec.Encoding
	ByteOrder codec.Order
	// Flush packs every sample, leaving the final record under-full.
	// Without it samples that do not fill a record stay buffered.
	Flush bool
	// ChunkSamples limits how many samples are handed to the encoder at
	// a time. Zero hands over all of them.
	ChunkSamples int
}

// PackStats counts what a pack produced.
type PackStats struct {
	Records int
	Samples int
}

func (s *PackStats) add(o PackStats) {
	s.Records += o.Records
	s.Samples += o.Samples
}

// EncodingFor returns the encoding used for samples of type t when no
// encoding is configured.
func EncodingFor(t codec.SampleType) codec.Encoding {
	switch t {
	case codec.SampleText:
		return codec.EncodingASCII
	case codec.SampleFloat:
		return codec.EncodingFloat32
	case codec.SampleDouble:
		return codec.EncodingFloat64
	}
	return codec.EncodingInt32
}

// Pack encodes the buffered samples of s into records and hands them to
// sink. Samples leave s, and its start time advances past them, once the
// sink has accepted their record. When the sink fails, s keeps exactly
// the samples of the rejected record and those after it, so a retry
// writes no record twice.
func (s *Segment) Pack(enc codec.Encoder, sink Sink, opts PackOptions) (PackStats, error) {
	var stats PackStats
	if int64(s.Samples.Len()) != s.SampleCount {
		return stats, errors.Wrapf(ErrSampleCountMismatch, "%s has %d samples, %d buffered",
			s.SourceName(), s.SampleCount, s.Samples.Len())
	}

	tmpl := s.Template
	if tmpl == nil {
		tmpl = &codec.Template{Identity: s.id, Quality: 'D'}
	}
	encoding := EncodingFor(s.Samples.Type())
	if opts.Encoding != nil {
		encoding = *opts.Encoding
	}

	chunk := opts.ChunkSamples
	for s.Samples.Len() > 0 {
		n := s.Samples.Len()
		if chunk <= 0 || chunk > n {
			chunk = n
		}

		res, err := enc.Encode(codec.EncodeRequest{
			Template:     tmpl,
			Samples:      s.Samples.Slice(0, chunk),
			Start:        s.Start,
			SampleRate:   s.SampleRate,
			RecordLength: opts.RecordLength,
			Encoding:     encoding,
			ByteOrder:    opts.ByteOrder,
			Flush:        opts.Flush && chunk == n,
		})
		if err != nil {
			return stats, errors.Wrapf(err, "packing %s", s.SourceName())
		}
		for k, rec := range res.Records {
			if err := sink.WriteRecord(rec); err != nil {
				stats.add(s.consumeRecords(res.Records[:k]))
				return stats, errors.Wrapf(err, "writing record of %s", s.SourceName())
			}
		}
		stats.Records += len(res.Records)

		if res.Consumed == 0 {
			if chunk == n {
				break
			}
			// Chunk too small to fill a record.
			chunk *= 2
			continue
		}
		s.advance(res.Consumed, res.NextStart)
		stats.Samples += res.Consumed
	}
	return stats, nil
}

// advance drops the first n samples and moves the start to next.
func (s *Segment) advance(n int, next codec.Time) {
	s.Samples.Drop(n)
	s.SampleCount -= int64(n)
	s.Start = next
}

// consumeRecords drops the samples carried by recs, which were packed
// from the front of s.
func (s *Segment) consumeRecords(recs [][]byte) PackStats {
	n := 0
	for _, rec := range recs {
		if h, _, err := codec.DecodeFixedHeader(rec); err == nil {
			n += int(h.NumSamples)
		}
	}
	s.advance(n, s.Start+codec.SampleOffset(int64(n), s.SampleRate))
	return PackStats{Records: len(recs), Samples: n}
}

// Pack packs every segment holding samples. It stops at the first error
// and returns what was packed until then.
func (g *Group) Pack(enc codec.Encoder, sink Sink, opts PackOptions) (PackStats, error) {
	began := time.Now()
	var stats PackStats
	defer func() {
		g.metrics.Packed(stats.Records, stats.Samples, time.Since(began))
	}()

	for _, s := range g.segments {
		if s.Samples.Len() == 0 {
			continue
		}
		st, err := s.Pack(enc, sink, opts)
		stats.add(st)
		if err != nil {
			return stats, err
		}
	}
	return stats, nil
}
