package codec

import (
	"fmt"

	"github.com/pkg/errors"
)

// SampleType tags the element type of a sample buffer.
type SampleType byte

const (
	SampleNone   SampleType = 0
	SampleText   SampleType = 'a'
	SampleInt    SampleType = 'i'
	SampleFloat  SampleType = 'f'
	SampleDouble SampleType = 'd'
)

// Size returns the size in bytes of one sample of type t.
func (t SampleType) Size() int {
	switch t {
	case SampleText:
		return 1
	case SampleInt, SampleFloat:
		return 4
	case SampleDouble:
		return 8
	}
	return 0
}

func (t SampleType) String() string {
	if t == SampleNone {
		return "none"
	}
	return string(rune(t))
}

// ErrSampleTypeMismatch is returned when buffers of different sample
// types are combined.
var ErrSampleTypeMismatch = errors.New("sample type mismatch")

// Samples is a homogeneous sample buffer. The zero value is an empty
// buffer with no type; it adopts the type of the first buffer appended.
type Samples struct {
	typ     SampleType
	text    []byte
	ints    []int32
	floats  []float32
	doubles []float64
}

func TextSamples(v []byte) Samples      { return Samples{typ: SampleText, text: v} }
func IntSamples(v []int32) Samples      { return Samples{typ: SampleInt, ints: v} }
func FloatSamples(v []float32) Samples  { return Samples{typ: SampleFloat, floats: v} }
func DoubleSamples(v []float64) Samples { return Samples{typ: SampleDouble, doubles: v} }

// Type returns the element type, SampleNone for an untyped buffer.
func (s Samples) Type() SampleType { return s.typ }

// Len returns the number of samples held.
func (s Samples) Len() int {
	switch s.typ {
	case SampleText:
		return len(s.text)
	case SampleInt:
		return len(s.ints)
	case SampleFloat:
		return len(s.floats)
	case SampleDouble:
		return len(s.doubles)
	}
	return 0
}

func (s Samples) Text() []byte       { return s.text }
func (s Samples) Ints() []int32      { return s.ints }
func (s Samples) Floats() []float32  { return s.floats }
func (s Samples) Doubles() []float64 { return s.doubles }

// Slice returns samples [i, j) sharing storage with s.
func (s Samples) Slice(i, j int) Samples {
	out := Samples{typ: s.typ}
	switch s.typ {
	case SampleText:
		out.text = s.text[i:j]
	case SampleInt:
		out.ints = s.ints[i:j]
	case SampleFloat:
		out.floats = s.floats[i:j]
	case SampleDouble:
		out.doubles = s.doubles[i:j]
	}
	return out
}

func (s *Samples) compatible(o Samples) error {
	if o.typ == SampleNone || s.typ == SampleNone || s.typ == o.typ {
		return nil
	}
	return errors.Wrapf(ErrSampleTypeMismatch, "%s and %s", s.typ, o.typ)
}

// Append adds o after the samples in s. An untyped s adopts the type of
// o. On error s is unchanged.
func (s *Samples) Append(o Samples) error {
	if err := s.compatible(o); err != nil {
		return err
	}
	if o.typ == SampleNone {
		return nil
	}
	s.typ = o.typ
	switch o.typ {
	case SampleText:
		s.text = append(s.text, o.text...)
	case SampleInt:
		s.ints = append(s.ints, o.ints...)
	case SampleFloat:
		s.floats = append(s.floats, o.floats...)
	case SampleDouble:
		s.doubles = append(s.doubles, o.doubles...)
	}
	return nil
}

// Prepend inserts o before the samples in s. On error s is unchanged.
func (s *Samples) Prepend(o Samples) error {
	if err := s.compatible(o); err != nil {
		return err
	}
	if o.typ == SampleNone {
		return nil
	}
	s.typ = o.typ
	switch o.typ {
	case SampleText:
		s.text = append(append(make([]byte, 0, len(o.text)+len(s.text)), o.text...), s.text...)
	case SampleInt:
		s.ints = append(append(make([]int32, 0, len(o.ints)+len(s.ints)), o.ints...), s.ints...)
	case SampleFloat:
		s.floats = append(append(make([]float32, 0, len(o.floats)+len(s.floats)), o.floats...), s.floats...)
	case SampleDouble:
		s.doubles = append(append(make([]float64, 0, len(o.doubles)+len(s.doubles)), o.doubles...), s.doubles...)
	}
	return nil
}

// Drop removes the first n samples, moving the remainder to the front
// of the existing storage.
func (s *Samples) Drop(n int) {
	if n <= 0 {
		return
	}
	if n >= s.Len() {
		n = s.Len()
	}
	switch s.typ {
	case SampleText:
		s.text = s.text[:copy(s.text, s.text[n:])]
	case SampleInt:
		s.ints = s.ints[:copy(s.ints, s.ints[n:])]
	case SampleFloat:
		s.floats = s.floats[:copy(s.floats, s.floats[n:])]
	case SampleDouble:
		s.doubles = s.doubles[:copy(s.doubles, s.doubles[n:])]
	}
}

// Format writes sample i in the listing style used by the CLI.
func (s Samples) Format(i int) string {
	switch s.typ {
	case SampleText:
		return string(s.text[i])
	case SampleInt:
		return fmt.Sprintf("%d", s.ints[i])
	case SampleFloat:
		return fmt.Sprintf("%g", s.floats[i])
	case SampleDouble:
		return fmt.Sprintf("%g", s.doubles[i])
	}
	return ""
}
