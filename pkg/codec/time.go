package codec

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// HPTModulus is the number of Time ticks per second.
const HPTModulus = 1000000

// Time is a high precision timestamp: microseconds since the Unix epoch.
type Time int64

// TimeError is returned by conversions that cannot produce a time.
// It corresponds to 1902-01-01T00:00:00.000000.
const TimeError Time = -2145916800000000

// BTime is the binary start time structure stored in the fixed header.
type BTime struct {
	Year   uint16
	Day    uint16 // day of year, 1-366
	Hour   uint8
	Minute uint8
	Second uint8
	Unused uint8
	Fract  uint16 // 0.0001 seconds
}

// Time converts the binary time to a Time.
func (b BTime) Time() Time {
	t := time.Date(int(b.Year), time.January, 1, int(b.Hour), int(b.Minute), int(b.Second), 0, time.UTC)
	t = t.AddDate(0, 0, int(b.Day)-1)
	return Time(t.Unix()*HPTModulus + int64(b.Fract)*100)
}

// TimeFromStd converts a standard library time.
func TimeFromStd(t time.Time) Time {
	return Time(t.UnixMicro())
}

// Std returns the time as a UTC time.Time.
func (t Time) Std() time.Time {
	return time.UnixMicro(int64(t)).UTC()
}

// BTime splits t into a binary time and the microsecond remainder that
// does not fit into the 0.0001 second fraction field.
func (t Time) BTime() (BTime, int8) {
	st := t.Std()
	usec := st.Nanosecond() / 1000

	return BTime{
		Year:   uint16(st.Year()),
		Day:    uint16(st.YearDay()),
		Hour:   uint8(st.Hour()),
		Minute: uint8(st.Minute()),
		Second: uint8(st.Second()),
		Fract:  uint16(usec / 100),
	}, int8(usec % 100)
}

// Epoch returns t as floating point seconds since the Unix epoch.
func (t Time) Epoch() float64 {
	return float64(t) / HPTModulus
}

// SEEDString formats t as YYYY,DDD,HH:MM:SS.FFFFFF.
func (t Time) SEEDString() string {
	st := t.Std()
	return fmt.Sprintf("%04d,%03d,%02d:%02d:%02d.%06d",
		st.Year(), st.YearDay(), st.Hour(), st.Minute(), st.Second(), st.Nanosecond()/1000)
}

// ISOString formats t as YYYY-MM-DDTHH:MM:SS.FFFFFF.
func (t Time) ISOString() string {
	st := t.Std()
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d.%06d",
		st.Year(), int(st.Month()), st.Day(), st.Hour(), st.Minute(), st.Second(), st.Nanosecond()/1000)
}

var timeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006,002,15:04:05",
	"2006-01-02",
	"2006,002",
}

// ParseTime parses either the ISO or the SEED string form, with or
// without fractional seconds.
func ParseTime(s string) (Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return TimeFromStd(t), nil
		}
	}
	return TimeError, errors.Errorf("cannot parse time %q", s)
}

func (t Time) String() string {
	return t.ISOString()
}

// Seconds converts a tick difference into seconds.
func Seconds(d Time) float64 {
	return float64(d) / HPTModulus
}

// SampleOffset returns the time covered by n sample periods at rate.
func SampleOffset(n int64, rate float64) Time {
	if rate <= 0 || n == 0 {
		return 0
	}
	return Time(float64(n)/rate*HPTModulus + 0.5)
}
