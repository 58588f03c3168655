// Package trace assembles records into continuous segments.
//
// A Group holds segments keyed by channel identity. Records are merged
// into the segment they are adjacent to within a time and sample rate
// tolerance, segments that become adjacent are healed together, and
// buffered samples can be packed back into records.
package trace
