// Package angle maps encoder clock ticks onto the IRIG time base and from
// there onto rotation angle.
package angle

import (
	"errors"
	"fmt"
	"iter"
	"math"
)

// DefaultSlitCount is the number of optical slits on the encoder disk.
const DefaultSlitCount = 1140

// ErrDataLengthMismatch is returned when paired input series differ in
// length.
var ErrDataLengthMismatch = errors.New("angle: data length mismatch")

// Sample is one encoder reading placed on the IRIG time base.
type Sample struct {
	// Index is the position of the encoder sample in the input series.
	Index int
	Time  float64
	Angle float64
}

// FromTime converts an elapsed time to rotation angle in radians. The
// conversion assumes a constant angular rate.
func FromTime(t float64, slitCount float64) float64 {
	return t * 2000 * math.Pi / slitCount
}

// AnglesFromEncoderSamples interpolates every encoder clock value that falls
// inside an IRIG fiducial interval [irigClocks[i], irigClocks[i+1]) onto the
// IRIG time axis and converts the result to an angle.
//
// The encoder series is assumed sorted by clock. The returned sequence is
// lazy and single-use: the encoder cursor only moves forward, samples that
// fall before the current fiducial interval are skipped, and ranging over
// the sequence a second time resumes where the first pass stopped.
func AnglesFromEncoderSamples(irigTimes, irigClocks, encoderClocks, encoderCounts []float64, slitCount float64) (iter.Seq[Sample], error) {
	if len(irigTimes) != len(irigClocks) {
		return nil, fmt.Errorf("%w: %d irig times, %d irig clocks", ErrDataLengthMismatch, len(irigTimes), len(irigClocks))
	}
	if len(encoderClocks) != len(encoderCounts) {
		return nil, fmt.Errorf("%w: %d encoder clocks, %d encoder counts", ErrDataLengthMismatch, len(encoderClocks), len(encoderCounts))
	}
	if slitCount <= 0 {
		slitCount = DefaultSlitCount
	}

	fid, cur := 0, 0
	return func(yield func(Sample) bool) {
		for ; fid+1 < len(irigClocks); fid++ {
			lo, hi := irigClocks[fid], irigClocks[fid+1]
			t0, t1 := irigTimes[fid], irigTimes[fid+1]
			for cur < len(encoderClocks) && encoderClocks[cur] < hi {
				c := encoderClocks[cur]
				idx := cur
				cur++
				if c < lo {
					continue
				}
				t := t0 + (t1-t0)*(c-lo)/(hi-lo)
				if !yield(Sample{Index: idx, Time: t, Angle: FromTime(t, slitCount)}) {
					return
				}
			}
		}
	}, nil
}

// Collect drains seq into a slice.
func Collect(seq iter.Seq[Sample]) []Sample {
	var out []Sample
	for s := range seq {
		out = append(out, s)
	}
	return out
}
