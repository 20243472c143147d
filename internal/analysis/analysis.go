// Package analysis runs the end-of-run pipeline: it reconciles the counter
// series collected by a session, places every encoder sample on the IRIG
// time base and summarises the resulting rotation.
package analysis

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/encoderdaq/internal/angle"
	"github.com/banshee-data/encoderdaq/internal/daq"
	"github.com/banshee-data/encoderdaq/internal/daq/wire"
	"github.com/banshee-data/encoderdaq/internal/reconcile"
)

// ErrMissingIrig is returned when a run holds fewer than two IRIG fiducials.
var ErrMissingIrig = errors.New("analysis: need at least two IRIG packets")

// Result holds the reconciled series of one run and the angle samples
// derived from them.
type Result struct {
	EncoderClock []int64 // one entry per encoder sample, 150 per packet
	EncoderIndex []int64
	IrigClock    []int64 // one entry per IRIG packet
	IrigTime     []int64
	Samples      []angle.Sample
}

// Process reconciles the series and converts encoder samples to angles.
// Times and clocks are made relative to the first IRIG fiducial.
func Process(encoders []daq.EncoderRecord, irigs []daq.IrigRecord, slitCount float64) (*Result, error) {
	clocks := make([]int64, 0, len(encoders)*wire.EncoderSamples)
	index := make([]int64, 0, cap(clocks))
	for i := range encoders {
		for j := range encoders[i].ClockCounts {
			clocks = append(clocks, int64(encoders[i].ClockCounts[j]))
			index = append(index, int64(encoders[i].AbsoluteIndex[j]))
		}
	}

	edge := make([]int64, len(irigs))
	utc := make([]int64, len(irigs))
	for i := range irigs {
		edge[i] = int64(irigs[i].RisingEdgeClock)
		utc[i] = irigs[i].UTCSeconds
	}

	res := &Result{
		EncoderClock: reconcile.Unwrap(reconcile.FixMissedOverflow(clocks), 32),
		EncoderIndex: reconcile.Unwrap(index, 16),
		IrigClock:    reconcile.Unwrap(edge, 32),
		IrigTime:     reconcile.UnwrapDayBoundary(utc),
	}
	if len(irigs) < 2 {
		return res, fmt.Errorf("%w: have %d", ErrMissingIrig, len(irigs))
	}

	t0, c0 := res.IrigTime[0], res.IrigClock[0]
	seq, err := angle.AnglesFromEncoderSamples(
		relative(res.IrigTime, t0),
		relative(res.IrigClock, c0),
		relative(res.EncoderClock, c0),
		relative(res.EncoderIndex, 0),
		slitCount,
	)
	if err != nil {
		return res, err
	}
	res.Samples = angle.Collect(seq)
	return res, nil
}

func relative(seq []int64, base int64) []float64 {
	out := make([]float64, len(seq))
	for i, v := range seq {
		out[i] = float64(v - base)
	}
	return out
}

// Summary describes the rotation seen during a run.
type Summary struct {
	Samples       int
	Duration      float64 // seconds between first and last sample
	Rate          float64 // radians per second from a least-squares fit
	Intercept     float64
	RMSJitter     float64 // radians about the fitted line
	MeanSpacing   float64 // seconds between consecutive samples
	SpacingStdDev float64
}

// Summarize fits angle against time. Fewer than two samples yield a summary
// with only the count set.
func Summarize(samples []angle.Sample) Summary {
	sum := Summary{Samples: len(samples)}
	if len(samples) < 2 {
		return sum
	}

	times := make([]float64, len(samples))
	angles := make([]float64, len(samples))
	for i, s := range samples {
		times[i] = s.Time
		angles[i] = s.Angle
	}

	sum.Duration = floats.Max(times) - floats.Min(times)
	sum.Intercept, sum.Rate = stat.LinearRegression(times, angles, nil, false)

	residuals := make([]float64, len(samples))
	for i, t := range times {
		residuals[i] = angles[i] - (sum.Intercept + sum.Rate*t)
	}
	sum.RMSJitter = math.Sqrt(floats.Dot(residuals, residuals) / float64(len(residuals)))

	spacing := make([]float64, len(times)-1)
	floats.SubTo(spacing, times[1:], times[:len(times)-1])
	if len(spacing) > 1 {
		sum.MeanSpacing, sum.SpacingStdDev = stat.MeanStdDev(spacing, nil)
	} else {
		sum.MeanSpacing = spacing[0]
	}
	return sum
}

// String formats the summary for the run log.
func (s Summary) String() string {
	return fmt.Sprintf("%d samples over %.3fs, rate %.6f rad/s, jitter %.3g rad, spacing %.3g±%.2g s",
		s.Samples, s.Duration, s.Rate, s.RMSJitter, s.MeanSpacing, s.SpacingStdDev)
}
