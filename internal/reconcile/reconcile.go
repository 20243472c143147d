// Package reconcile rebuilds continuous counters from hardware counters
// that wrap or occasionally miss an overflow tick.
//
// All functions are pure: they never modify their input and always return a
// new slice of the same length. First differences are always taken on the
// input, never on partially corrected output.
package reconcile

const (
	// missedOverflowStep is the value of one overflow tick of the sender's
	// 16-bit capture counter.
	missedOverflowStep = 1 << 16

	// A first difference strictly between these bounds is a missed
	// overflow tick, not a full wrap and not jitter.
	missedOverflowUpper = -(1 << 12)
	missedOverflowLower = -(1 << 24)

	// SecondsPerDay is added after every midnight crossing of an
	// absolute-of-day time series.
	SecondsPerDay = 86400
)

// Unwrap treats seq as a counter that wraps modulo 2^widthBits. Every
// negative first difference adds 2^widthBits to that element and all
// following ones, cumulatively.
func Unwrap(seq []int64, widthBits uint) []int64 {
	return unwrapBy(seq, int64(1)<<widthBits)
}

// UnwrapDayBoundary unwraps an absolute-of-day seconds series across
// midnight by adding 86400 after each backwards step.
func UnwrapDayBoundary(seq []int64) []int64 {
	return unwrapBy(seq, SecondsPerDay)
}

func unwrapBy(seq []int64, step int64) []int64 {
	out := make([]int64, len(seq))
	var offset int64
	for i, v := range seq {
		if i > 0 && v-seq[i-1] < 0 {
			offset += step
		}
		out[i] = v + offset
	}
	return out
}

// FixMissedOverflow corrects single samples that are one overflow tick
// (2^16) too low. Only the flagged element is corrected; later elements are
// left alone, unlike Unwrap.
func FixMissedOverflow(seq []int64) []int64 {
	out := make([]int64, len(seq))
	copy(out, seq)
	for i := 1; i < len(seq); i++ {
		d := seq[i] - seq[i-1]
		if d > missedOverflowLower && d < missedOverflowUpper {
			out[i] += missedOverflowStep
		}
	}
	return out
}
