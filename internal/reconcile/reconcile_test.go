package reconcile

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestUnwrap(t *testing.T) {
	tests := []struct {
		name  string
		seq   []int64
		width uint
		want  []int64
	}{
		{"empty", nil, 8, []int64{}},
		{"single", []int64{3}, 8, []int64{3}},
		{"one wrap", []int64{5, 6, 2, 9}, 8, []int64{5, 6, 258, 265}},
		{"two wraps accumulate", []int64{250, 10, 200, 5}, 8, []int64{250, 266, 456, 517}},
		{"flat stays flat", []int64{7, 7, 7}, 16, []int64{7, 7, 7}},
		{"32-bit wrap", []int64{1<<32 - 10, 5}, 32, []int64{1<<32 - 10, 1<<32 + 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Unwrap(tt.seq, tt.width)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Unwrap mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUnwrap_DoesNotMutateInput(t *testing.T) {
	in := []int64{5, 6, 2, 9}
	_ = Unwrap(in, 8)
	assert.Equal(t, []int64{5, 6, 2, 9}, in)
}

func TestUnwrap_NonDecreasingAndIdempotent(t *testing.T) {
	seqs := [][]int64{
		{5, 6, 2, 9},
		{0, 100, 200, 255, 0, 10},
		{1, 2, 3, 4},
		{200, 201, 202, 3, 4, 5, 6},
	}
	for _, seq := range seqs {
		once := Unwrap(seq, 8)
		assert.True(t, sort.SliceIsSorted(once, func(i, j int) bool { return once[i] < once[j] }), "%v not sorted", once)
		assert.Equal(t, once, Unwrap(once, 8), "re-unwrapping %v changed it", seq)
	}
}

func TestUnwrapDayBoundary(t *testing.T) {
	got := UnwrapDayBoundary([]int64{86398, 86399, 0, 1})
	assert.Equal(t, []int64{86398, 86399, 86400, 86401}, got)
	assert.Equal(t, got, UnwrapDayBoundary(got))
}

func TestFixMissedOverflow(t *testing.T) {
	base := int64(1_000_000)
	tests := []struct {
		name string
		d    int64
		fix  bool
	}{
		{"small jitter", -1000, false},
		{"just below threshold", -4097, true},
		{"exactly -2^12", -4096, false},
		{"just above threshold", -4095, false},
		{"typical missed tick", -65536 + 300, true},
		{"exactly -2^24", -(1 << 24), false},
		{"just inside lower bound", -(1 << 24) + 1, true},
		{"full wrap", -(1 << 30), false},
		{"positive", 500, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq := []int64{base, base + tt.d, base + tt.d + 10}
			got := FixMissedOverflow(seq)
			want := []int64{base, base + tt.d, base + tt.d + 10}
			if tt.fix {
				want[1] += 1 << 16
			}
			assert.Equal(t, want, got)
			assert.Equal(t, []int64{base, base + tt.d, base + tt.d + 10}, seq, "input mutated")
		})
	}
}

func TestFixMissedOverflow_BoundaryOutcomesDiffer(t *testing.T) {
	a := FixMissedOverflow([]int64{10000, 10000 - 4097})
	b := FixMissedOverflow([]int64{10000, 10000 - 4095})
	assert.NotEqual(t, a[1]-(10000-4097), b[1]-(10000-4095))
}

func TestFixMissedOverflow_IdempotentOnMonotonic(t *testing.T) {
	seq := []int64{0, 100, 65636, 65736, 131272}
	assert.Equal(t, seq, FixMissedOverflow(seq))
}

func TestFixMissedOverflow_OnlyFlaggedElement(t *testing.T) {
	// A sample 2^16 low in the middle of a ramp: only it moves; the jump
	// back up after it is positive and untouched.
	seq := []int64{100000, 100100, 100200 - 65536, 100300}
	got := FixMissedOverflow(seq)
	assert.Equal(t, []int64{100000, 100100, 100200, 100300}, got)
}
