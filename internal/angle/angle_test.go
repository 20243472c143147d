package angle

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnglesFromEncoderSamples_Midpoint(t *testing.T) {
	seq, err := AnglesFromEncoderSamples([]float64{0, 10}, []float64{0, 100}, []float64{50}, []float64{0}, DefaultSlitCount)
	require.NoError(t, err)

	got := Collect(seq)
	require.Len(t, got, 1)
	assert.InDelta(t, 5.0, got[0].Time, 1e-12)
	assert.InDelta(t, 5*2000*math.Pi/1140, got[0].Angle, 1e-9)
	assert.Equal(t, 0, got[0].Index)
}

func TestAnglesFromEncoderSamples_LengthMismatch(t *testing.T) {
	_, err := AnglesFromEncoderSamples([]float64{0, 10}, []float64{0}, nil, nil, DefaultSlitCount)
	assert.ErrorIs(t, err, ErrDataLengthMismatch)

	_, err = AnglesFromEncoderSamples([]float64{0}, []float64{0}, []float64{1, 2}, []float64{1}, DefaultSlitCount)
	assert.ErrorIs(t, err, ErrDataLengthMismatch)
}

func TestAnglesFromEncoderSamples_HalfOpenIntervals(t *testing.T) {
	irigTimes := []float64{0, 1, 2}
	irigClocks := []float64{0, 100, 200}
	enc := []float64{0, 100, 150, 200, 250}

	seq, err := AnglesFromEncoderSamples(irigTimes, irigClocks, enc, make([]float64, len(enc)), DefaultSlitCount)
	require.NoError(t, err)

	got := Collect(seq)
	// 200 is the upper bound of the last interval and 250 lies beyond it.
	require.Len(t, got, 3)
	assert.Equal(t, []int{0, 1, 2}, []int{got[0].Index, got[1].Index, got[2].Index})
	assert.InDelta(t, 0.0, got[0].Time, 1e-12)
	assert.InDelta(t, 1.0, got[1].Time, 1e-12)
	assert.InDelta(t, 1.5, got[2].Time, 1e-12)
}

func TestAnglesFromEncoderSamples_SkipsBeforeFirstFiducial(t *testing.T) {
	seq, err := AnglesFromEncoderSamples([]float64{0, 10}, []float64{100, 200}, []float64{10, 50, 150}, make([]float64, 3), DefaultSlitCount)
	require.NoError(t, err)

	got := Collect(seq)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Index)
	assert.InDelta(t, 5.0, got[0].Time, 1e-12)
}

func TestAnglesFromEncoderSamples_CursorNeverMovesBack(t *testing.T) {
	// 40 arrives after the cursor has passed the first interval.
	enc := []float64{50, 150, 40, 160}
	seq, err := AnglesFromEncoderSamples([]float64{0, 1, 2}, []float64{0, 100, 200}, enc, make([]float64, len(enc)), DefaultSlitCount)
	require.NoError(t, err)

	var idx []int
	for s := range seq {
		idx = append(idx, s.Index)
	}
	assert.Equal(t, []int{0, 1, 3}, idx)
}

func TestAnglesFromEncoderSamples_SinglePass(t *testing.T) {
	seq, err := AnglesFromEncoderSamples([]float64{0, 10}, []float64{0, 100}, []float64{10, 20, 30}, make([]float64, 3), DefaultSlitCount)
	require.NoError(t, err)

	var first []int
	for s := range seq {
		first = append(first, s.Index)
		if len(first) == 2 {
			break
		}
	}
	assert.Equal(t, []int{0, 1}, first)

	rest := Collect(seq)
	require.Len(t, rest, 1)
	assert.Equal(t, 2, rest[0].Index)

	assert.Empty(t, Collect(seq))
}

func TestAnglesFromEncoderSamples_NoFiducialPairs(t *testing.T) {
	seq, err := AnglesFromEncoderSamples([]float64{3}, []float64{30}, []float64{30}, []float64{0}, DefaultSlitCount)
	require.NoError(t, err)
	assert.Empty(t, Collect(seq))
}

func TestFromTime(t *testing.T) {
	assert.InDelta(t, 2000*math.Pi/570, FromTime(1, 570), 1e-12)
	assert.Zero(t, FromTime(0, DefaultSlitCount))
}
