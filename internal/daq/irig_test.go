package daq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/encoderdaq/internal/daq/wire"
)

func irigPayload(h, m, s uint32, edge uint64) []byte {
	var p wire.IrigPacket
	p.SetTime(h, m, s)
	p.RisingEdgeLow = uint32(edge)
	p.RisingEdgeOverflow = uint32(edge >> 32)
	for i := range p.SyncLow {
		p.SyncLow[i] = uint32(edge) + uint32(i)*1000
		p.SyncOverflow[i] = uint32(edge >> 32)
	}
	return p.Encode()[wire.HeaderSize:]
}

func TestDecodeIrig_SetsStartOnce(t *testing.T) {
	var state RunClockState

	rec, elapsed, err := DecodeIrig(irigPayload(1, 0, 0, 5), &state)
	require.NoError(t, err)
	assert.Equal(t, RunClockState{HasStart: true, StartHours: 1}, state)
	assert.Equal(t, int64(3600), rec.UTCSeconds)
	assert.Equal(t, Elapsed{}, elapsed)
	assert.Equal(t, uint64(5), rec.RisingEdgeClock)
	assert.Equal(t, uint64(5+9000), rec.SyncClocks[9])

	rec, elapsed, err = DecodeIrig(irigPayload(1, 2, 3, 1<<32+7), &state)
	require.NoError(t, err)
	assert.Equal(t, 1, state.StartHours, "start is immutable")
	assert.Equal(t, int64(3600+120+3), rec.UTCSeconds)
	assert.Equal(t, Elapsed{Minutes: 2, Seconds: 3}, elapsed)
	assert.Equal(t, uint64(1<<32+7), rec.RisingEdgeClock)
}

func TestElapsedSince_Borrows(t *testing.T) {
	tests := []struct {
		name        string
		start       [3]int
		now         [3]int
		wantElapsed Elapsed
	}{
		{"same", [3]int{10, 0, 0}, [3]int{10, 0, 0}, Elapsed{}},
		{"seconds borrow", [3]int{10, 0, 50}, [3]int{10, 1, 10}, Elapsed{0, 0, 20}},
		{"minutes borrow", [3]int{10, 50, 0}, [3]int{11, 10, 0}, Elapsed{0, 20, 0}},
		{"midnight", [3]int{23, 59, 30}, [3]int{0, 0, 10}, Elapsed{0, 0, 40}},
		{"dm zero with negative seconds", [3]int{10, 5, 30}, [3]int{11, 5, 10}, Elapsed{0, 59, 40}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &RunClockState{HasStart: true, StartHours: tt.start[0], StartMinutes: tt.start[1], StartSeconds: tt.start[2]}
			got := elapsedSince(state, tt.now[0], tt.now[1], tt.now[2])
			assert.Equal(t, tt.wantElapsed, got)
		})
	}
}

func TestDecodeIrig_Short(t *testing.T) {
	var state RunClockState
	_, _, err := DecodeIrig(make([]byte, 10), &state)
	assert.Error(t, err)
	assert.False(t, state.HasStart)
}

func TestElapsedString(t *testing.T) {
	assert.Equal(t, "1:2:3", Elapsed{1, 2, 3}.String())
}
