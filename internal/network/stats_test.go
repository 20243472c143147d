package network

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/encoderdaq/internal/daq/framer"
	"github.com/banshee-data/encoderdaq/internal/testutil"
	"github.com/banshee-data/encoderdaq/internal/timeutil"
)

func TestPacketStats_GetAndReset(t *testing.T) {
	clock := timeutil.NewMockClock(t0)
	ps := NewPacketStats(clock)

	ps.AddPacket(1 << 20)
	ps.AddPacket(1 << 20)
	ps.AddTimeout()
	clock.Advance(time.Second)

	snap := ps.GetAndReset()
	assert.Equal(t, StatsSnapshot{Packets: 2, Bytes: 2 << 20, Timeouts: 1, Duration: time.Second}, snap)
	assert.Equal(t, "Encoder stats (/sec): 2.000 MB, 2.0 packets, 1 idle timeouts", snap.String())

	clock.Advance(time.Second)
	assert.Equal(t, StatsSnapshot{Duration: time.Second}, ps.GetAndReset())
}

func TestPacketStats_AddErrorClassifies(t *testing.T) {
	ps := NewPacketStats(timeutil.NewMockClock(t0))
	ps.AddError(framer.ErrSenderTimingFault)
	ps.AddError(&framer.FramingError{Kind: framer.UnknownHeader, Header: 0xDEAD})
	ps.AddError(fmt.Errorf("wrapped: %w", framer.ErrNeedMoreData))
	ps.AddError(errors.New("disk full"))

	snap := ps.GetAndReset()
	assert.Equal(t, int64(1), snap.TimingFaults)
	assert.Equal(t, int64(2), snap.FramingErrors)
	assert.Equal(t, int64(1), snap.OtherErrors)
	assert.Contains(t, snap.String(), "1 timing faults, 2 framing errors, 1 other errors")
}

func TestPacketStats_LogStatsSkipsQuietIntervals(t *testing.T) {
	logs := testutil.CaptureLogs(t)
	ps := NewPacketStats(timeutil.NewMockClock(t0))

	ps.LogStats()
	assert.Empty(t, logs.Lines())

	ps.AddPacket(10)
	ps.LogStats()
	assert.Equal(t, 1, logs.Count("Encoder stats"))
}

func TestPacketStats_Run(t *testing.T) {
	logs := testutil.CaptureLogs(t)
	clock := timeutil.NewMockClock(t0)
	ps := NewPacketStats(clock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ps.Run(ctx, time.Minute) }()

	require.Eventually(t, func() bool { return len(clock.Tickers()) == 1 }, time.Second, time.Millisecond)
	ps.AddPacket(100)
	clock.Advance(time.Minute)
	require.Eventually(t, func() bool { return logs.Count("Encoder stats") == 1 }, time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.True(t, clock.Tickers()[0].Stopped())
}
