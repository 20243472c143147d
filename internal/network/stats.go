package network

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/banshee-data/encoderdaq/internal/daq/framer"
	"github.com/banshee-data/encoderdaq/internal/monitoring"
	"github.com/banshee-data/encoderdaq/internal/timeutil"
)

// StatsRecorder receives transport events from the listener and the PCAP
// replayer.
type StatsRecorder interface {
	AddPacket(bytes int)
	AddTimeout()
	AddError(err error)
}

type noopStats struct{}

func (noopStats) AddPacket(int)  {}
func (noopStats) AddTimeout()    {}
func (noopStats) AddError(error) {}

// StatsSnapshot is one reporting interval worth of counts.
type StatsSnapshot struct {
	Packets       int64
	Bytes         int64
	TimingFaults  int64
	FramingErrors int64
	OtherErrors   int64
	Timeouts      int64
	Duration      time.Duration
}

// PacketStats accumulates counts between reports. It is safe for
// concurrent use.
type PacketStats struct {
	clock timeutil.Clock

	mu        sync.Mutex
	cur       StatsSnapshot
	lastReset time.Time
}

// NewPacketStats starts the first interval now.
func NewPacketStats(clock timeutil.Clock) *PacketStats {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &PacketStats{clock: clock, lastReset: clock.Now()}
}

func (ps *PacketStats) AddPacket(bytes int) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.cur.Packets++
	ps.cur.Bytes += int64(bytes)
}

func (ps *PacketStats) AddTimeout() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.cur.Timeouts++
}

// AddError classifies a handler error.
func (ps *PacketStats) AddError(err error) {
	var fe *framer.FramingError
	ps.mu.Lock()
	defer ps.mu.Unlock()
	switch {
	case errors.Is(err, framer.ErrSenderTimingFault):
		ps.cur.TimingFaults++
	case errors.As(err, &fe), errors.Is(err, framer.ErrNeedMoreData):
		ps.cur.FramingErrors++
	default:
		ps.cur.OtherErrors++
	}
}

// GetAndReset returns the current interval and starts a new one.
func (ps *PacketStats) GetAndReset() StatsSnapshot {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	now := ps.clock.Now()
	snap := ps.cur
	snap.Duration = now.Sub(ps.lastReset)
	ps.cur = StatsSnapshot{}
	ps.lastReset = now
	return snap
}

// String renders per-second rates plus any non-zero error counts.
func (s StatsSnapshot) String() string {
	secs := s.Duration.Seconds()
	if secs <= 0 {
		secs = 1
	}
	msg := fmt.Sprintf("Encoder stats (/sec): %.3f MB, %.1f packets",
		float64(s.Bytes)/secs/(1024*1024), float64(s.Packets)/secs)
	if s.TimingFaults > 0 {
		msg += fmt.Sprintf(", %d timing faults", s.TimingFaults)
	}
	if s.FramingErrors > 0 {
		msg += fmt.Sprintf(", %d framing errors", s.FramingErrors)
	}
	if s.OtherErrors > 0 {
		msg += fmt.Sprintf(", %d other errors", s.OtherErrors)
	}
	if s.Timeouts > 0 {
		msg += fmt.Sprintf(", %d idle timeouts", s.Timeouts)
	}
	return msg
}

// LogStats logs and resets the current interval. Quiet intervals with no
// traffic and no timeouts are not logged.
func (ps *PacketStats) LogStats() {
	snap := ps.GetAndReset()
	if snap.Packets == 0 && snap.Timeouts == 0 {
		return
	}
	monitoring.Logf("%s", snap)
}

// Run logs statistics every interval until ctx is cancelled.
func (ps *PacketStats) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := ps.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
			ps.LogStats()
		}
	}
}
