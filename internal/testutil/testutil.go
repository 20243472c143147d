// Package testutil provides shared test fixtures: synthetic sender packets
// and helpers that silence or capture the diagnostic logger.
package testutil

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/banshee-data/encoderdaq/internal/daq/wire"
	"github.com/banshee-data/encoderdaq/internal/monitoring"
)

// IrigPacket builds a complete IRIG datagram for the given time of day.
func IrigPacket(hours, minutes, seconds uint32, risingEdge uint64) []byte {
	var p wire.IrigPacket
	p.SetTime(hours, minutes, seconds)
	p.RisingEdgeLow = uint32(risingEdge)
	p.RisingEdgeOverflow = uint32(risingEdge >> 32)
	for i := range p.SyncLow {
		p.SyncLow[i] = uint32(risingEdge) + uint32(i)*1000
		p.SyncOverflow[i] = uint32(risingEdge >> 32)
	}
	return p.Encode()
}

// EncoderPacket builds a complete encoder datagram whose clocks start at
// firstClock and advance by step per sample.
func EncoderPacket(firstClock uint64, step uint64, firstIndex uint32) []byte {
	var p wire.EncoderPacket
	for i := range p.ClockLow {
		c := firstClock + uint64(i)*step
		p.ClockLow[i] = uint32(c)
		p.ClockOverflow[i] = uint32(c >> 32)
		p.AbsoluteIndex[i] = firstIndex + uint32(i)
	}
	p.Quadrature = [wire.QuadratureReadings]uint32{1, 2, 3}
	return p.Encode()
}

// Quiet mutes monitoring.Logf for the duration of the test.
func Quiet(t testing.TB) {
	t.Helper()
	prev := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(prev) })
}

// LogBuffer collects formatted log lines. It is safe for concurrent use.
type LogBuffer struct {
	mu    sync.Mutex
	lines []string
}

func (b *LogBuffer) logf(format string, v ...interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = append(b.lines, fmt.Sprintf(format, v...))
}

// Lines returns a copy of the captured lines.
func (b *LogBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.lines...)
}

// Count returns how many captured lines contain substr.
func (b *LogBuffer) Count(substr string) int {
	n := 0
	for _, l := range b.Lines() {
		if strings.Contains(l, substr) {
			n++
		}
	}
	return n
}

// CaptureLogs redirects monitoring.Logf into a LogBuffer until the test
// ends.
func CaptureLogs(t testing.TB) *LogBuffer {
	t.Helper()
	prev := monitoring.Logf
	buf := &LogBuffer{}
	monitoring.SetLogger(buf.logf)
	t.Cleanup(func() { monitoring.SetLogger(prev) })
	return buf
}
