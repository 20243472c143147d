// Package network is the transport boundary of the acquisition program. It
// owns the UDP socket, waits a bounded time for each datagram and hands the
// received bytes to a Handler. It can also replay a packet capture through
// the same Handler.
package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/banshee-data/encoderdaq/internal/monitoring"
	"github.com/banshee-data/encoderdaq/internal/timeutil"
)

const (
	DefaultAddress     = "192.168.2.54:8080"
	DefaultChunkSize   = 8196
	DefaultReadTimeout = 2 * time.Second
)

// Handler consumes received chunks. daq.Session implements it.
type Handler interface {
	// HandleChunk processes one datagram. A returned error is logged and
	// counted; it never stops the listener.
	HandleChunk(chunk []byte) error
	// Done reports whether the run is complete.
	Done() bool
}

// ListenerConfig configures a Listener. Zero values select defaults.
type ListenerConfig struct {
	Address     string
	ChunkSize   int
	ReadTimeout time.Duration
	RcvBuf      int
	Sockets     UDPSocketFactory
	Clock       timeutil.Clock
	Stats       StatsRecorder
}

// Listener receives datagrams on one local endpoint.
type Listener struct {
	address     string
	chunkSize   int
	readTimeout time.Duration
	rcvBuf      int
	sockets     UDPSocketFactory
	clock       timeutil.Clock
	stats       StatsRecorder
}

// NewListener applies defaults to cfg.
func NewListener(cfg ListenerConfig) *Listener {
	l := &Listener{
		address:     cfg.Address,
		chunkSize:   cfg.ChunkSize,
		readTimeout: cfg.ReadTimeout,
		rcvBuf:      cfg.RcvBuf,
		sockets:     cfg.Sockets,
		clock:       cfg.Clock,
		stats:       cfg.Stats,
	}
	if l.address == "" {
		l.address = DefaultAddress
	}
	if l.chunkSize <= 0 {
		l.chunkSize = DefaultChunkSize
	}
	if l.readTimeout <= 0 {
		l.readTimeout = DefaultReadTimeout
	}
	if l.sockets == nil {
		l.sockets = RealUDPSocketFactory{}
	}
	if l.clock == nil {
		l.clock = timeutil.RealClock{}
	}
	if l.stats == nil {
		l.stats = noopStats{}
	}
	return l
}

// Run binds the socket and feeds h until h reports Done, ctx is cancelled,
// or the socket fails. The socket is closed on every return path.
func (l *Listener) Run(ctx context.Context, h Handler) error {
	addr, err := net.ResolveUDPAddr("udp", l.address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address %s: %w", l.address, err)
	}
	sock, err := l.sockets.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP address %s: %w", l.address, err)
	}
	defer sock.Close()

	if l.rcvBuf > 0 {
		if err := sock.SetReadBuffer(l.rcvBuf); err != nil {
			monitoring.Logf("Warning: failed to set UDP receive buffer to %d: %v", l.rcvBuf, err)
		}
	}
	monitoring.Logf("Listening on %s (chunk %d bytes, timeout %s)", sock.LocalAddr(), l.chunkSize, l.readTimeout)

	buf := make([]byte, l.chunkSize)
	for !h.Done() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := sock.SetReadDeadline(l.clock.Now().Add(l.readTimeout)); err != nil {
			return fmt.Errorf("set read deadline: %w", err)
		}

		n, from, err := sock.ReadFromUDP(buf)
		if err != nil {
			var netErr net.Error
			switch {
			case errors.As(err, &netErr) && netErr.Timeout():
				l.stats.AddTimeout()
				monitoring.Logf("Looking for data ...")
			case ctx.Err() != nil:
				return ctx.Err()
			case errors.Is(err, net.ErrClosed):
				return err
			default:
				monitoring.Logf("UDP read error: %v", err)
			}
			continue
		}

		l.stats.AddPacket(n)
		if err := h.HandleChunk(buf[:n]); err != nil {
			l.stats.AddError(err)
			monitoring.Logf("Dropped datagram from %v: %v", from, err)
		}
	}
	return nil
}
