package daq

import (
	"errors"
	"fmt"

	"github.com/banshee-data/encoderdaq/internal/daq/framer"
	"github.com/banshee-data/encoderdaq/internal/daq/wire"
	"github.com/banshee-data/encoderdaq/internal/monitoring"
)

// EncoderRecord is the session's view of one encoder packet.
type EncoderRecord struct {
	ClockCounts   [wire.EncoderSamples]uint64
	AbsoluteIndex [wire.EncoderSamples]uint32
	Quadrature    [wire.QuadratureReadings]uint32
}

// NewEncoderRecord derives the widened clock counts from a decoded packet.
func NewEncoderRecord(p *wire.EncoderPacket) EncoderRecord {
	rec := EncoderRecord{
		AbsoluteIndex: p.AbsoluteIndex,
		Quadrature:    p.Quadrature,
	}
	for i := range rec.ClockCounts {
		rec.ClockCounts[i] = p.ClockCount(i)
	}
	return rec
}

// Sink persists decoded records as they arrive.
type Sink interface {
	WriteEncoder(rec *EncoderRecord) error
	WriteIrig(rec *IrigRecord) error
}

// RunTarget decides when acquisition stops. Exactly one of the fields is
// expected to be non-zero; with both zero the run never finishes on its own.
type RunTarget struct {
	// Seconds of IRIG time to collect, measured from the first IRIG packet.
	Seconds int64
	// Packets is the number of encoder packets to collect.
	Packets int
}

// Counters summarise what a session has seen.
type Counters struct {
	EncoderPackets int
	IrigPackets    int
	TimingFaults   int
	FramingErrors  int
	NeedMoreData   int
	SinkErrors     int
}

// SessionConfig configures a Session.
type SessionConfig struct {
	Sink          Sink // optional
	Target        RunTarget
	RetainPartial bool
}

// Session is the parsing state of one run.
type Session struct {
	framer   *framer.Framer
	sink     Sink
	target   RunTarget
	clock    RunClockState
	current  int64 // UTC seconds of the latest IRIG packet
	encoders []EncoderRecord
	irigs    []IrigRecord
	counters Counters
}

// NewSession creates an empty session.
func NewSession(cfg SessionConfig) *Session {
	return &Session{
		framer: framer.New(framer.Options{RetainPartial: cfg.RetainPartial}),
		sink:   cfg.Sink,
		target: cfg.Target,
	}
}

// HandleChunk frames and decodes one received chunk. Errors describe a
// dropped or faulty packet; the session stays usable after any of them.
func (s *Session) HandleChunk(chunk []byte) error {
	frame, err := s.framer.Feed(chunk)
	if err != nil {
		return s.classify(err)
	}
	if frame.Trailing > 0 {
		monitoring.Debugf("daq: discarded %d bytes following %s packet", frame.Trailing, frame.Kind)
	}

	switch frame.Kind {
	case framer.KindEncoder:
		return s.handleEncoder(frame.Payload)
	case framer.KindIrig:
		return s.handleIrig(frame.Payload)
	}
	return nil
}

func (s *Session) classify(err error) error {
	var fe *framer.FramingError
	switch {
	case errors.Is(err, framer.ErrSenderTimingFault):
		s.counters.TimingFaults++
	case errors.Is(err, framer.ErrNeedMoreData):
		s.counters.NeedMoreData++
	case errors.As(err, &fe):
		s.counters.FramingErrors++
	}
	return err
}

func (s *Session) handleEncoder(payload []byte) error {
	pkt, err := wire.DecodeEncoder(payload)
	if err != nil {
		s.counters.FramingErrors++
		return err
	}
	rec := NewEncoderRecord(pkt)
	s.encoders = append(s.encoders, rec)
	s.counters.EncoderPackets++

	if s.sink != nil {
		if err := s.sink.WriteEncoder(&rec); err != nil {
			s.counters.SinkErrors++
			return fmt.Errorf("persist encoder packet %d: %w", s.counters.EncoderPackets, err)
		}
	}
	return nil
}

func (s *Session) handleIrig(payload []byte) error {
	rec, elapsed, err := DecodeIrig(payload, &s.clock)
	if err != nil {
		s.counters.FramingErrors++
		return err
	}
	s.irigs = append(s.irigs, rec)
	s.current = rec.UTCSeconds
	s.counters.IrigPackets++

	monitoring.Logf("Current Time: %d:%d:%d Run Time %s Clock Count %d",
		rec.Hours, rec.Minutes, rec.Seconds, elapsed, rec.RisingEdgeClock)

	if s.sink != nil {
		if err := s.sink.WriteIrig(&rec); err != nil {
			s.counters.SinkErrors++
			return fmt.Errorf("persist IRIG packet %d: %w", s.counters.IrigPackets, err)
		}
	}
	return nil
}

// Done reports whether the run target has been reached.
//
// In seconds mode the comparison is made on absolute-of-day seconds. A drop
// of more than half a day is a midnight crossing; a smaller backward step
// (a reordered or glitched IRIG packet) counts as not yet elapsed.
func (s *Session) Done() bool {
	switch {
	case s.target.Seconds > 0:
		if !s.clock.HasStart {
			return false
		}
		elapsed := s.current - s.clock.StartUTCSeconds()
		if elapsed < -SecondsPerDay/2 {
			elapsed += SecondsPerDay
		}
		return elapsed >= s.target.Seconds
	case s.target.Packets > 0:
		return s.counters.EncoderPackets >= s.target.Packets
	default:
		return false
	}
}

// RunClock returns a copy of the run start state.
func (s *Session) RunClock() RunClockState {
	return s.clock
}

// CurrentUTCSeconds returns the time of the latest IRIG packet.
func (s *Session) CurrentUTCSeconds() int64 {
	return s.current
}

// Counters returns a snapshot of the session counters.
func (s *Session) Counters() Counters {
	return s.counters
}

// EncoderSeries returns the decoded encoder records in arrival order. The
// slice is owned by the session; callers must not modify it.
func (s *Session) EncoderSeries() []EncoderRecord {
	return s.encoders
}

// IrigSeries returns the decoded IRIG records in arrival order. The slice
// is owned by the session; callers must not modify it.
func (s *Session) IrigSeries() []IrigRecord {
	return s.irigs
}
