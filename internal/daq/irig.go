package daq

import (
	"fmt"

	"github.com/banshee-data/encoderdaq/internal/daq/wire"
)

// SecondsPerDay is the wrap period of absolute-of-day IRIG time.
const SecondsPerDay = 24 * 3600

// RunClockState holds the IRIG time of the first IRIG packet of a run. It
// is set once and never changed afterwards.
type RunClockState struct {
	HasStart     bool
	StartHours   int
	StartMinutes int
	StartSeconds int
}

// StartUTCSeconds returns the run start as absolute seconds of day.
func (s *RunClockState) StartUTCSeconds() int64 {
	return int64(s.StartSeconds + s.StartMinutes*60 + s.StartHours*3600)
}

// Elapsed is the hours/minutes/seconds since the run start. It is printed
// for the operator and never stored.
type Elapsed struct {
	Hours, Minutes, Seconds int
}

func (e Elapsed) String() string {
	return fmt.Sprintf("%d:%d:%d", e.Hours, e.Minutes, e.Seconds)
}

// IrigRecord is one decoded IRIG packet with its derived absolute-of-day
// time. UTCSeconds is computed, not read from the wire.
type IrigRecord struct {
	RisingEdgeClock uint64
	UTCSeconds      int64
	Hours           int
	Minutes         int
	Seconds         int
	RawInfo         [wire.IrigInfoWords]uint32
	SyncClocks      [wire.SyncPulses]uint64
}

// DecodeIrig decodes an IRIG payload and updates the run clock state. The
// first call of a run records the packet's time as the run start.
func DecodeIrig(payload []byte, state *RunClockState) (IrigRecord, Elapsed, error) {
	pkt, err := wire.DecodeIrig(payload)
	if err != nil {
		return IrigRecord{}, Elapsed{}, err
	}

	seconds := int(wire.DecodeBCDField(pkt.Info[0], 1))
	minutes := int(wire.DecodeBCDField(pkt.Info[1], 0))
	hours := int(wire.DecodeBCDField(pkt.Info[2], 0))

	if !state.HasStart {
		state.HasStart = true
		state.StartHours = hours
		state.StartMinutes = minutes
		state.StartSeconds = seconds
	}

	rec := IrigRecord{
		RisingEdgeClock: pkt.RisingEdgeClock(),
		UTCSeconds:      int64(seconds + minutes*60 + hours*3600),
		Hours:           hours,
		Minutes:         minutes,
		Seconds:         seconds,
		RawInfo:         pkt.Info,
		SyncClocks:      pkt.SyncClocks(),
	}
	return rec, elapsedSince(state, hours, minutes, seconds), nil
}

// elapsedSince applies base-60/24 borrows to the digit-wise difference
// between the current time and the run start.
func elapsedSince(state *RunClockState, hours, minutes, seconds int) Elapsed {
	dh := hours - state.StartHours
	dm := minutes - state.StartMinutes
	ds := seconds - state.StartSeconds

	if dh < 0 {
		dh += 24
	}
	if dm < 0 || (dm == 0 && ds < 0) {
		dm += 60
		dh--
	}
	if ds < 0 {
		ds += 60
		dm--
	}
	return Elapsed{Hours: dh, Minutes: dm, Seconds: ds}
}
