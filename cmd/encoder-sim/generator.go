package main

import (
	"math"
	"time"

	"github.com/banshee-data/encoderdaq/internal/daq/wire"
	"github.com/banshee-data/encoderdaq/internal/reconcile"
)

// generator produces the datagram stream of a sender watching an encoder
// that turns at a constant rate. Every value is derived from elapsed run
// time, so the stream is deterministic.
type generator struct {
	clockHz     float64
	sampleHz    float64 // slit edges per second
	clockOffset uint64  // counter value at the first IRIG edge
	startOfDay  int64   // seconds of day carried by the first IRIG packet
	faultEvery  int     // timing fault after every Nth IRIG packet, 0 never

	nextSecond int64
	nextSample uint64
	irigSent   int
}

func newGenerator(clockHz, sampleHz float64, start time.Time, clockOffset uint64, faultEvery int) *generator {
	h, m, s := start.Clock()
	return &generator{
		clockHz:     clockHz,
		sampleHz:    sampleHz,
		clockOffset: clockOffset,
		startOfDay:  int64(h*3600 + m*60 + s),
		faultEvery:  faultEvery,
	}
}

func (g *generator) counter(seconds float64) uint64 {
	return g.clockOffset + uint64(math.Round(seconds*g.clockHz))
}

// next returns the datagrams due by elapsed, oldest first. An IRIG packet
// goes out at every whole second; an encoder packet once its last sample
// has been taken.
func (g *generator) next(elapsed time.Duration) [][]byte {
	now := elapsed.Seconds()
	var out [][]byte
	for {
		irigAt := float64(g.nextSecond)
		encAt := float64(g.nextSample+wire.EncoderSamples-1) / g.sampleHz
		switch {
		case irigAt <= now && irigAt <= encAt:
			out = append(out, g.irig())
			if g.faultEvery > 0 && g.irigSent%g.faultEvery == 0 {
				out = append(out, wire.EncodeTimingFault())
			}
		case encAt <= now:
			out = append(out, g.encoder())
		default:
			return out
		}
	}
}

func (g *generator) irig() []byte {
	sec := g.nextSecond
	g.nextSecond++
	g.irigSent++

	tod := (g.startOfDay + sec) % reconcile.SecondsPerDay
	var p wire.IrigPacket
	p.SetTime(uint32(tod/3600), uint32(tod/60%60), uint32(tod%60))
	edge := g.counter(float64(sec))
	p.RisingEdgeLow = uint32(edge)
	p.RisingEdgeOverflow = uint32(edge >> 32)
	for i := range p.SyncLow {
		c := g.counter(float64(sec) + float64(i)/wire.SyncPulses)
		p.SyncLow[i] = uint32(c)
		p.SyncOverflow[i] = uint32(c >> 32)
	}
	return p.Encode()
}

func (g *generator) encoder() []byte {
	var p wire.EncoderPacket
	for i := range p.ClockLow {
		k := g.nextSample + uint64(i)
		c := g.counter(float64(k) / g.sampleHz)
		p.ClockLow[i] = uint32(c)
		p.ClockOverflow[i] = uint32(c >> 32)
		p.AbsoluteIndex[i] = uint32(k & 0xFFFF)
	}
	p.Quadrature = [wire.QuadratureReadings]uint32{uint32(g.nextSample & 3), 0, 0}
	g.nextSample += wire.EncoderSamples
	return p.Encode()
}
