// Package wire holds the binary layout of the packets emitted by the
// encoder/IRIG sender board and the routines that decode them.
//
// Every packet starts with a 4-byte little-endian header word that
// identifies its type. Payloads are arrays of little-endian 32-bit words;
// see EncoderLayout and IrigLayout for the exact field order.
package wire

import (
	"encoding/binary"
	"fmt"
)

// Packet header words.
const (
	HeaderEncoder     uint32 = 0x1EAF // encoder counter packet
	HeaderIrig        uint32 = 0xCAFE // IRIG time-code packet
	HeaderTimingFault uint32 = 0xE12A // sender-reported IRIG sync pulse timing fault
)

const (
	HeaderSize = 4 // bytes

	// EncoderSamples is the number of counter samples per encoder packet.
	EncoderSamples = 150
	// QuadratureReadings is the number of trailing quadrature readouts.
	QuadratureReadings = 3
	// IrigInfoWords is the number of raw IRIG info words (only 0-2 are used).
	IrigInfoWords = 10
	// SyncPulses is the number of synchronization pulses per IRIG packet.
	SyncPulses = 10
)

// Field names shared by the layouts and decoders.
const (
	FieldClockLow      = "clock_low"
	FieldClockOverflow = "clock_overflow"
	FieldAbsoluteIndex = "absolute_index"
	FieldQuadrature    = "quadrature"
	FieldEdgeLow       = "rising_edge_low"
	FieldEdgeOverflow  = "rising_edge_overflow"
	FieldInfo          = "info"
	FieldSyncLow       = "sync_low"
	FieldSyncOverflow  = "sync_overflow"
)

// EncoderLayout is [clockLow x150][overflow x150][absIndex x150][quad x3].
// The three sample arrays are parallel, not interleaved per sample.
var EncoderLayout = sequential("encoder",
	Field{Name: FieldClockLow, Width: 4, Count: EncoderSamples},
	Field{Name: FieldClockOverflow, Width: 4, Count: EncoderSamples},
	Field{Name: FieldAbsoluteIndex, Width: 4, Count: EncoderSamples},
	Field{Name: FieldQuadrature, Width: 4, Count: QuadratureReadings},
)

// IrigLayout is [edgeLow][edgeOverflow][info x10][syncLow x10][syncOverflow x10].
var IrigLayout = sequential("irig",
	Field{Name: FieldEdgeLow, Width: 4, Count: 1},
	Field{Name: FieldEdgeOverflow, Width: 4, Count: 1},
	Field{Name: FieldInfo, Width: 4, Count: IrigInfoWords},
	Field{Name: FieldSyncLow, Width: 4, Count: SyncPulses},
	Field{Name: FieldSyncOverflow, Width: 4, Count: SyncPulses},
)

// Total on-wire sizes including the header.
var (
	EncoderPacketSize     = EncoderLayout.PacketSize() // 4 + 4*150 + 8*150 + 12 = 1816
	IrigPacketSize        = IrigLayout.PacketSize()    // 132
	TimingFaultPacketSize = HeaderSize
)

// Widen combines a low 32-bit counter with its 32-bit overflow word.
func Widen(low, overflow uint32) uint64 {
	return uint64(low) + uint64(overflow)<<32
}

// EncoderPacket is one decoded encoder counter packet.
type EncoderPacket struct {
	ClockLow      [EncoderSamples]uint32
	ClockOverflow [EncoderSamples]uint32
	AbsoluteIndex [EncoderSamples]uint32
	Quadrature    [QuadratureReadings]uint32
}

// ClockCount returns the hardware-widened clock count of sample i. The
// value can still carry the missed-overflow defect; see reconcile.
func (p *EncoderPacket) ClockCount(i int) uint64 {
	return Widen(p.ClockLow[i], p.ClockOverflow[i])
}

// ClockCounts returns all 150 widened clock counts.
func (p *EncoderPacket) ClockCounts() []uint64 {
	out := make([]uint64, EncoderSamples)
	for i := range out {
		out[i] = p.ClockCount(i)
	}
	return out
}

// IrigPacket is one decoded IRIG packet before any time interpretation.
type IrigPacket struct {
	RisingEdgeLow      uint32
	RisingEdgeOverflow uint32
	Info               [IrigInfoWords]uint32
	SyncLow            [SyncPulses]uint32
	SyncOverflow       [SyncPulses]uint32
}

// RisingEdgeClock returns the widened clock count of the IRIG frame edge.
func (p *IrigPacket) RisingEdgeClock() uint64 {
	return Widen(p.RisingEdgeLow, p.RisingEdgeOverflow)
}

// SyncClocks returns the ten widened synchronization pulse clock counts.
func (p *IrigPacket) SyncClocks() [SyncPulses]uint64 {
	var out [SyncPulses]uint64
	for i := range out {
		out[i] = Widen(p.SyncLow[i], p.SyncOverflow[i])
	}
	return out
}

func checkPayload(l *Layout, payload []byte) error {
	if want := l.PayloadSize(); len(payload) < want {
		return fmt.Errorf("wire: %s payload too short: need %d bytes, have %d", l.Name, want, len(payload))
	}
	return nil
}

// DecodeEncoder decodes an encoder payload (the bytes after the header).
func DecodeEncoder(payload []byte) (*EncoderPacket, error) {
	if err := checkPayload(EncoderLayout, payload); err != nil {
		return nil, err
	}
	p := &EncoderPacket{}
	EncoderLayout.Field(FieldClockLow).Read(payload, p.ClockLow[:])
	EncoderLayout.Field(FieldClockOverflow).Read(payload, p.ClockOverflow[:])
	EncoderLayout.Field(FieldAbsoluteIndex).Read(payload, p.AbsoluteIndex[:])
	EncoderLayout.Field(FieldQuadrature).Read(payload, p.Quadrature[:])
	return p, nil
}

// DecodeIrig decodes an IRIG payload (the bytes after the header).
func DecodeIrig(payload []byte) (*IrigPacket, error) {
	if err := checkPayload(IrigLayout, payload); err != nil {
		return nil, err
	}
	p := &IrigPacket{}
	var scalar [1]uint32
	IrigLayout.Field(FieldEdgeLow).Read(payload, scalar[:])
	p.RisingEdgeLow = scalar[0]
	IrigLayout.Field(FieldEdgeOverflow).Read(payload, scalar[:])
	p.RisingEdgeOverflow = scalar[0]
	IrigLayout.Field(FieldInfo).Read(payload, p.Info[:])
	IrigLayout.Field(FieldSyncLow).Read(payload, p.SyncLow[:])
	IrigLayout.Field(FieldSyncOverflow).Read(payload, p.SyncOverflow[:])
	return p, nil
}

func withHeader(header uint32, l *Layout) []byte {
	buf := make([]byte, l.PacketSize())
	binary.LittleEndian.PutUint32(buf, header)
	return buf
}

// Encode serializes the packet including its header.
func (p *EncoderPacket) Encode() []byte {
	buf := withHeader(HeaderEncoder, EncoderLayout)
	payload := buf[HeaderSize:]
	EncoderLayout.Field(FieldClockLow).Write(payload, p.ClockLow[:])
	EncoderLayout.Field(FieldClockOverflow).Write(payload, p.ClockOverflow[:])
	EncoderLayout.Field(FieldAbsoluteIndex).Write(payload, p.AbsoluteIndex[:])
	EncoderLayout.Field(FieldQuadrature).Write(payload, p.Quadrature[:])
	return buf
}

// Encode serializes the packet including its header.
func (p *IrigPacket) Encode() []byte {
	buf := withHeader(HeaderIrig, IrigLayout)
	payload := buf[HeaderSize:]
	IrigLayout.Field(FieldEdgeLow).Write(payload, []uint32{p.RisingEdgeLow})
	IrigLayout.Field(FieldEdgeOverflow).Write(payload, []uint32{p.RisingEdgeOverflow})
	IrigLayout.Field(FieldInfo).Write(payload, p.Info[:])
	IrigLayout.Field(FieldSyncLow).Write(payload, p.SyncLow[:])
	IrigLayout.Field(FieldSyncOverflow).Write(payload, p.SyncOverflow[:])
	return buf
}

// EncodeTimingFault returns a header-only timing fault packet.
func EncodeTimingFault() []byte {
	buf := make([]byte, TimingFaultPacketSize)
	binary.LittleEndian.PutUint32(buf, HeaderTimingFault)
	return buf
}

// SetTime fills the second/minute/hour info words the way the sender does:
// seconds are shifted left by one bit, minutes and hours are unshifted.
func (p *IrigPacket) SetTime(hours, minutes, seconds uint32) {
	p.Info[0] = EncodeBCDField(seconds, 1)
	p.Info[1] = EncodeBCDField(minutes, 0)
	p.Info[2] = EncodeBCDField(hours, 0)
}
