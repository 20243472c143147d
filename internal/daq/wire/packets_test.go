package wire

import (
	"encoding/binary"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacketSizes(t *testing.T) {
	assert.Equal(t, 4+4*150+8*150+12, EncoderPacketSize)
	assert.Equal(t, 1816, EncoderPacketSize)
	assert.Equal(t, 132, IrigPacketSize)
	assert.Equal(t, 4, TimingFaultPacketSize)
}

func TestLayoutsValidate(t *testing.T) {
	require.NoError(t, EncoderLayout.Validate())
	require.NoError(t, IrigLayout.Validate())
}

func TestLayoutValidate_Errors(t *testing.T) {
	bad := &Layout{Name: "gap", Fields: []Field{
		{Name: "a", Offset: 0, Width: 4, Count: 1, Order: binary.LittleEndian},
		{Name: "b", Offset: 8, Width: 4, Count: 1, Order: binary.LittleEndian},
	}}
	assert.Error(t, bad.Validate())

	width := &Layout{Name: "width", Fields: []Field{
		{Name: "a", Offset: 0, Width: 3, Count: 1, Order: binary.LittleEndian},
	}}
	assert.Error(t, width.Validate())
}

func TestLayoutField_UnknownPanics(t *testing.T) {
	assert.Panics(t, func() { EncoderLayout.Field("nope") })
}

func TestFieldReadWrite_Width2(t *testing.T) {
	f := Field{Name: "short", Offset: 2, Width: 2, Count: 2, Order: binary.BigEndian}
	buf := make([]byte, 6)
	f.Write(buf, []uint32{0x1234, 0xABCD})
	assert.Equal(t, []byte{0, 0, 0x12, 0x34, 0xAB, 0xCD}, buf)

	got := make([]uint32, 2)
	f.Read(buf, got)
	assert.Equal(t, []uint32{0x1234, 0xABCD}, got)
}

// TestDecodeEncoder_FieldOrder builds a payload by hand to pin the parallel
// array layout: all clock lows, then all overflows, then all indices.
func TestDecodeEncoder_FieldOrder(t *testing.T) {
	payload := make([]byte, EncoderPacketSize-HeaderSize)
	for i := 0; i < EncoderSamples; i++ {
		binary.LittleEndian.PutUint32(payload[4*i:], uint32(1000+i))
		binary.LittleEndian.PutUint32(payload[600+4*i:], uint32(i%3))
		binary.LittleEndian.PutUint32(payload[1200+4*i:], uint32(300+i))
	}
	binary.LittleEndian.PutUint32(payload[1800:], 7)
	binary.LittleEndian.PutUint32(payload[1804:], 8)
	binary.LittleEndian.PutUint32(payload[1808:], 9)

	p, err := DecodeEncoder(payload)
	require.NoError(t, err)

	assert.Equal(t, uint32(1000), p.ClockLow[0])
	assert.Equal(t, uint32(1149), p.ClockLow[149])
	assert.Equal(t, uint32(2), p.ClockOverflow[149])
	assert.Equal(t, uint32(300), p.AbsoluteIndex[0])
	assert.Equal(t, uint32(449), p.AbsoluteIndex[149])
	assert.Equal(t, [3]uint32{7, 8, 9}, p.Quadrature)

	assert.Equal(t, uint64(1001)+uint64(1)<<32, p.ClockCount(1))
	assert.Equal(t, uint64(1149)+uint64(2)<<32, p.ClockCounts()[149])
}

func TestDecodeEncoder_Short(t *testing.T) {
	_, err := DecodeEncoder(make([]byte, 100))
	assert.Error(t, err)
}

func TestEncoderPacket_EncodeRoundTrip(t *testing.T) {
	var in EncoderPacket
	for i := 0; i < EncoderSamples; i++ {
		in.ClockLow[i] = uint32(i * 65536)
		in.ClockOverflow[i] = uint32(i / 50)
		in.AbsoluteIndex[i] = uint32(i)
	}
	in.Quadrature = [3]uint32{1, 0, 1}

	buf := in.Encode()
	require.Len(t, buf, EncoderPacketSize)
	assert.Equal(t, HeaderEncoder, binary.LittleEndian.Uint32(buf))

	out, err := DecodeEncoder(buf[HeaderSize:])
	require.NoError(t, err)
	if diff := cmp.Diff(&in, out); diff != "" {
		t.Errorf("encoder packet mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeIrig(t *testing.T) {
	var in IrigPacket
	in.RisingEdgeLow = 0xFFFFFFF0
	in.RisingEdgeOverflow = 3
	in.SetTime(12, 34, 56)
	for i := 0; i < SyncPulses; i++ {
		in.SyncLow[i] = uint32(100 * i)
		in.SyncOverflow[i] = 1
	}

	buf := in.Encode()
	require.Len(t, buf, IrigPacketSize)
	assert.Equal(t, HeaderIrig, binary.LittleEndian.Uint32(buf))
	// Info word 0 sits right after the two rising-edge words.
	assert.Equal(t, in.Info[0], binary.LittleEndian.Uint32(buf[HeaderSize+8:]))

	out, err := DecodeIrig(buf[HeaderSize:])
	require.NoError(t, err)
	if diff := cmp.Diff(&in, out); diff != "" {
		t.Errorf("irig packet mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, uint64(0xFFFFFFF0)+3<<32, out.RisingEdgeClock())
	syncs := out.SyncClocks()
	assert.Equal(t, uint64(900)+1<<32, syncs[9])

	assert.Equal(t, uint32(56), DecodeBCDField(out.Info[0], 1))
	assert.Equal(t, uint32(34), DecodeBCDField(out.Info[1], 0))
	assert.Equal(t, uint32(12), DecodeBCDField(out.Info[2], 0))
}

func TestEncodeTimingFault(t *testing.T) {
	buf := EncodeTimingFault()
	require.Len(t, buf, 4)
	assert.Equal(t, HeaderTimingFault, binary.LittleEndian.Uint32(buf))
}
