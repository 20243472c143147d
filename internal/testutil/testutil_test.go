package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/encoderdaq/internal/daq/wire"
	"github.com/banshee-data/encoderdaq/internal/monitoring"
)

func TestIrigPacket(t *testing.T) {
	b := IrigPacket(12, 34, 56, 1<<32+7)
	require.Len(t, b, wire.IrigPacketSize)

	p, err := wire.DecodeIrig(b[wire.HeaderSize:])
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<32+7), p.RisingEdgeClock())
	assert.Equal(t, uint32(56), wire.DecodeBCDField(p.Info[0], 1))
	assert.Equal(t, uint32(34), wire.DecodeBCDField(p.Info[1], 0))
	assert.Equal(t, uint32(12), wire.DecodeBCDField(p.Info[2], 0))
}

func TestEncoderPacket(t *testing.T) {
	b := EncoderPacket(1<<32-50, 100, 9)
	require.Len(t, b, wire.EncoderPacketSize)

	p, err := wire.DecodeEncoder(b[wire.HeaderSize:])
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<32-50), p.ClockCount(0))
	assert.Equal(t, uint64(1<<32+50), p.ClockCount(1))
	assert.Equal(t, uint32(9+149), p.AbsoluteIndex[149])
}

func TestCaptureLogs(t *testing.T) {
	logs := CaptureLogs(t)
	monitoring.Logf("hello %d", 1)
	monitoring.Logf("hello %d", 2)
	monitoring.Logf("bye")
	assert.Equal(t, 2, logs.Count("hello"))
	assert.Equal(t, []string{"hello 1", "hello 2", "bye"}, logs.Lines())
}
