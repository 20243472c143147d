package network

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealUDPSocketFactory_RoundTrip(t *testing.T) {
	sock, err := RealUDPSocketFactory{}.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer sock.Close()

	conn, err := net.DialUDP("udp", nil, sock.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte("irig"))
	require.NoError(t, err)

	require.NoError(t, sock.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 16)
	n, from, err := sock.ReadFromUDP(buf)
	require.NoError(t, err)
	assert.Equal(t, "irig", string(buf[:n]))
	assert.NotNil(t, from)
}

func TestRealUDPSocket_DeadlineTimesOut(t *testing.T) {
	sock, err := RealUDPSocketFactory{}.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer sock.Close()

	require.NoError(t, sock.SetReadDeadline(time.Now().Add(10*time.Millisecond)))
	_, _, err = sock.ReadFromUDP(make([]byte, 16))
	var netErr net.Error
	require.ErrorAs(t, err, &netErr)
	assert.True(t, netErr.Timeout())
}

func TestMockUDPSocket_Sequence(t *testing.T) {
	boom := errors.New("boom")
	m := NewMockUDPSocket([]byte("abcdef"), []byte("xy"))
	m.ReadErrors = []error{boom}

	buf := make([]byte, 4)
	_, _, err := m.ReadFromUDP(buf)
	assert.ErrorIs(t, err, boom)

	n, from, err := m.ReadFromUDP(buf)
	require.NoError(t, err)
	assert.Equal(t, "abcd", string(buf[:n]), "datagram truncated to buffer")
	assert.Equal(t, 8080, from.Port)

	n, _, err = m.ReadFromUDP(buf)
	require.NoError(t, err)
	assert.Equal(t, "xy", string(buf[:n]))

	_, _, err = m.ReadFromUDP(buf)
	var netErr net.Error
	require.ErrorAs(t, err, &netErr)
	assert.True(t, netErr.Timeout())

	require.NoError(t, m.Close())
	_, _, err = m.ReadFromUDP(buf)
	assert.ErrorIs(t, err, net.ErrClosed)
}

func TestMockUDPSocketFactory(t *testing.T) {
	sock := NewMockUDPSocket()
	f := &MockUDPSocketFactory{Socket: sock}
	addr := &net.UDPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 9}

	got, err := f.ListenUDP("udp", addr)
	require.NoError(t, err)
	assert.Same(t, sock, got)
	assert.Equal(t, []*net.UDPAddr{addr}, f.Addrs)

	f.Err = errors.New("address in use")
	_, err = f.ListenUDP("udp", addr)
	assert.EqualError(t, err, "address in use")
}
