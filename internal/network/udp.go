package network

import (
	"net"
	"time"
)

// UDPSocket is the part of *net.UDPConn the listener needs.
type UDPSocket interface {
	ReadFromUDP(b []byte) (n int, addr *net.UDPAddr, err error)
	SetReadBuffer(bytes int) error
	SetReadDeadline(t time.Time) error
	Close() error
	LocalAddr() net.Addr
}

// UDPSocketFactory opens sockets. Tests substitute MockUDPSocketFactory.
type UDPSocketFactory interface {
	ListenUDP(network string, laddr *net.UDPAddr) (UDPSocket, error)
}

// RealUDPSocketFactory opens operating system sockets.
type RealUDPSocketFactory struct{}

// ListenUDP binds a *net.UDPConn, which satisfies UDPSocket directly.
func (RealUDPSocketFactory) ListenUDP(network string, laddr *net.UDPAddr) (UDPSocket, error) {
	conn, err := net.ListenUDP(network, laddr)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// MockUDPSocket replays a fixed list of datagrams. Once they are used up
// every read times out, as a real socket with a deadline would.
type MockUDPSocket struct {
	Datagrams [][]byte
	From      *net.UDPAddr
	Local     *net.UDPAddr

	// ReadErrors are returned, one per read, before any datagram.
	ReadErrors []error

	Reads          int
	Deadlines      []time.Time
	ReadBufferSize int
	Closed         bool
}

// NewMockUDPSocket returns a socket that delivers datagrams in order.
func NewMockUDPSocket(datagrams ...[]byte) *MockUDPSocket {
	return &MockUDPSocket{
		Datagrams: datagrams,
		From:      &net.UDPAddr{IP: net.IPv4(192, 168, 2, 10), Port: 8080},
		Local:     &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 8080},
	}
}

// ReadFromUDP copies the next datagram into b, truncating like a real
// socket when b is too small.
func (m *MockUDPSocket) ReadFromUDP(b []byte) (int, *net.UDPAddr, error) {
	if m.Closed {
		return 0, nil, net.ErrClosed
	}
	if len(m.ReadErrors) > 0 {
		err := m.ReadErrors[0]
		m.ReadErrors = m.ReadErrors[1:]
		return 0, nil, err
	}
	if m.Reads >= len(m.Datagrams) {
		return 0, nil, &net.OpError{Op: "read", Net: "udp", Err: timeoutError{}}
	}
	n := copy(b, m.Datagrams[m.Reads])
	m.Reads++
	return n, m.From, nil
}

func (m *MockUDPSocket) SetReadBuffer(bytes int) error {
	m.ReadBufferSize = bytes
	return nil
}

func (m *MockUDPSocket) SetReadDeadline(t time.Time) error {
	m.Deadlines = append(m.Deadlines, t)
	return nil
}

func (m *MockUDPSocket) Close() error {
	m.Closed = true
	return nil
}

func (m *MockUDPSocket) LocalAddr() net.Addr { return m.Local }

// MockUDPSocketFactory hands out a single prepared socket.
type MockUDPSocketFactory struct {
	Socket *MockUDPSocket
	Err    error

	// Addrs records every address passed to ListenUDP.
	Addrs []*net.UDPAddr
}

func (f *MockUDPSocketFactory) ListenUDP(network string, laddr *net.UDPAddr) (UDPSocket, error) {
	f.Addrs = append(f.Addrs, laddr)
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Socket, nil
}

// timeoutError satisfies net.Error with Timeout() true.
type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }
