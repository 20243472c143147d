// Package framer splits the receive buffer into typed packets.
//
// The sender emits exactly one packet per datagram, so the framer handles a
// single packet per buffer fill: after a packet (or an error) the buffer is
// cleared. Undersized buffers are discarded rather than kept for
// reassembly unless Options.RetainPartial is set. This loses data when a
// datagram is split, and is kept on purpose to match the deployed parser.
package framer

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/banshee-data/encoderdaq/internal/daq/wire"
)

// Kind identifies the type of a framed packet.
type Kind int

const (
	KindEncoder Kind = iota + 1
	KindIrig
	KindTimingFault
)

func (k Kind) String() string {
	switch k {
	case KindEncoder:
		return "encoder"
	case KindIrig:
		return "irig"
	case KindTimingFault:
		return "timing_fault"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ErrorKind classifies framing failures.
type ErrorKind int

const (
	ShortEncoderPacket ErrorKind = iota + 1
	ShortIrigPacket
	UnknownHeader
)

func (k ErrorKind) String() string {
	switch k {
	case ShortEncoderPacket:
		return "short encoder packet"
	case ShortIrigPacket:
		return "short IRIG packet"
	case UnknownHeader:
		return "unknown header"
	default:
		return fmt.Sprintf("framing error(%d)", int(k))
	}
}

// FramingError reports a packet that could not be framed. The buffer has
// already been discarded when it is returned.
type FramingError struct {
	Kind   ErrorKind
	Header uint32 // header word, when one could be read
	Have   int    // bytes available
	Want   int    // bytes required by the identified packet type
}

func (e *FramingError) Error() string {
	switch e.Kind {
	case UnknownHeader:
		return fmt.Sprintf("framer: unknown header 0x%X (%d bytes discarded)", e.Header, e.Have)
	default:
		return fmt.Sprintf("framer: %s: need %d bytes, have %d", e.Kind, e.Want, e.Have)
	}
}

var (
	// ErrNeedMoreData means fewer than 4 bytes were buffered, so not even
	// the header could be read.
	ErrNeedMoreData = errors.New("framer: need more data")

	// ErrSenderTimingFault is returned for the sender's error packet, which
	// flags a timing problem in the IRIG synchronization pulses.
	ErrSenderTimingFault = errors.New("framer: sender reported IRIG sync pulse timing fault")
)

// Frame is one packet extracted from the buffer. Payload excludes the
// header.
type Frame struct {
	Kind     Kind
	Payload  []byte
	Trailing int // bytes after the packet that were discarded
}

// Options tunes framer behaviour.
type Options struct {
	// RetainPartial keeps an undersized buffer so the next chunk can
	// complete it, instead of discarding it.
	RetainPartial bool
}

// Framer owns the receive byte buffer.
type Framer struct {
	buf  []byte
	opts Options
}

// New returns a framer with an empty buffer.
func New(opts Options) *Framer {
	return &Framer{opts: opts}
}

// Buffered returns the number of bytes currently held.
func (f *Framer) Buffered() int {
	return len(f.buf)
}

// Reset discards any buffered bytes.
func (f *Framer) Reset() {
	f.buf = f.buf[:0]
}

// Feed appends chunk to the buffer and frames at most one packet.
//
// On success the returned frame's Kind is KindEncoder or KindIrig. A timing
// fault packet returns a KindTimingFault frame together with
// ErrSenderTimingFault. Any other failure returns ErrNeedMoreData or a
// *FramingError.
func (f *Framer) Feed(chunk []byte) (Frame, error) {
	f.buf = append(f.buf, chunk...)

	if len(f.buf) < wire.HeaderSize {
		f.short()
		return Frame{}, ErrNeedMoreData
	}

	header := binary.LittleEndian.Uint32(f.buf[:wire.HeaderSize])
	switch header {
	case wire.HeaderEncoder:
		return f.take(KindEncoder, header, wire.EncoderPacketSize, ShortEncoderPacket)
	case wire.HeaderIrig:
		return f.take(KindIrig, header, wire.IrigPacketSize, ShortIrigPacket)
	case wire.HeaderTimingFault:
		trailing := len(f.buf) - wire.TimingFaultPacketSize
		f.Reset()
		return Frame{Kind: KindTimingFault, Trailing: trailing}, ErrSenderTimingFault
	default:
		have := len(f.buf)
		f.Reset()
		return Frame{}, &FramingError{Kind: UnknownHeader, Header: header, Have: have}
	}
}

func (f *Framer) take(kind Kind, header uint32, size int, shortKind ErrorKind) (Frame, error) {
	have := len(f.buf)
	if have < size {
		f.short()
		return Frame{}, &FramingError{Kind: shortKind, Header: header, Have: have, Want: size}
	}

	// Copy the payload out so the buffer can be reused immediately.
	payload := make([]byte, size-wire.HeaderSize)
	copy(payload, f.buf[wire.HeaderSize:size])
	f.Reset()
	return Frame{Kind: kind, Payload: payload, Trailing: have - size}, nil
}

func (f *Framer) short() {
	if !f.opts.RetainPartial {
		f.Reset()
	}
}
