package wire

import (
	"encoding/binary"
	"fmt"
)

// Field describes one fixed-position array of unsigned integers inside a
// packet payload. Scalars are fields with Count 1.
type Field struct {
	Name   string           // field identifier used by decoders
	Offset int              // byte offset from the start of the payload (after the header)
	Width  int              // element width in bytes: 2 or 4
	Count  int              // number of consecutive elements
	Order  binary.ByteOrder // byte order of each element
}

// Size returns the number of payload bytes the field occupies.
func (f Field) Size() int {
	return f.Width * f.Count
}

// Read decodes the field's elements from payload into dst. dst must hold at
// least Count elements; the payload length must already be validated.
func (f Field) Read(payload []byte, dst []uint32) {
	for i := 0; i < f.Count; i++ {
		off := f.Offset + i*f.Width
		switch f.Width {
		case 2:
			dst[i] = uint32(f.Order.Uint16(payload[off:]))
		default:
			dst[i] = f.Order.Uint32(payload[off:])
		}
	}
}

// Write encodes src into the field's position in payload.
func (f Field) Write(payload []byte, src []uint32) {
	for i := 0; i < f.Count && i < len(src); i++ {
		off := f.Offset + i*f.Width
		switch f.Width {
		case 2:
			f.Order.PutUint16(payload[off:], uint16(src[i]))
		default:
			f.Order.PutUint32(payload[off:], src[i])
		}
	}
}

// Layout is an ordered, contiguous set of fields making up one packet
// payload. All wire-format knowledge lives in the layout values below.
type Layout struct {
	Name   string
	Fields []Field
}

// PayloadSize returns the number of bytes after the header.
func (l *Layout) PayloadSize() int {
	n := 0
	for _, f := range l.Fields {
		if end := f.Offset + f.Size(); end > n {
			n = end
		}
	}
	return n
}

// PacketSize returns the full on-wire size including the 4-byte header.
func (l *Layout) PacketSize() int {
	return HeaderSize + l.PayloadSize()
}

// Field returns the named field. It panics on unknown names because layouts
// are static and a miss is a programming error.
func (l *Layout) Field(name string) Field {
	for _, f := range l.Fields {
		if f.Name == name {
			return f
		}
	}
	panic(fmt.Sprintf("wire: layout %s has no field %q", l.Name, name))
}

// Validate checks that fields are contiguous and non-overlapping, in order.
func (l *Layout) Validate() error {
	next := 0
	for _, f := range l.Fields {
		if f.Width != 2 && f.Width != 4 {
			return fmt.Errorf("wire: layout %s field %s: unsupported width %d", l.Name, f.Name, f.Width)
		}
		if f.Count <= 0 {
			return fmt.Errorf("wire: layout %s field %s: count must be positive", l.Name, f.Name)
		}
		if f.Offset != next {
			return fmt.Errorf("wire: layout %s field %s: offset %d, want %d", l.Name, f.Name, f.Offset, next)
		}
		next = f.Offset + f.Size()
	}
	return nil
}

// sequential builds a layout whose fields follow each other with no gaps.
func sequential(name string, fields ...Field) *Layout {
	off := 0
	for i := range fields {
		fields[i].Offset = off
		if fields[i].Order == nil {
			fields[i].Order = binary.LittleEndian
		}
		off += fields[i].Size()
	}
	return &Layout{Name: name, Fields: fields}
}
