package nbt

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

const maxStringLength = math.MaxUint16

type Encoder struct {
	w *bufio.Writer
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w)}
}

// Encode writes tag as a named root tag and flushes the underlying writer.
func Encode(w io.Writer, tag Tag, name string) error {
	return NewEncoder(w).Encode(NamedTag{Name: name, Tag: tag})
}

func (e *Encoder) Encode(root NamedTag) (err error) {
	if isNil(root.Tag) {
		return fmt.Errorf("%w: nil root tag", ErrInvalidArgument)
	}
	if err = e.writeNamed(root.Name, root.Tag); err != nil {
		return
	}
	return e.w.Flush()
}

func (e *Encoder) writeNamed(name string, tag Tag) (err error) {
	if err = e.w.WriteByte(byte(tag.ID())); err != nil {
		return
	}
	if err = e.writeString(name); err != nil {
		return
	}
	return e.writePayload(tag)
}

func (e *Encoder) writeString(s string) (err error) {
	if len(s) > maxStringLength {
		return fmt.Errorf("%w: string of %d bytes exceeds %d", ErrInvalidArgument, len(s), maxStringLength)
	}
	if err = binary.Write(e.w, binary.BigEndian, uint16(len(s))); err != nil {
		return
	}
	_, err = e.w.WriteString(s)
	return
}

func (e *Encoder) writePayload(tag Tag) (err error) {
	if isNil(tag) {
		return fmt.Errorf("%w: nil tag", ErrInvalidArgument)
	}
	switch v := tag.(type) {
	case Byte:
		return e.w.WriteByte(byte(v))
	case Short:
		return binary.Write(e.w, binary.BigEndian, int16(v))
	case Int:
		return binary.Write(e.w, binary.BigEndian, int32(v))
	case Long:
		return binary.Write(e.w, binary.BigEndian, int64(v))
	case Float:
		return binary.Write(e.w, binary.BigEndian, math.Float32bits(float32(v)))
	case Double:
		return binary.Write(e.w, binary.BigEndian, math.Float64bits(float64(v)))
	case ByteArray:
		if err = e.writeLength(len(v)); err != nil {
			return
		}
		_, err = e.w.Write(v)
		return
	case String:
		return e.writeString(string(v))
	case IntArray:
		if err = e.writeLength(len(v)); err != nil {
			return
		}
		return binary.Write(e.w, binary.BigEndian, []int32(v))
	case *List:
		return e.writeList(v)
	case *Compound:
		return e.writeCompound(v)
	}
	return fmt.Errorf("%w: unsupported tag %T", ErrInvalidArgument, tag)
}

func (e *Encoder) writeLength(n int) error {
	if n > math.MaxInt32 {
		return fmt.Errorf("%w: array of %d elements is too long", ErrInvalidArgument, n)
	}
	return binary.Write(e.w, binary.BigEndian, int32(n))
}

// List elements carry neither an id nor a name; the element id is written once
// in the list header.
func (e *Encoder) writeList(l *List) (err error) {
	if err = e.w.WriteByte(byte(l.elem)); err != nil {
		return
	}
	if err = e.writeLength(len(l.values)); err != nil {
		return
	}
	for _, v := range l.values {
		if v.ID() != l.elem {
			return fmt.Errorf("%w: %s in list of %s", ErrInvalidArgument, v.ID(), l.elem)
		}
		if err = e.writePayload(v); err != nil {
			return
		}
	}
	return
}

func (e *Encoder) writeCompound(c *Compound) (err error) {
	for _, k := range c.keys {
		if err = e.writeNamed(k, c.values[k]); err != nil {
			return
		}
	}
	return e.w.WriteByte(byte(TagEnd))
}
