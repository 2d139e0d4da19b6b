package nbt

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"unicode/utf8"
)

const maxDepth = 512

// Arrays longer than this are read incrementally so that a corrupt length
// prefix cannot force one huge allocation up front.
const eagerReadLimit = 64 * 1024

// Decoder reads one named root tag. It buffers its source, so bytes following
// the root tag may be consumed from the underlying reader.
type Decoder struct {
	r     *bufio.Reader
	depth int
}

func NewDecoder(r io.Reader) *Decoder {
	if br, ok := r.(*bufio.Reader); ok {
		return &Decoder{r: br}
	}
	return &Decoder{r: bufio.NewReader(r)}
}

// Decode reads an uncompressed named root tag from r.
func Decode(r io.Reader) (NamedTag, error) {
	return NewDecoder(r).Decode()
}

func (d *Decoder) Decode() (root NamedTag, err error) {
	id, err := d.readID("root tag")
	if err != nil {
		return
	}
	if id == TagEnd {
		return root, fmt.Errorf("%w: document starts with %s", ErrMalformed, TagEnd)
	}
	if root.Name, err = d.readString("root name"); err != nil {
		return
	}
	root.Tag, err = d.readPayload(id)
	return
}

func (d *Decoder) fail(err error, what string) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: truncated %s", ErrMalformed, what)
	}
	if isCorrupt(err) {
		return fmt.Errorf("%w: %s: %s", ErrMalformed, what, err.Error())
	}
	return fmt.Errorf("nbt: could not read %s: %w", what, err)
}

func (d *Decoder) readID(what string) (TagID, error) {
	b, err := d.r.ReadByte()
	if err != nil {
		return 0, d.fail(err, what)
	}
	id := TagID(b)
	if !id.Valid() {
		return 0, fmt.Errorf("%w: unknown tag id %d in %s", ErrMalformed, b, what)
	}
	return id, nil
}

func (d *Decoder) readFixed(data any, what string) error {
	if err := binary.Read(d.r, binary.BigEndian, data); err != nil {
		return d.fail(err, what)
	}
	return nil
}

func (d *Decoder) readLength(what string) (int, error) {
	var n int32
	if err := d.readFixed(&n, what+" length"); err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: negative %s length %d", ErrMalformed, what, n)
	}
	return int(n), nil
}

func (d *Decoder) readBytes(n int64, what string) ([]byte, error) {
	if n <= eagerReadLimit {
		buf := make([]byte, n)
		if _, err := io.ReadFull(d.r, buf); err != nil {
			return nil, d.fail(err, what)
		}
		return buf, nil
	}
	var buf bytes.Buffer
	copied, err := io.CopyN(&buf, d.r, n)
	if err != nil {
		if copied < n && err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, d.fail(err, what)
	}
	return buf.Bytes(), nil
}

func (d *Decoder) readString(what string) (string, error) {
	var n uint16
	if err := d.readFixed(&n, what+" length"); err != nil {
		return "", err
	}
	raw, err := d.readBytes(int64(n), what)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("%w: %s is not valid UTF-8", ErrMalformed, what)
	}
	return string(raw), nil
}

func (d *Decoder) readPayload(id TagID) (Tag, error) {
	switch id {
	case TagByte:
		b, err := d.r.ReadByte()
		if err != nil {
			return nil, d.fail(err, "byte")
		}
		return Byte(int8(b)), nil
	case TagShort:
		var v int16
		err := d.readFixed(&v, "short")
		return Short(v), err
	case TagInt:
		var v int32
		err := d.readFixed(&v, "int")
		return Int(v), err
	case TagLong:
		var v int64
		err := d.readFixed(&v, "long")
		return Long(v), err
	case TagFloat:
		var v uint32
		err := d.readFixed(&v, "float")
		return Float(math.Float32frombits(v)), err
	case TagDouble:
		var v uint64
		err := d.readFixed(&v, "double")
		return Double(math.Float64frombits(v)), err
	case TagByteArray:
		n, err := d.readLength("byte array")
		if err != nil {
			return nil, err
		}
		raw, err := d.readBytes(int64(n), "byte array")
		return ByteArray(raw), err
	case TagString:
		s, err := d.readString("string")
		return String(s), err
	case TagIntArray:
		return d.readIntArray()
	case TagList:
		return d.readList()
	case TagCompound:
		return d.readCompound()
	}
	return nil, fmt.Errorf("%w: unexpected %s payload", ErrMalformed, id)
}

func (d *Decoder) readIntArray() (Tag, error) {
	n, err := d.readLength("int array")
	if err != nil {
		return nil, err
	}
	raw, err := d.readBytes(int64(n)*4, "int array")
	if err != nil {
		return nil, err
	}
	out := make(IntArray, n)
	for i := range out {
		out[i] = int32(binary.BigEndian.Uint32(raw[i*4:]))
	}
	return out, nil
}

func (d *Decoder) enter() error {
	d.depth++
	if d.depth > maxDepth {
		return fmt.Errorf("%w: nesting deeper than %d", ErrMalformed, maxDepth)
	}
	return nil
}

func (d *Decoder) readList() (Tag, error) {
	if err := d.enter(); err != nil {
		return nil, err
	}
	defer func() { d.depth-- }()

	elem, err := d.readID("list element id")
	if err != nil {
		return nil, err
	}
	n, err := d.readLength("list")
	if err != nil {
		return nil, err
	}
	if elem == TagEnd && n > 0 {
		return nil, fmt.Errorf("%w: list of %s with %d elements", ErrMalformed, TagEnd, n)
	}

	l := &List{elem: elem}
	for i := 0; i < n; i++ {
		v, err := d.readPayload(elem)
		if err != nil {
			return nil, fmt.Errorf("list element %d of %d: %w", i, n, err)
		}
		l.values = append(l.values, v)
	}
	return l, nil
}

func (d *Decoder) readCompound() (Tag, error) {
	if err := d.enter(); err != nil {
		return nil, err
	}
	defer func() { d.depth-- }()

	c := NewCompound()
	for {
		id, err := d.readID("compound member id")
		if err != nil {
			return nil, err
		}
		if id == TagEnd {
			return c, nil
		}
		name, err := d.readString("compound member name")
		if err != nil {
			return nil, err
		}
		v, err := d.readPayload(id)
		if err != nil {
			return nil, fmt.Errorf("member %q: %w", name, err)
		}
		c.Set(name, v)
	}
}
