package nbt

import (
	"errors"
	"fmt"
	"math"
)

var ErrMalformed = errors.New("nbt: malformed data")
var ErrInvalidArgument = errors.New("nbt: invalid argument")

type TagID byte

const (
	TagEnd TagID = iota
	TagByte
	TagShort
	TagInt
	TagLong
	TagFloat
	TagDouble
	TagByteArray
	TagString
	TagList
	TagCompound
	TagIntArray
)

var tagNames = [...]string{
	TagEnd:       "TAG_End",
	TagByte:      "TAG_Byte",
	TagShort:     "TAG_Short",
	TagInt:       "TAG_Int",
	TagLong:      "TAG_Long",
	TagFloat:     "TAG_Float",
	TagDouble:    "TAG_Double",
	TagByteArray: "TAG_Byte_Array",
	TagString:    "TAG_String",
	TagList:      "TAG_List",
	TagCompound:  "TAG_Compound",
	TagIntArray:  "TAG_Int_Array",
}

func (id TagID) Valid() bool {
	return id <= TagIntArray
}

func (id TagID) String() string {
	if id.Valid() {
		return tagNames[id]
	}
	return fmt.Sprintf("TAG_Unknown(%d)", byte(id))
}

// Tag is a single value of the binary tag format. The set of implementations is
// closed: every variant lives in this package.
type Tag interface {
	ID() TagID
	tag()
}

type Byte int8
type Short int16
type Int int32
type Long int64
type Float float32
type Double float64
type ByteArray []byte
type String string
type IntArray []int32

func (Byte) ID() TagID      { return TagByte }
func (Short) ID() TagID     { return TagShort }
func (Int) ID() TagID       { return TagInt }
func (Long) ID() TagID      { return TagLong }
func (Float) ID() TagID     { return TagFloat }
func (Double) ID() TagID    { return TagDouble }
func (ByteArray) ID() TagID { return TagByteArray }
func (String) ID() TagID    { return TagString }
func (*List) ID() TagID     { return TagList }
func (*Compound) ID() TagID { return TagCompound }
func (IntArray) ID() TagID  { return TagIntArray }

func (Byte) tag()      {}
func (Short) tag()     {}
func (Int) tag()       {}
func (Long) tag()      {}
func (Float) tag()     {}
func (Double) tag()    {}
func (ByteArray) tag() {}
func (String) tag()    {}
func (*List) tag()     {}
func (*Compound) tag() {}
func (IntArray) tag()  {}

// NamedTag is a tag together with the name it is stored under at the root of a
// document.
type NamedTag struct {
	Name string
	Tag  Tag
}

// Equal reports whether two tags hold the same variant and payload. Containers
// are compared recursively and floating point values by bit pattern, so a NaN
// read back from a stream equals the NaN that was written.
func Equal(a, b Tag) bool {
	if isNil(a) || isNil(b) {
		return isNil(a) && isNil(b)
	}
	if a.ID() != b.ID() {
		return false
	}
	switch av := a.(type) {
	case Byte, Short, Int, Long, String:
		return a == b
	case Float:
		return math.Float32bits(float32(av)) == math.Float32bits(float32(b.(Float)))
	case Double:
		return math.Float64bits(float64(av)) == math.Float64bits(float64(b.(Double)))
	case ByteArray:
		bv := b.(ByteArray)
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	case IntArray:
		bv := b.(IntArray)
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	case *List:
		return av.equal(b.(*List))
	case *Compound:
		return av.equal(b.(*Compound))
	}
	return false
}

// isNil reports whether t is nil or a nil container pointer.
func isNil(t Tag) bool {
	switch v := t.(type) {
	case nil:
		return true
	case *List:
		return v == nil
	case *Compound:
		return v == nil
	}
	return false
}
