package nbt

import (
	"fmt"
)

// List is an ordered sequence of tags that all share one variant. A list created
// with NewList(TagEnd) takes its element variant from the first value added.
type List struct {
	elem   TagID
	values []Tag
}

func NewList(elem TagID, values ...Tag) (*List, error) {
	if !elem.Valid() {
		return nil, fmt.Errorf("%w: unknown list element %s", ErrInvalidArgument, elem)
	}
	l := &List{elem: elem}
	for _, v := range values {
		if err := l.Add(v); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Elem returns the element variant, or TagEnd when the list is still untyped.
func (l *List) Elem() TagID {
	return l.elem
}

func (l *List) Len() int {
	return len(l.values)
}

func (l *List) Index(i int) Tag {
	return l.values[i]
}

// Values returns a copy of the list's elements.
func (l *List) Values() []Tag {
	out := make([]Tag, len(l.values))
	copy(out, l.values)
	return out
}

func (l *List) Add(v Tag) error {
	if isNil(v) {
		return fmt.Errorf("%w: nil list element", ErrInvalidArgument)
	}
	if l.elem == TagEnd && len(l.values) == 0 {
		l.elem = v.ID()
	} else if v.ID() != l.elem {
		return fmt.Errorf("%w: cannot add %s to list of %s", ErrInvalidArgument, v.ID(), l.elem)
	}
	l.values = append(l.values, v)
	return nil
}

func (l *List) equal(o *List) bool {
	if l.elem != o.elem || len(l.values) != len(o.values) {
		return false
	}
	for i := range l.values {
		if !Equal(l.values[i], o.values[i]) {
			return false
		}
	}
	return true
}

// Compound maps unique names to tags. Iteration follows insertion order so that
// encoding the same compound twice produces the same bytes.
type Compound struct {
	keys   []string
	values map[string]Tag
}

func NewCompound() *Compound {
	return &Compound{values: make(map[string]Tag)}
}

// Set stores value under name. Setting an existing name replaces the value but
// keeps the name's original position. A nil value, including a nil *List or
// *Compound, removes the entry.
func (c *Compound) Set(name string, value Tag) {
	if isNil(value) {
		c.Delete(name)
		return
	}
	if c.values == nil {
		c.values = make(map[string]Tag)
	}
	if _, ok := c.values[name]; !ok {
		c.keys = append(c.keys, name)
	}
	c.values[name] = value
}

func (c *Compound) Delete(name string) {
	if _, ok := c.values[name]; !ok {
		return
	}
	delete(c.values, name)
	for i, k := range c.keys {
		if k == name {
			c.keys = append(c.keys[:i], c.keys[i+1:]...)
			break
		}
	}
}

func (c *Compound) Get(name string) (Tag, bool) {
	v, ok := c.values[name]
	return v, ok
}

func (c *Compound) Len() int {
	return len(c.keys)
}

// Keys returns the member names in insertion order.
func (c *Compound) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Each calls fn for every member in insertion order until fn returns false.
func (c *Compound) Each(fn func(name string, value Tag) bool) {
	for _, k := range c.keys {
		if !fn(k, c.values[k]) {
			return
		}
	}
}

// Lookup fetches a member and asserts its variant in one step.
func Lookup[T Tag](c *Compound, name string) (v T, ok bool) {
	raw, found := c.values[name]
	if !found {
		return v, false
	}
	v, ok = raw.(T)
	return v, ok
}

// Compounds are equal when they hold the same names and values; member order
// does not matter.
func (c *Compound) equal(o *Compound) bool {
	if len(c.keys) != len(o.keys) {
		return false
	}
	for _, k := range c.keys {
		ov, ok := o.values[k]
		if !ok || !Equal(c.values[k], ov) {
			return false
		}
	}
	return true
}
