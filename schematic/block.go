package schematic

import (
	"fmt"

	"github.com/astei/blockschem/nbt"
)

// Position is a block coordinate relative to the schematic origin.
type Position struct {
	X, Y, Z int
}

func (p Position) Add(o Position) Position {
	return Position{X: p.X + o.X, Y: p.Y + o.Y, Z: p.Z + o.Z}
}

func (p Position) String() string {
	return fmt.Sprintf("(%d, %d, %d)", p.X, p.Y, p.Z)
}

// Offset is a horizontal (x, z) position relative to the schematic origin, used
// to key the biome overlay.
type Offset struct {
	X, Z int
}

// Block is one positioned entry of a schematic. The zero value is an air-like
// entry at the origin with no data.
type Block struct {
	position Position
	data     nbt.Tag
}

func NewBlock(position Position, data nbt.Tag) Block {
	return Block{position: position, data: data}
}

func (b Block) Position() Position {
	return b.position
}

// Data returns the persisted block state, usually a compound holding an "id"
// string and any extra state. It may be nil.
func (b Block) Data() nbt.Tag {
	return b.data
}

func (b Block) Equal(o Block) bool {
	return b.position == o.position && nbt.Equal(b.data, o.data)
}

var airIDs = map[string]bool{
	"air":                true,
	"minecraft:air":      true,
	"minecraft:cave_air": true,
	"minecraft:void_air": true,
}

// IsAir reports whether the block carries no data or names one of the air
// block types in its "id" member.
func (b Block) IsAir() bool {
	switch data := b.data.(type) {
	case nil:
		return true
	case nbt.String:
		return airIDs[string(data)]
	case *nbt.Compound:
		id, ok := nbt.Lookup[nbt.String](data, "id")
		return ok && airIDs[string(id)]
	}
	return false
}
