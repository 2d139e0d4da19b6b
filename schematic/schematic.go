package schematic

import (
	"fmt"
	"sort"

	"github.com/astei/blockschem/nbt"
)

var ErrMalformed = nbt.ErrMalformed
var ErrInvalidArgument = nbt.ErrInvalidArgument

// Bounds is an axis aligned box in schematic-relative coordinates.
type Bounds struct {
	Min Position
	Max Position
}

func (b Bounds) Contains(p Position) bool {
	return b.Min.X <= p.X && p.X <= b.Max.X &&
		b.Min.Y <= p.Y && p.Y <= b.Max.Y &&
		b.Min.Z <= p.Z && p.Z <= b.Max.Z
}

// widen grows one axis to include v. The checks are exclusive: a coordinate
// that lowers the minimum never also raises the maximum. Both bounds start at
// zero and min <= max always holds, so no coordinate can do both.
func widen(lo, hi *int, v int) {
	if v < *lo {
		*lo = v
	} else if v > *hi {
		*hi = v
	}
}

// Schematic is an ordered, append-only collection of blocks with a biome
// overlay. Its bounds start at the origin and grow with every added block.
//
// A Schematic does no locking. Populate it from a single goroutine; once
// populated it may be read (pasted, saved) from many.
type Schematic struct {
	blocks []Block
	biomes map[string]map[Offset]struct{}
	bounds Bounds
}

func New() *Schematic {
	return &Schematic{biomes: make(map[string]map[Offset]struct{})}
}

// Of creates a schematic holding blocks in the given order.
func Of(blocks ...Block) *Schematic {
	s := New()
	s.AddAll(blocks)
	return s
}

func (s *Schematic) Add(block Block) {
	s.blocks = append(s.blocks, block)

	p := block.Position()
	widen(&s.bounds.Min.Y, &s.bounds.Max.Y, p.Y)
	widen(&s.bounds.Min.Z, &s.bounds.Max.Z, p.Z)
	widen(&s.bounds.Min.X, &s.bounds.Max.X, p.X)
}

func (s *Schematic) AddAll(blocks []Block) {
	for _, b := range blocks {
		s.Add(b)
	}
}

// AddBiome records that biome applies to the column at offset.
func (s *Schematic) AddBiome(biome string, offset Offset) {
	if s.biomes == nil {
		s.biomes = make(map[string]map[Offset]struct{})
	}
	offsets, ok := s.biomes[biome]
	if !ok {
		offsets = make(map[Offset]struct{})
		s.biomes[biome] = offsets
	}
	offsets[offset] = struct{}{}
}

// Len returns the number of stored blocks.
func (s *Schematic) Len() int {
	return len(s.blocks)
}

func (s *Schematic) Block(i int) Block {
	return s.blocks[i]
}

// Blocks returns a copy of the stored blocks in insertion order.
func (s *Schematic) Blocks() []Block {
	out := make([]Block, len(s.blocks))
	copy(out, s.blocks)
	return out
}

// Biomes returns the biome overlay with each biome's offsets sorted by z, then
// x.
func (s *Schematic) Biomes() map[string][]Offset {
	out := make(map[string][]Offset, len(s.biomes))
	for biome, offsets := range s.biomes {
		out[biome] = sortedOffsets(offsets)
	}
	return out
}

func (s *Schematic) BiomeCount() int {
	n := 0
	for _, offsets := range s.biomes {
		n += len(offsets)
	}
	return n
}

func (s *Schematic) Bounds() Bounds {
	return s.bounds
}

func (s *Schematic) Width() int {
	return s.bounds.Max.X - s.bounds.Min.X
}

func (s *Schematic) Height() int {
	return s.bounds.Max.Y - s.bounds.Min.Y
}

func (s *Schematic) Length() int {
	return s.bounds.Max.Z - s.bounds.Min.Z
}

func sortedOffsets(set map[Offset]struct{}) []Offset {
	out := make([]Offset, 0, len(set))
	for o := range set {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Z != out[j].Z {
			return out[i].Z < out[j].Z
		}
		return out[i].X < out[j].X
	})
	return out
}

func sortedBiomes(biomes map[string]map[Offset]struct{}) []string {
	names := make([]string, 0, len(biomes))
	for name := range biomes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LiveBlock is a block read from a running world.
type LiveBlock interface {
	World() string
	X() int
	Y() int
	Z() int
	Biome() string
	Data() nbt.Tag
}

// Capture builds a schematic from live blocks, positioned relative to start.
func Capture(start LiveBlock, blocks []LiveBlock) (*Schematic, error) {
	s := New()
	if err := s.AddLive(start, blocks); err != nil {
		return nil, err
	}
	return s, nil
}

// AddLive adds live blocks relative to start and records each block's biome at
// its horizontal offset. Every block must belong to start's world; if one does
// not, nothing is added.
func (s *Schematic) AddLive(start LiveBlock, blocks []LiveBlock) error {
	for _, b := range blocks {
		if b.World() != start.World() {
			return fmt.Errorf("%w: block at (%d, %d, %d) is in world %q, expected %q",
				ErrInvalidArgument, b.X(), b.Y(), b.Z(), b.World(), start.World())
		}
	}

	entries := make([]Block, 0, len(blocks))
	for _, b := range blocks {
		dx, dz := b.X()-start.X(), b.Z()-start.Z()
		if biome := b.Biome(); biome != "" {
			s.AddBiome(biome, Offset{X: dx, Z: dz})
		}
		entries = append(entries, NewBlock(Position{X: dx, Y: b.Y() - start.Y(), Z: dz}, b.Data()))
	}
	s.AddAll(entries)
	return nil
}
