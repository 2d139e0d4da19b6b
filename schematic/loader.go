package schematic

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"github.com/astei/blockschem/nbt"
)

// Loader converts schematics to and from one persisted format.
type Loader interface {
	// Load reads a whole schematic. Structurally invalid input fails with an
	// error wrapping ErrMalformed.
	Load(r io.Reader) (*Schematic, error)
	Save(s *Schematic, w io.Writer) error
}

var DefaultLoader Loader = NBTLoader{Compression: nbt.CompressionGzip}

// LoaderByName resolves the format names accepted by the command line and the
// settings file.
func LoaderByName(format string, compression nbt.Compression) (Loader, error) {
	switch format {
	case "nbt", "":
		return NBTLoader{Compression: compression}, nil
	case "zstd":
		return ZstdLoader{}, nil
	case "auto":
		return AutoLoader{}, nil
	}
	return nil, fmt.Errorf("%w: unknown schematic format %q", ErrInvalidArgument, format)
}

// NBTLoader stores a schematic as a single named tag document, compressed with
// Compression. Load accepts any compression regardless of the field.
type NBTLoader struct {
	Compression nbt.Compression
}

func (l NBTLoader) Load(r io.Reader) (*Schematic, error) {
	root, _, err := nbt.ReadCompressed(r)
	if err != nil {
		return nil, err
	}
	return FromTag(root)
}

func (l NBTLoader) Save(s *Schematic, w io.Writer) error {
	root, err := s.Tag()
	if err != nil {
		return err
	}
	return nbt.WriteCompressed(w, root, l.Compression)
}

// AutoLoader picks the loader matching the stream's leading bytes. It saves
// with DefaultLoader.
type AutoLoader struct{}

func (AutoLoader) Load(r io.Reader) (*Schematic, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err == nil && IsZstdEnvelope(magic) {
		return ZstdLoader{}.Load(br)
	}
	return NBTLoader{}.Load(br)
}

func (AutoLoader) Save(s *Schematic, w io.Writer) error {
	return DefaultLoader.Save(s, w)
}

const rootName = "Schematic"

// Tag lays a schematic out as
//
//	Schematic: {
//	  Bounds: [minX, minY, minZ, maxX, maxY, maxZ],
//	  Blocks: [{Pos: [x, y, z], Data: <any>}, ...],
//	  Biomes: {<biome>: [x0, z0, x1, z1, ...], ...},
//	}
//
// Biomes and their offsets are sorted so equal schematics encode to equal bytes.
// Coordinates are stored as 32-bit ints; a schematic holding one outside that
// range fails with ErrInvalidArgument.
func (s *Schematic) Tag() (nbt.NamedTag, error) {
	root := nbt.NewCompound()

	b := s.bounds
	bounds, err := packInts("bounds", b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z)
	if err != nil {
		return nbt.NamedTag{}, err
	}
	root.Set("Bounds", bounds)

	blocks, _ := nbt.NewList(nbt.TagCompound)
	for _, block := range s.blocks {
		// Every position lies within the bounds checked above.
		p := block.Position()
		entry := nbt.NewCompound()
		entry.Set("Pos", nbt.IntArray{int32(p.X), int32(p.Y), int32(p.Z)})
		if block.Data() != nil {
			entry.Set("Data", block.Data())
		}
		_ = blocks.Add(entry)
	}
	root.Set("Blocks", blocks)

	biomes := nbt.NewCompound()
	for _, biome := range sortedBiomes(s.biomes) {
		offsets := sortedOffsets(s.biomes[biome])
		coords := make([]int, 0, len(offsets)*2)
		for _, o := range offsets {
			coords = append(coords, o.X, o.Z)
		}
		packed, err := packInts("biome "+biome+" offset", coords...)
		if err != nil {
			return nbt.NamedTag{}, err
		}
		biomes.Set(biome, packed)
	}
	root.Set("Biomes", biomes)

	return nbt.NamedTag{Name: rootName, Tag: root}, nil
}

func packInts(what string, values ...int) (nbt.IntArray, error) {
	out := make(nbt.IntArray, len(values))
	for i, v := range values {
		if v < math.MinInt32 || v > math.MaxInt32 {
			return nil, fmt.Errorf("%w: %s %d does not fit in 32 bits", ErrInvalidArgument, what, v)
		}
		out[i] = int32(v)
	}
	return out, nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: schematic: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

// FromTag rebuilds a schematic from a document laid out by Tag. Blocks are
// re-added in stored order so the bounds are derived again; a stored Bounds
// member that disagrees is rejected.
func FromTag(root nbt.NamedTag) (*Schematic, error) {
	c, ok := root.Tag.(*nbt.Compound)
	if !ok {
		return nil, malformed("root is %s, expected %s", root.Tag.ID(), nbt.TagCompound)
	}

	blocks, ok := nbt.Lookup[*nbt.List](c, "Blocks")
	if !ok {
		return nil, malformed("missing Blocks list")
	}
	if blocks.Len() > 0 && blocks.Elem() != nbt.TagCompound {
		return nil, malformed("Blocks holds %s, expected %s", blocks.Elem(), nbt.TagCompound)
	}

	s := New()
	for i := 0; i < blocks.Len(); i++ {
		entry := blocks.Index(i).(*nbt.Compound)
		pos, ok := nbt.Lookup[nbt.IntArray](entry, "Pos")
		if !ok || len(pos) != 3 {
			return nil, malformed("block %d has no valid Pos", i)
		}
		data, _ := entry.Get("Data")
		s.Add(NewBlock(Position{X: int(pos[0]), Y: int(pos[1]), Z: int(pos[2])}, data))
	}

	if raw, found := c.Get("Biomes"); found {
		biomes, ok := raw.(*nbt.Compound)
		if !ok {
			return nil, malformed("Biomes is %s, expected %s", raw.ID(), nbt.TagCompound)
		}
		var err error
		biomes.Each(func(biome string, value nbt.Tag) bool {
			packed, ok := value.(nbt.IntArray)
			if !ok || len(packed)%2 != 0 {
				err = malformed("biome %q has no valid offset array", biome)
				return false
			}
			for j := 0; j < len(packed); j += 2 {
				s.AddBiome(biome, Offset{X: int(packed[j]), Z: int(packed[j+1])})
			}
			return true
		})
		if err != nil {
			return nil, err
		}
	}

	if raw, found := c.Get("Bounds"); found {
		b, ok := raw.(nbt.IntArray)
		if !ok || len(b) != 6 {
			return nil, malformed("Bounds is not an array of six ints")
		}
		stored := Bounds{
			Min: Position{X: int(b[0]), Y: int(b[1]), Z: int(b[2])},
			Max: Position{X: int(b[3]), Y: int(b[4]), Z: int(b[5])},
		}
		if stored != s.bounds {
			return nil, malformed("stored bounds %v-%v disagree with blocks %v-%v",
				stored.Min, stored.Max, s.bounds.Min, s.bounds.Max)
		}
	}
	return s, nil
}
