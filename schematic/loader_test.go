package schematic

import (
	"bytes"
	"errors"
	"io"
	"math"
	"strconv"
	"testing"

	"github.com/astei/blockschem/nbt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *Schematic {
	s := Of(
		at(0, 0, 0, "minecraft:stone"),
		at(-3, 2, 8, "minecraft:glass"),
		NewBlock(Position{X: 4, Y: -1, Z: 2}, nil),
		NewBlock(Position{X: 4, Y: -1, Z: 2}, nbt.String("minecraft:torch")),
		at(1, 12, -6, "minecraft:chest"),
	)
	s.AddBiome("minecraft:plains", Offset{X: 0, Z: 0})
	s.AddBiome("minecraft:plains", Offset{X: -3, Z: 8})
	s.AddBiome("minecraft:river", Offset{X: 4, Z: 2})
	return s
}

func assertSameSchematic(t *testing.T, expected, actual *Schematic) {
	t.Helper()
	require.Equal(t, expected.Len(), actual.Len())
	for i := 0; i < expected.Len(); i++ {
		assert.True(t, expected.Block(i).Equal(actual.Block(i)), "block %d", i)
	}
	assert.Equal(t, expected.Bounds(), actual.Bounds())
	assert.Equal(t, expected.Biomes(), actual.Biomes())
}

func TestLoaderRoundTrip(t *testing.T) {
	loaders := map[string]Loader{
		"nbt raw":  NBTLoader{Compression: nbt.CompressionNone},
		"nbt gzip": NBTLoader{Compression: nbt.CompressionGzip},
		"nbt zlib": NBTLoader{Compression: nbt.CompressionZlib},
		"zstd":     ZstdLoader{},
		"auto":     AutoLoader{},
	}
	for name, loader := range loaders {
		t.Run(name, func(t *testing.T) {
			original := sample()
			var buf bytes.Buffer
			require.NoError(t, loader.Save(original, &buf))

			loaded, err := loader.Load(&buf)
			require.NoError(t, err)
			assertSameSchematic(t, original, loaded)
		})
	}
}

func TestRoundTripEmptySchematic(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, DefaultLoader.Save(New(), &buf))
	loaded, err := DefaultLoader.Load(&buf)
	require.NoError(t, err)
	assertSameSchematic(t, New(), loaded)
}

func TestSaveIsDeterministic(t *testing.T) {
	var first, second bytes.Buffer
	require.NoError(t, NBTLoader{}.Save(sample(), &first))
	require.NoError(t, NBTLoader{}.Save(sample(), &second))
	assert.Equal(t, first.Bytes(), second.Bytes())
}

func TestAutoLoaderReadsEveryFormat(t *testing.T) {
	for _, loader := range []Loader{ZstdLoader{}, NBTLoader{Compression: nbt.CompressionZlib}, NBTLoader{}} {
		var buf bytes.Buffer
		require.NoError(t, loader.Save(sample(), &buf))
		loaded, err := AutoLoader{}.Load(&buf)
		require.NoError(t, err)
		assertSameSchematic(t, sample(), loaded)
	}
}

func TestLoaderByName(t *testing.T) {
	l, err := LoaderByName("nbt", nbt.CompressionZlib)
	require.NoError(t, err)
	assert.Equal(t, NBTLoader{Compression: nbt.CompressionZlib}, l)

	l, err = LoaderByName("zstd", nbt.CompressionNone)
	require.NoError(t, err)
	assert.Equal(t, ZstdLoader{}, l)

	_, err = LoaderByName("schem2", nbt.CompressionNone)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func encodeDocument(t *testing.T, root nbt.NamedTag) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, nbt.NewEncoder(&buf).Encode(root))
	return &buf
}

func sampleTag(t *testing.T) nbt.NamedTag {
	t.Helper()
	root, err := sample().Tag()
	require.NoError(t, err)
	return root
}

func TestLoadRejectsMalformedDocuments(t *testing.T) {
	tampered := func(edit func(c *nbt.Compound)) nbt.NamedTag {
		root := sampleTag(t)
		edit(root.Tag.(*nbt.Compound))
		return root
	}
	badPos := nbt.NewCompound()
	badPos.Set("Pos", nbt.IntArray{1, 2})
	badPosList, _ := nbt.NewList(nbt.TagCompound, badPos)
	stringList, _ := nbt.NewList(nbt.TagString, nbt.String("stone"))

	cases := map[string]nbt.NamedTag{
		"root not compound": {Name: "Schematic", Tag: nbt.Int(1)},
		"missing blocks":    tampered(func(c *nbt.Compound) { c.Delete("Blocks") }),
		"blocks of strings": tampered(func(c *nbt.Compound) { c.Set("Blocks", stringList) }),
		"bad pos":           tampered(func(c *nbt.Compound) { c.Set("Blocks", badPosList) }),
		"bounds mismatch":   tampered(func(c *nbt.Compound) { c.Set("Bounds", nbt.IntArray{0, 0, 0, 1, 1, 1}) }),
		"short bounds":      tampered(func(c *nbt.Compound) { c.Set("Bounds", nbt.IntArray{0, 0, 0}) }),
		"biomes not compound": tampered(func(c *nbt.Compound) {
			c.Set("Biomes", nbt.String("plains"))
		}),
		"odd biome offsets": tampered(func(c *nbt.Compound) {
			biomes := nbt.NewCompound()
			biomes.Set("minecraft:plains", nbt.IntArray{1, 2, 3})
			c.Set("Biomes", biomes)
		}),
	}
	for name, root := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NBTLoader{}.Load(encodeDocument(t, root))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformed), err.Error())
		})
	}
}

func TestLoadWithoutOptionalMembers(t *testing.T) {
	root := sampleTag(t)
	root.Tag.(*nbt.Compound).Delete("Bounds")
	root.Tag.(*nbt.Compound).Delete("Biomes")

	loaded, err := NBTLoader{}.Load(encodeDocument(t, root))
	require.NoError(t, err)
	assert.Equal(t, sample().Bounds(), loaded.Bounds())
	assert.Empty(t, loaded.Biomes())
}

func TestZstdLoaderRejectsBadEnvelopes(t *testing.T) {
	var good bytes.Buffer
	require.NoError(t, ZstdLoader{}.Save(sample(), &good))
	raw := good.Bytes()

	badMagic := append([]byte{0xCA, 0xFE}, raw[2:]...)
	badVersion := append([]byte{raw[0], raw[1], 9}, raw[3:]...)
	badFrame := append(append([]byte{}, raw[:11]...), bytes.Repeat([]byte{0x42}, len(raw)-11)...)

	cases := map[string][]byte{
		"empty":           {},
		"bad magic":       badMagic,
		"bad version":     badVersion,
		"truncated sizes": raw[:5],
		"truncated frame": raw[:len(raw)-3],
		"corrupt frame":   badFrame,
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ZstdLoader{}.Load(bytes.NewReader(data))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformed), err.Error())
		})
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestLoadSurfacesReadErrors(t *testing.T) {
	_, err := NBTLoader{}.Load(failingReader{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, io.ErrClosedPipe))
	assert.False(t, errors.Is(err, ErrMalformed))
}

func TestSaveRejectsCoordinatesBeyondInt32(t *testing.T) {
	if strconv.IntSize == 32 {
		t.Skip("int cannot hold the coordinate")
	}
	limit := int64(math.MaxInt32)
	far := int(limit + 1)

	blocks := Of(NewBlock(Position{X: far}, nbt.String("minecraft:stone")))
	biomes := New()
	biomes.AddBiome("minecraft:plains", Offset{Z: -far - 1})

	for name, s := range map[string]*Schematic{"block": blocks, "biome": biomes} {
		t.Run(name, func(t *testing.T) {
			_, err := s.Tag()
			assert.ErrorIs(t, err, ErrInvalidArgument)
			for _, loader := range []Loader{NBTLoader{}, ZstdLoader{}} {
				var buf bytes.Buffer
				assert.ErrorIs(t, loader.Save(s, &buf), ErrInvalidArgument)
			}
		})
	}

	edge := Of(NewBlock(Position{X: math.MaxInt32, Y: math.MinInt32}, nil))
	var buf bytes.Buffer
	require.NoError(t, DefaultLoader.Save(edge, &buf))
	loaded, err := DefaultLoader.Load(&buf)
	require.NoError(t, err)
	assertSameSchematic(t, edge, loaded)
}
