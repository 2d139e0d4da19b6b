package schematic

import (
	"fmt"
	"log/slog"

	"github.com/astei/blockschem/nbt"
)

// World is the part of a live world a schematic needs for its biome overlay.
type World interface {
	SetBiome(x, z int, biome string)
}

// BlockWorld is a world the default paster can write blocks into.
type BlockWorld interface {
	World
	Name() string
	SetBlock(x, y, z int, data nbt.Tag)
}

// Location is an absolute position in a live world.
type Location struct {
	World World
	X, Y, Z int
}

// Sender receives progress messages while pasting. The schematic passes it to
// the paster untouched.
type Sender interface {
	SendMessage(msg string)
}

// Paster places a schematic's blocks into a live world. Failures are the
// paster's own business and are reported through sender, not returned.
type Paster interface {
	Handle(s *Schematic, origin Location, sender Sender, includeAir bool)
}

// PasterFunc adapts a function to the Paster interface.
type PasterFunc func(s *Schematic, origin Location, sender Sender, includeAir bool)

func (f PasterFunc) Handle(s *Schematic, origin Location, sender Sender, includeAir bool) {
	f(s, origin, sender, includeAir)
}

// LogSender forwards messages to the default structured logger.
type LogSender struct{}

func (LogSender) SendMessage(msg string) {
	slog.Info(msg, "source", "paste")
}

// BlockPaster writes every block synchronously through BlockWorld.SetBlock.
type BlockPaster struct{}

var DefaultPaster Paster = BlockPaster{}

func (BlockPaster) Handle(s *Schematic, origin Location, sender Sender, includeAir bool) {
	world, ok := origin.World.(BlockWorld)
	if !ok {
		sender.SendMessage(fmt.Sprintf("cannot paste into %T: it does not accept blocks", origin.World))
		return
	}

	base := Position{X: origin.X, Y: origin.Y, Z: origin.Z}
	placed := 0
	for _, b := range s.blocks {
		if !includeAir && b.IsAir() {
			continue
		}
		p := base.Add(b.Position())
		world.SetBlock(p.X, p.Y, p.Z, b.Data())
		placed++
	}
	sender.SendMessage(fmt.Sprintf("Pasted %d of %d blocks into %s at %s", placed, len(s.blocks), world.Name(), base))
}

// Paste materializes the schematic at origin. Block placement is left entirely
// to paster; afterwards, if includeBiomes is set, every stored biome column is
// applied relative to origin. Biome columns are visited in no particular order.
//
// A nil paster selects DefaultPaster and a nil sender selects LogSender.
func (s *Schematic) Paste(origin Location, paster Paster, sender Sender, includeAir, includeBiomes bool) {
	if paster == nil {
		paster = DefaultPaster
	}
	if sender == nil {
		sender = LogSender{}
	}
	paster.Handle(s, origin, sender, includeAir)

	if !includeBiomes || len(s.biomes) == 0 || origin.World == nil {
		return
	}
	for biome, offsets := range s.biomes {
		for off := range offsets {
			origin.World.SetBiome(origin.X+off.X, origin.Z+off.Z, biome)
		}
	}
}
