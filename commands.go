package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/astei/blockschem/nbt"
	"github.com/astei/blockschem/schematic"
)

var infoCommand = &cli.Command{
	Name:      "info",
	Usage:     "print the size and contents of a schematic",
	ArgsUsage: "FILE",
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return cli.ShowSubcommandHelp(c)
		}
		s, err := loadFile(c.Args().First())
		if err != nil {
			return err
		}
		printInfo(c.App.Writer, c.Args().First(), s)
		return nil
	},
}

var dumpCommand = &cli.Command{
	Name:      "dump",
	Usage:     "print the tag tree of a schematic or any other tag file",
	ArgsUsage: "FILE",
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return cli.ShowSubcommandHelp(c)
		}
		root, err := readTree(c.Args().First())
		if err != nil {
			return err
		}
		return nbt.Dump(c.App.Writer, root)
	},
}

func formatFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "format",
			Usage: "output format: nbt or zstd (default from settings)",
		},
		&cli.StringFlag{
			Name:  "compression",
			Usage: "compression for the nbt format: gzip, zlib or none (default from settings)",
		},
	}
}

var convertCommand = &cli.Command{
	Name:      "convert",
	Usage:     "rewrite a schematic in another format",
	ArgsUsage: "IN OUT",
	Flags:     formatFlags(),
	Action: func(c *cli.Context) error {
		if c.NArg() != 2 {
			return cli.ShowSubcommandHelp(c)
		}
		loader, err := outputLoader(c)
		if err != nil {
			return err
		}
		in, out := c.Args().Get(0), c.Args().Get(1)
		blocks, err := convertFile(c.Context, in, out, loader)
		if err != nil {
			return err
		}
		slog.Info("converted schematic", "in", in, "out", out, "blocks", blocks)
		return nil
	},
}

func outputLoader(c *cli.Context) (schematic.Loader, error) {
	s := settings
	if c.IsSet("format") {
		s.Format = c.String("format")
	}
	if c.IsSet("compression") {
		s.Compression = c.String("compression")
	}
	return s.Loader()
}

func loadFile(path string) (*schematic.Schematic, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	s, err := schematic.Load(f, schematic.AutoLoader{})
	if err != nil {
		return nil, fmt.Errorf("could not load %s: %w", path, err)
	}
	return s, nil
}

// convertFile is safe to call from worker goroutines: the context it saves
// with is never the primary one, so the save completes before it returns.
func convertFile(ctx context.Context, in, out string, loader schematic.Loader) (int, error) {
	s, err := loadFile(in)
	if err != nil {
		return 0, err
	}
	f, err := os.Create(out)
	if err != nil {
		return 0, err
	}
	if err = s.Save(ctx, f, loader); err != nil {
		return 0, fmt.Errorf("could not save %s: %w", out, err)
	}
	return s.Len(), nil
}

func readTree(path string) (root nbt.NamedTag, err error) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	br := bufio.NewReader(f)
	if magic, _ := br.Peek(2); schematic.IsZstdEnvelope(magic) {
		var s *schematic.Schematic
		if s, err = (schematic.ZstdLoader{}).Load(br); err != nil {
			return
		}
		return s.Tag()
	}
	root, _, err = nbt.ReadCompressed(br)
	return
}

func printInfo(w io.Writer, name string, s *schematic.Schematic) {
	b := s.Bounds()
	fmt.Fprintf(w, "%s\n", name)
	fmt.Fprintf(w, "  blocks:     %d\n", s.Len())
	fmt.Fprintf(w, "  bounds:     %s to %s\n", b.Min, b.Max)
	fmt.Fprintf(w, "  dimensions: %dx%dx%d (width x height x length)\n", s.Width(), s.Height(), s.Length())
	fmt.Fprintf(w, "  biomes:     %d columns in %d biomes\n", s.BiomeCount(), len(s.Biomes()))
}
