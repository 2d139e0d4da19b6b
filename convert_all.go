package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/astei/blockschem/schematic"
	"github.com/astei/blockschem/worker"
)

var schematicExtensions = []string{".schem", ".nbt", ".schematic"}

var convertAllCommand = &cli.Command{
	Name:      "convert-all",
	Usage:     "convert every schematic in a directory concurrently",
	ArgsUsage: "DIR OUTDIR",
	Flags:     formatFlags(),
	Action: func(c *cli.Context) error {
		if c.NArg() != 2 {
			return cli.ShowSubcommandHelp(c)
		}
		loader, err := outputLoader(c)
		if err != nil {
			return err
		}
		return convertAll(c.Context, c.Args().Get(0), c.Args().Get(1), settings.Workers, loader)
	},
}

type conversionResult struct {
	name   string
	blocks int
	err    error
}

func discoverSchematics(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		for _, known := range schematicExtensions {
			if ext == known {
				slog.Debug("discovered schematic", "name", entry.Name())
				names = append(names, entry.Name())
				break
			}
		}
	}
	return names, nil
}

func convertAll(ctx context.Context, root, outRoot string, workers int, loader schematic.Loader) error {
	names, err := discoverSchematics(root)
	if err != nil {
		return err
	}
	if err = os.MkdirAll(outRoot, 0o755); err != nil {
		return err
	}

	pool := worker.New(workers)
	defer pool.Close()

	resultChan := make(chan conversionResult, len(names))
	for _, name := range names {
		name := name
		err = pool.Submit(func() {
			blocks, err := convertFile(ctx, filepath.Join(root, name), filepath.Join(outRoot, name), loader)
			resultChan <- conversionResult{name: name, blocks: blocks, err: err}
		})
		if err != nil {
			return err
		}
	}
	pool.Wait()
	close(resultChan)

	failed := 0
	total := 0
	for res := range resultChan {
		if res.err != nil {
			slog.Error("could not convert schematic", "name", res.name, "error", res.err)
			failed++
			continue
		}
		total += res.blocks
	}
	slog.Info("converted schematics", "files", len(names)-failed, "failed", failed, "blocks", total)
	if failed > 0 {
		return fmt.Errorf("%d of %d schematics failed to convert", failed, len(names))
	}
	return nil
}
