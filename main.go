package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/astei/blockschem/config"
)

var settings = config.Defaults()

func main() {
	app := &cli.App{
		Name:  "blockschem",
		Usage: "inspect and convert schematic files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "blockschem.yml",
				Usage:   "settings file; missing keys fall back to defaults",
			},
			&cli.BoolFlag{
				Name:  "write-config",
				Usage: "write the merged settings back to the settings file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "overrides log_level from the settings file",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			infoCommand,
			dumpCommand,
			convertCommand,
			convertAllCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "blockschem:", err)
		os.Exit(1)
	}
}

func setup(c *cli.Context) error {
	file, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("log-level") {
		file.Settings.LogLevel = c.String("log-level")
	}
	settings = file.Settings

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: settings.SlogLevel(),
	})))

	if c.Bool("write-config") && file.Changed {
		if err = file.Save(); err != nil {
			return fmt.Errorf("could not write settings: %w", err)
		}
		slog.Info("wrote settings", "path", file.Path)
	}
	return nil
}
