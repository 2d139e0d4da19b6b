// Package config reads and writes the blockschem settings file.
//
// Settings are described by an explicit schema instead of struct tags: every
// field has a name, a kind, a default and a pair of accessors. Loading merges
// the file over the defaults; keys missing from the file are added so that the
// written file always lists every setting.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/astei/blockschem/nbt"
	"github.com/astei/blockschem/schematic"
)

var ErrInvalidSetting = errors.New("config: invalid setting")

type Settings struct {
	Format      string
	Compression string
	Workers     int
	LogLevel    string
}

type Kind int

const (
	KindString Kind = iota
	KindInt
)

func (k Kind) String() string {
	if k == KindInt {
		return "int"
	}
	return "string"
}

type Field struct {
	Name    string
	Kind    Kind
	Default any
	Get     func(s *Settings) any
	Set     func(s *Settings, v any) error
}

func oneOf(name string, allowed ...string) func(string) error {
	return func(v string) error {
		for _, a := range allowed {
			if v == a {
				return nil
			}
		}
		return fmt.Errorf("%w: %s must be one of %s, got %q", ErrInvalidSetting, name, strings.Join(allowed, ", "), v)
	}
}

var (
	checkFormat      = oneOf("format", "nbt", "zstd")
	checkCompression = oneOf("compression", "gzip", "zlib", "none")
	checkLogLevel    = oneOf("log_level", "debug", "info", "warn", "error")
)

// Schema lists every setting in the order it is written to disk.
var Schema = []Field{
	{
		Name:    "format",
		Kind:    KindString,
		Default: "nbt",
		Get:     func(s *Settings) any { return s.Format },
		Set: func(s *Settings, v any) error {
			s.Format = v.(string)
			return checkFormat(s.Format)
		},
	},
	{
		Name:    "compression",
		Kind:    KindString,
		Default: "gzip",
		Get:     func(s *Settings) any { return s.Compression },
		Set: func(s *Settings, v any) error {
			s.Compression = v.(string)
			return checkCompression(s.Compression)
		},
	},
	{
		Name:    "workers",
		Kind:    KindInt,
		Default: 4,
		Get:     func(s *Settings) any { return s.Workers },
		Set: func(s *Settings, v any) error {
			s.Workers = v.(int)
			if s.Workers < 1 {
				return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidSetting, s.Workers)
			}
			return nil
		},
	},
	{
		Name:    "log_level",
		Kind:    KindString,
		Default: "info",
		Get:     func(s *Settings) any { return s.LogLevel },
		Set: func(s *Settings, v any) error {
			s.LogLevel = v.(string)
			return checkLogLevel(s.LogLevel)
		},
	},
}

func Defaults() Settings {
	var s Settings
	for _, f := range Schema {
		// Defaults are valid by construction.
		_ = f.Set(&s, f.Default)
	}
	return s
}

// Loader returns the schematic loader the settings select.
func (s Settings) Loader() (schematic.Loader, error) {
	c, err := nbt.ParseCompression(s.Compression)
	if err != nil {
		return nil, err
	}
	return schematic.LoaderByName(s.Format, c)
}

func (s Settings) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// File is a settings document together with the YAML it was read from. Keys
// the schema does not know are kept as they are.
type File struct {
	Path     string
	Settings Settings
	// Changed reports whether defaults had to be added while loading.
	Changed bool

	doc *yaml.Node
}

// Load reads path. A missing file yields the defaults and is marked changed so
// that Save creates it.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		raw, err = nil, nil
	}
	if err != nil {
		return nil, err
	}
	f, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.Path = path
	return f, nil
}

func Parse(raw []byte) (*File, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: settings must be a mapping", ErrInvalidSetting)
	}

	f := &File{doc: &doc}
	mapping := doc.Content[0]
	for _, field := range Schema {
		node := lookup(mapping, field.Name)
		if node == nil {
			if err := field.Set(&f.Settings, field.Default); err != nil {
				return nil, err
			}
			mapping.Content = append(mapping.Content, scalarKey(field.Name), &yaml.Node{})
			f.Changed = true
			continue
		}

		var value any
		var err error
		switch field.Kind {
		case KindInt:
			var n int
			err = node.Decode(&n)
			value = n
		default:
			var s string
			err = node.Decode(&s)
			value = s
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be a %s: %s", ErrInvalidSetting, field.Name, field.Kind, err.Error())
		}
		if err = field.Set(&f.Settings, value); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Bytes renders the document with the current settings written back into it.
func (f *File) Bytes() ([]byte, error) {
	mapping := f.doc.Content[0]
	for _, field := range Schema {
		node := lookup(mapping, field.Name)
		if err := node.Encode(field.Get(&f.Settings)); err != nil {
			return nil, err
		}
	}
	return yaml.Marshal(f.doc)
}

func (f *File) Save() error {
	out, err := f.Bytes()
	if err != nil {
		return err
	}
	if err = os.WriteFile(f.Path, out, 0o644); err != nil {
		return err
	}
	f.Changed = false
	return nil
}

func lookup(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

func scalarKey(name string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name}
}
