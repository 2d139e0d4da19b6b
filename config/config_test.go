package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/astei/blockschem/nbt"
	"github.com/astei/blockschem/schematic"
)

func TestDefaults(t *testing.T) {
	assert.Equal(t, Settings{Format: "nbt", Compression: "gzip", Workers: 4, LogLevel: "info"}, Defaults())
}

func TestParseEmptyDocumentUsesDefaults(t *testing.T) {
	f, err := Parse(nil)
	require.NoError(t, err)
	assert.True(t, f.Changed)
	assert.Equal(t, Defaults(), f.Settings)
}

func TestParseOverridesAndFillsMissingKeys(t *testing.T) {
	f, err := Parse([]byte("# tuned for the build server\nformat: zstd\nworkers: 8\nextra: kept\n"))
	require.NoError(t, err)
	assert.True(t, f.Changed)
	assert.Equal(t, Settings{Format: "zstd", Compression: "gzip", Workers: 8, LogLevel: "info"}, f.Settings)

	out, err := f.Bytes()
	require.NoError(t, err)
	assert.Contains(t, string(out), "# tuned for the build server")

	var written map[string]any
	require.NoError(t, yaml.Unmarshal(out, &written))
	assert.Equal(t, map[string]any{
		"format":      "zstd",
		"workers":     8,
		"extra":       "kept",
		"compression": "gzip",
		"log_level":   "info",
	}, written)
}

func TestParseCompleteDocumentIsUnchanged(t *testing.T) {
	f, err := Parse([]byte("format: nbt\ncompression: zlib\nworkers: 2\nlog_level: debug\n"))
	require.NoError(t, err)
	assert.False(t, f.Changed)
	assert.Equal(t, slog.LevelDebug, f.Settings.SlogLevel())
}

func TestParseRejectsInvalidValues(t *testing.T) {
	for name, doc := range map[string]string{
		"unknown format":  "format: schem2\n",
		"bad compression": "compression: lzma\n",
		"workers not int": "workers: many\n",
		"workers too low": "workers: 0\n",
		"bad log level":   "log_level: loud\n",
		"not a mapping":   "- format\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidSetting), err.Error())
		})
	}
}

func TestSettingsLoader(t *testing.T) {
	s := Defaults()
	l, err := s.Loader()
	require.NoError(t, err)
	assert.Equal(t, schematic.NBTLoader{Compression: nbt.CompressionGzip}, l)

	s.Format = "zstd"
	l, err = s.Loader()
	require.NoError(t, err)
	assert.Equal(t, schematic.ZstdLoader{}, l)
}

func TestLoadAndSaveFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blockschem.yml")

	f, err := Load(path)
	require.NoError(t, err)
	assert.True(t, f.Changed)

	f.Settings.Workers = 16
	require.NoError(t, f.Save())
	assert.False(t, f.Changed)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "workers: 16")

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.False(t, reloaded.Changed)
	assert.Equal(t, 16, reloaded.Settings.Workers)
}
