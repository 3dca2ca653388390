package config

import (
	"bytes"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/vtprint/vtp/pkg/errors"
)

// Format is a project file syntax.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatFor picks the format from a file extension. JSON is read as YAML.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml", ".json":
		return FormatYAML, nil
	}
	return "", errors.New(errors.ErrCodeUnsupported, "unknown project file type %q (want .toml, .yaml or .yml)", filepath.Ext(path))
}

// Load reads, defaults and validates a project file. Relative paths inside
// it are resolved against its directory.
func Load(path string) (*Config, error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "project file %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "read project file")
	}
	c, err := Parse(data, format)
	if err != nil {
		return nil, err
	}
	c.Dir = filepath.Dir(path)
	return c, nil
}

// Parse decodes a project file. Omitted settings take their defaults and
// unknown keys are rejected.
func Parse(data []byte, format Format) (*Config, error) {
	c := Default()
	switch format {
	case FormatTOML:
		md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&c)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "parse toml")
		}
		if k := unknownKeys(md.Undecoded()); len(k) > 0 {
			return nil, errors.New(errors.ErrCodeConfiguration, "unknown keys: %s", strings.Join(k, ", "))
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&c); err != nil && !stderrors.Is(err, io.EOF) {
			return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "parse yaml")
		}
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "unknown format %q", format)
	}
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// unknownKeys drops keys below a region's solid table, which is decoded
// separately.
func unknownKeys(keys []toml.Key) []string {
	var out []string
	for _, k := range keys {
		if len(k) >= 2 && k[0] == "regions" && k[1] == "solid" {
			continue
		}
		out = append(out, k.String())
	}
	return out
}

// Encode writes c in the given format.
func Encode(w io.Writer, c *Config, format Format) error {
	switch format {
	case FormatTOML:
		return toml.NewEncoder(w).Encode(c)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return err
		}
		return enc.Close()
	}
	return errors.New(errors.ErrCodeUnsupported, "unknown format %q", format)
}

// Sample returns a small two-region project: a graded core inside a box and
// a thicker shell everywhere else.
func Sample() *Config {
	c := Default()
	c.Regions = []Region{
		{
			Name:       "core",
			Multiplier: "1.0",
			Geometry:   "1 + z/40",
			Solid: map[string]any{
				"type": "box",
				"min":  []float64{90, 90, 0},
				"max":  []float64{110, 110, 20},
			},
		},
		{
			Name:       "shell",
			Multiplier: "1.1",
			Geometry:   "1.0",
			Solid:      map[string]any{"type": "everywhere"},
		},
	}
	return &c
}
