// Package config loads render settings from defaults, a TOML or YAML file,
// and command-line flags, in increasing order of precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"
	"github.com/willbeason/escape-fractal/pkg/fractal"
	"gopkg.in/yaml.v3"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	DefaultReStart       = -2.0
	DefaultReEnd         = 1.0
	DefaultImStart       = -1.5
	DefaultImEnd         = 1.5
	DefaultWidth         = 800
	DefaultHeight        = 800
	DefaultMaxIterations = 100
	DefaultPalette       = "classic"
	DefaultOutput        = "out.png"
)

type Config struct {
	ReStart float64 `toml:"re_start" yaml:"re_start"`
	ReEnd   float64 `toml:"re_end" yaml:"re_end"`
	ImStart float64 `toml:"im_start" yaml:"im_start"`
	ImEnd   float64 `toml:"im_end" yaml:"im_end"`

	Width  int `toml:"width" yaml:"width"`
	Height int `toml:"height" yaml:"height"`

	MaxIterations int    `toml:"max_iterations" yaml:"max_iterations"`
	Palette       string `toml:"palette" yaml:"palette"`

	// FlipY renders the imaginary axis increasing upward.
	FlipY bool `toml:"flip_y" yaml:"flip_y"`

	// Workers is the number of render goroutines; zero means one per CPU.
	Workers int `toml:"workers" yaml:"workers"`

	Output string `toml:"output" yaml:"output"`
}

func Default() Config {
	return Config{
		ReStart:       DefaultReStart,
		ReEnd:         DefaultReEnd,
		ImStart:       DefaultImStart,
		ImEnd:         DefaultImEnd,
		Width:         DefaultWidth,
		Height:        DefaultHeight,
		MaxIterations: DefaultMaxIterations,
		Palette:       DefaultPalette,
		Output:        DefaultOutput,
	}
}

// Load reads path over the defaults. The format follows the extension:
// .toml, .yaml or .yml.
func Load(path string) (Config, error) {
	c := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}

	err = c.decode(filepath.Ext(path), data)
	if err != nil {
		return c, fmt.Errorf("load %s: %w", path, err)
	}

	return c, nil
}

func (c *Config) decode(ext string, data []byte) error {
	switch strings.ToLower(ext) {
	case ".toml":
		d := toml.NewDecoder(bytes.NewReader(data))
		d.DisallowUnknownFields()
		return d.Decode(c)
	case ".yaml", ".yml":
		d := yaml.NewDecoder(bytes.NewReader(data))
		d.KnownFields(true)
		err := d.Decode(c)
		// An empty document leaves the defaults in place.
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return fmt.Errorf("unsupported config format %q", ext)
}

// BindFlags registers a flag for every field of c, using the current values
// as defaults. Parsing the flag set overwrites the fields.
func BindFlags(fs *pflag.FlagSet, c *Config) {
	fs.Float64Var(&c.ReStart, "re-start", c.ReStart, "left edge of the real axis")
	fs.Float64Var(&c.ReEnd, "re-end", c.ReEnd, "right edge of the real axis")
	fs.Float64Var(&c.ImStart, "im-start", c.ImStart, "imaginary value of the first pixel row")
	fs.Float64Var(&c.ImEnd, "im-end", c.ImEnd, "imaginary value past the last pixel row")
	fs.IntVarP(&c.Width, "width", "W", c.Width, "image width in pixels")
	fs.IntVarP(&c.Height, "height", "H", c.Height, "image height in pixels")
	fs.IntVarP(&c.MaxIterations, "max-iterations", "n", c.MaxIterations, "iteration budget per pixel")
	fs.StringVarP(&c.Palette, "palette", "p", c.Palette, "color palette name")
	fs.BoolVar(&c.FlipY, "flip-y", c.FlipY, "draw the imaginary axis increasing upward")
	fs.IntVar(&c.Workers, "workers", c.Workers, "render goroutines (0 for one per CPU)")
	fs.StringVarP(&c.Output, "output", "o", c.Output, "output image path; the extension selects the format")
}

// Override copies the fields of other whose flags were set on fs onto c.
func (c *Config) Override(fs *pflag.FlagSet, other Config) {
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "re-start":
			c.ReStart = other.ReStart
		case "re-end":
			c.ReEnd = other.ReEnd
		case "im-start":
			c.ImStart = other.ImStart
		case "im-end":
			c.ImEnd = other.ImEnd
		case "width":
			c.Width = other.Width
		case "height":
			c.Height = other.Height
		case "max-iterations":
			c.MaxIterations = other.MaxIterations
		case "palette":
			c.Palette = other.Palette
		case "flip-y":
			c.FlipY = other.FlipY
		case "workers":
			c.Workers = other.Workers
		case "output":
			c.Output = other.Output
		}
	})
}

func (c Config) Viewport() fractal.Viewport {
	return fractal.Viewport{
		ReStart: c.ReStart,
		ReEnd:   c.ReEnd,
		ImStart: c.ImStart,
		ImEnd:   c.ImEnd,
		Width:   c.Width,
		Height:  c.Height,
	}
}

// SetViewport replaces the bounds and size with those of v.
func (c *Config) SetViewport(v fractal.Viewport) {
	c.ReStart, c.ReEnd = v.ReStart, v.ReEnd
	c.ImStart, c.ImEnd = v.ImStart, v.ImEnd
	c.Width, c.Height = v.Width, v.Height
}

// Fractal validates c and returns the evaluator configuration.
func (c Config) Fractal() (fractal.Config, error) {
	fc := fractal.Config{Viewport: c.Viewport(), MaxIterations: c.MaxIterations}
	if err := fc.Validate(); err != nil {
		return fractal.Config{}, err
	}
	if c.Workers < 0 {
		return fractal.Config{}, fmt.Errorf("%w: workers %d is negative", fractal.ErrInvalidConfig, c.Workers)
	}

	return fc, nil
}
