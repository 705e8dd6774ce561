package fractal

import (
	"fmt"
	"image/color"
)

// RGB is an opaque 8-bit color.
type RGB struct {
	R, G, B uint8
}

// InSet is the color of points that never escaped.
var InSet = RGB{}

// RGBA implements color.Color.
func (c RGB) RGBA() (r, g, b, a uint32) {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff}.RGBA()
}

var _ color.Color = RGB{}

// A Palette assigns a color to an iteration count in [0, maxIterations].
type Palette interface {
	Color(n, maxIterations int) RGB
}

// PaletteFunc adapts a function to Palette.
type PaletteFunc func(n, maxIterations int) RGB

func (f PaletteFunc) Color(n, maxIterations int) RGB {
	return f(n, maxIterations)
}

// Classic scales the count by 5, 10 and 15 per channel, wrapping at 256.
// Escape counts that are multiples of 256 come out black like InSet, so deep
// zooms with large budgets read better with the hsv or wheel palettes.
var Classic Palette = PaletteFunc(classic)

func classic(n, maxIterations int) RGB {
	if n == maxIterations {
		return InSet
	}

	return RGB{
		R: uint8((n * 5) % 256),
		G: uint8((n * 10) % 256),
		B: uint8((n * 15) % 256),
	}
}

// Colorize colors an iteration result with the Classic palette.
func Colorize(n, maxIterations int) (RGB, error) {
	if n < 0 || n > maxIterations {
		return RGB{}, fmt.Errorf("colorize %d of %d: %w", n, maxIterations, ErrIterationRange)
	}

	return Classic.Color(n, maxIterations), nil
}
