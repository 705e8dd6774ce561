// Package palette provides named coloring policies for escape counts.
package palette

import (
	"fmt"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/willbeason/escape-fractal/pkg/fractal"
	"math"
	"sort"
	"strings"
)

const (
	Classic = "classic"
	Wheel   = "wheel"
	HSV     = "hsv"
	Gray    = "gray"
)

// hueStep is the fraction of the hue circle advanced per iteration.
const hueStep = 0.02

var wheel = [6]fractal.RGB{
	{R: 255},
	{R: 255, G: 255},
	{G: 255},
	{G: 255, B: 255},
	{B: 255},
	{R: 255, B: 255},
}

var palettes = map[string]fractal.Palette{
	Classic: fractal.Classic,
	Wheel:   bounded(wheelColor),
	HSV:     bounded(hsvColor),
	Gray:    bounded(grayColor),
}

// bounded colors counts outside [0, maxIterations) as InSet.
func bounded(f func(n, maxIterations int) fractal.RGB) fractal.Palette {
	return fractal.PaletteFunc(func(n, maxIterations int) fractal.RGB {
		if n < 0 || n >= maxIterations {
			return fractal.InSet
		}
		return f(n, maxIterations)
	})
}

// ByName returns the palette registered under name. Names are case-insensitive.
func ByName(name string) (fractal.Palette, error) {
	p, ok := palettes[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown palette %q, want one of %s", name, strings.Join(Names(), ", "))
	}

	return p, nil
}

// Names lists the registered palettes in sorted order.
func Names() []string {
	names := make([]string, 0, len(palettes))
	for name := range palettes {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

func wheelColor(n, _ int) fractal.RGB {
	return wheel[n%len(wheel)]
}

func hsvColor(n, _ int) fractal.RGB {
	hue := math.Mod(float64(n)*hueStep, 1.0)
	r, g, b := colorful.Hsv(hue*360.0, 1.0, 1.0).RGB255()

	return fractal.RGB{R: r, G: g, B: b}
}

func grayColor(n, maxIterations int) fractal.RGB {
	y := uint8(255 * n / maxIterations)

	return fractal.RGB{R: y, G: y, B: y}
}
