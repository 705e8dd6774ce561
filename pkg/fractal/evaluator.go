// Package fractal evaluates the Mandelbrot set with the escape-time algorithm.
//
// The functions here are pure and safe for concurrent use. Rendering to a
// pixel buffer lives in package render.
package fractal

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrRowLength     = errors.New("row buffer length does not match width")
)

// Config is everything needed to evaluate a frame.
type Config struct {
	Viewport      Viewport
	MaxIterations int
}

func (c Config) Validate() error {
	if err := c.Viewport.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("%w: max iterations %d must be at least 1", ErrInvalidConfig, c.MaxIterations)
	}

	return nil
}

// An Evaluator is a validated Config together with a Palette. It exposes the
// frame as a function of pixel coordinates.
type Evaluator struct {
	cfg     Config
	palette Palette
}

// NewEvaluator validates cfg. A nil palette means Classic.
func NewEvaluator(cfg Config, p Palette) (*Evaluator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if p == nil {
		p = Classic
	}

	return &Evaluator{cfg: cfg, palette: p}, nil
}

func (e *Evaluator) Config() Config {
	return e.cfg
}

func (e *Evaluator) Viewport() Viewport {
	return e.cfg.Viewport
}

// IterationsAt returns the escape count of pixel (x, y).
func (e *Evaluator) IterationsAt(x, y int) (int, error) {
	v := e.cfg.Viewport
	if x < 0 || x >= v.Width || y < 0 || y >= v.Height {
		return 0, fmt.Errorf("pixel (%d, %d) outside %dx%d: %w", x, y, v.Width, v.Height, ErrPixelOutOfRange)
	}

	return iterate(v.point(x, y), e.cfg.MaxIterations), nil
}

// At returns the color of pixel (x, y).
func (e *Evaluator) At(x, y int) (RGB, error) {
	n, err := e.IterationsAt(x, y)
	if err != nil {
		return RGB{}, err
	}

	return e.palette.Color(n, e.cfg.MaxIterations), nil
}

// Row fills dst with the colors of row y. dst must hold Width entries.
func (e *Evaluator) Row(y int, dst []RGB) error {
	v := e.cfg.Viewport
	if y < 0 || y >= v.Height {
		return fmt.Errorf("row %d outside height %d: %w", y, v.Height, ErrPixelOutOfRange)
	}
	if len(dst) != v.Width {
		return fmt.Errorf("row buffer holds %d pixels, want %d: %w", len(dst), v.Width, ErrRowLength)
	}

	for x := range dst {
		n := iterate(v.point(x, y), e.cfg.MaxIterations)
		dst[x] = e.palette.Color(n, e.cfg.MaxIterations)
	}

	return nil
}
