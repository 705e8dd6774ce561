// Package render fills a Surface with a Mandelbrot frame using a pool of
// workers, one band of rows at a time.
package render

import (
	"context"
	"errors"
	"fmt"
	"github.com/willbeason/escape-fractal/pkg/fractal"
	"golang.org/x/sync/errgroup"
	"image"
	"runtime"
	"sync"
)

const DefaultBandHeight = 16

var ErrSizeMismatch = errors.New("surface size does not match viewport")

// Band is a finished horizontal strip of the frame. Rows Y0 up to but not
// including Y1 are in surface coordinates. Pixels is row-major.
type Band struct {
	Y0, Y1 int
	Width  int
	Pixels []fractal.RGB
}

func (b Band) At(x, y int) fractal.RGB {
	return b.Pixels[(y-b.Y0)*b.Width+x]
}

type Options struct {
	// Workers is the number of concurrent band renderers. Zero means one per CPU.
	Workers int

	// BandHeight is the number of rows rendered per unit of work.
	BandHeight int

	// FlipY makes the imaginary axis increase up the surface.
	FlipY bool

	// OnBand, if set, is called after each band is written to the surface.
	// Calls are serialized.
	OnBand func(Band)
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.NumCPU()
}

func (o Options) bandHeight() int {
	if o.BandHeight > 0 {
		return o.BandHeight
	}
	return DefaultBandHeight
}

// Frame renders ev onto s. The context is checked between bands; on
// cancellation Frame returns the context's error and does not call Present.
func Frame(ctx context.Context, ev *fractal.Evaluator, s Surface, opts Options) error {
	v := ev.Viewport()
	w, h := s.Size()
	if w != v.Width || h != v.Height {
		return fmt.Errorf("%w: surface %dx%d, viewport %dx%d", ErrSizeMismatch, w, h, v.Width, v.Height)
	}

	bands := splitRows(h, opts.bandHeight())
	work := make(chan [2]int)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(work)
		for _, b := range bands {
			select {
			case work <- b:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	var mu sync.Mutex
	for i := 0; i < opts.workers(); i++ {
		g.Go(func() error {
			row := make([]fractal.RGB, w)
			for b := range work {
				if err := gctx.Err(); err != nil {
					return err
				}

				band := Band{Y0: b[0], Y1: b[1], Width: w, Pixels: make([]fractal.RGB, 0, w*(b[1]-b[0]))}
				for y := b[0]; y < b[1]; y++ {
					src := y
					if opts.FlipY {
						src = h - 1 - y
					}
					if err := ev.Row(src, row); err != nil {
						return err
					}
					band.Pixels = append(band.Pixels, row...)
				}

				mu.Lock()
				for y := band.Y0; y < band.Y1; y++ {
					for x := 0; x < w; x++ {
						s.Set(x, y, band.At(x, y))
					}
				}
				if opts.OnBand != nil {
					opts.OnBand(band)
				}
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	// Workers never see a cancellation after the last band was handed out.
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.Present()
}

// Image renders ev into a new image sized to its viewport.
func Image(ctx context.Context, ev *fractal.Evaluator, opts Options) (*image.RGBA, error) {
	v := ev.Viewport()
	s := NewImageSurface(v.Width, v.Height)
	if err := Frame(ctx, ev, s, opts); err != nil {
		return nil, err
	}

	return s.Image(), nil
}

// splitRows splits height rows into bands of bandHeight. The last band is
// shorter if height is not divisible.
func splitRows(height, bandHeight int) [][2]int {
	var bands [][2]int
	for y0 := 0; y0 < height; y0 += bandHeight {
		y1 := y0 + bandHeight
		if y1 > height {
			y1 = height
		}
		bands = append(bands, [2]int{y0, y1})
	}

	return bands
}
