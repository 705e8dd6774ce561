package main

import (
	"context"
	"errors"
	"fmt"
	"github.com/spf13/cobra"
	"github.com/willbeason/escape-fractal/pkg/config"
	"github.com/willbeason/escape-fractal/pkg/fractal"
	"github.com/willbeason/escape-fractal/pkg/imageio"
	"github.com/willbeason/escape-fractal/pkg/palette"
	"github.com/willbeason/escape-fractal/pkg/render"
	"log/slog"
	"time"
)

type renderFlags struct {
	cfg        config.Config
	configPath string
	center     []float64
	span       float64
	zoom       float64
	watch      bool
}

func renderCmd() *cobra.Command {
	f := &renderFlags{cfg: config.Default()}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a frame to an image file",
		Example: `  mandelbrot render -W 1920 -H 1080 -n 500 -o seahorse.png --center=-0.75,0.1 --span 0.1
  mandelbrot render --config frame.toml --watch`,
		Args: cobra.NoArgs,
		RunE: f.run,
	}

	config.BindFlags(cmd.Flags(), &f.cfg)
	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", "TOML or YAML file with frame settings; flags take precedence")
	cmd.Flags().Float64SliceVar(&f.center, "center", nil, "center the view on RE,IM instead of using the bounds")
	cmd.Flags().Float64Var(&f.span, "span", 0, "real-axis extent of the view with --center (defaults to the current extent)")
	cmd.Flags().Float64Var(&f.zoom, "zoom", 1, "scale the view about its center; below 1 zooms in")
	cmd.Flags().BoolVarP(&f.watch, "watch", "w", false, "re-render whenever the config file changes")

	return cmd
}

func (f *renderFlags) run(cmd *cobra.Command, _ []string) error {
	// At this point usage information has already been printed if obviously incorrect.
	cmd.SilenceUsage = true

	if f.watch && f.configPath == "" {
		return errors.New("--watch requires --config")
	}

	base := config.Default()
	if f.configPath != "" {
		var err error
		base, err = config.Load(f.configPath)
		if err != nil {
			return err
		}
	}

	c, err := f.resolve(cmd, base)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	err = renderFile(ctx, c)
	if err != nil {
		return err
	}

	if !f.watch {
		return nil
	}

	slog.Info("watching for changes", "config", f.configPath)
	err = config.Watch(ctx, f.configPath, func(loaded config.Config, err error) {
		if err != nil {
			slog.Error("reload config", "err", err)
			return
		}

		c, err := f.resolve(cmd, loaded)
		if err == nil {
			err = renderFile(ctx, c)
		}
		if err != nil {
			slog.Error("re-render", "err", err)
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

// resolve applies the flags the user set on top of base, then the view
// adjustments.
func (f *renderFlags) resolve(cmd *cobra.Command, base config.Config) (config.Config, error) {
	c := base
	c.Override(cmd.Flags(), f.cfg)

	if cmd.Flags().Changed("center") {
		if len(f.center) != 2 {
			return c, fmt.Errorf("--center wants RE,IM, got %d values", len(f.center))
		}

		span := f.span
		if span == 0 {
			span = c.ReEnd - c.ReStart
		}
		c.SetViewport(fractal.Centered(f.center[0], f.center[1], span, c.Width, c.Height))
	}

	if f.zoom <= 0 {
		return c, fmt.Errorf("--zoom must be positive, got %v", f.zoom)
	}
	if f.zoom != 1 {
		c.SetViewport(c.Viewport().Zoom(f.zoom))
	}

	return c, nil
}

func renderFile(ctx context.Context, c config.Config) error {
	fc, err := c.Fractal()
	if err != nil {
		return err
	}

	p, err := palette.ByName(c.Palette)
	if err != nil {
		return err
	}

	ev, err := fractal.NewEvaluator(fc, p)
	if err != nil {
		return err
	}

	// Fail on a bad extension before spending time on the render.
	_, err = imageio.FormatFromPath(c.Output)
	if err != nil {
		return err
	}

	start := time.Now()
	img, err := render.Image(ctx, ev, render.Options{
		Workers: c.Workers,
		FlipY:   c.FlipY,
		OnBand: func(b render.Band) {
			slog.Debug("band finished", "y0", b.Y0, "y1", b.Y1)
		},
	})
	if err != nil {
		return err
	}

	err = imageio.Save(c.Output, img)
	if err != nil {
		return err
	}

	slog.Info("rendered",
		"output", c.Output,
		"width", c.Width,
		"height", c.Height,
		"max_iterations", c.MaxIterations,
		"palette", c.Palette,
		"took", time.Since(start))

	return nil
}
