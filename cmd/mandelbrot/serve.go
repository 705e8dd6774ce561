package main

import (
	"context"
	"errors"
	"github.com/spf13/cobra"
	"github.com/willbeason/escape-fractal/pkg/config"
	"github.com/willbeason/escape-fractal/pkg/server"
	"log/slog"
)

func serveCmd() *cobra.Command {
	cfg := config.Default()
	var (
		addr       string
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve frames over HTTP and stream them over a websocket",
		Long: `Serve frames over HTTP.

  GET /render.{png,jpg,gif,bmp,tiff}  the whole frame
  GET /ws                             the frame as a stream of PNG bands

Both accept the query parameters re_start, re_end, im_start, im_end, width,
height, max_iterations, palette and flip_y, overriding the flag values.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true

			base := cfg
			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return err
				}
				loaded.Override(cmd.Flags(), cfg)
				base = loaded
			}

			_, err := base.Fractal()
			if err != nil {
				return err
			}

			err = server.New(base, slog.Default()).ListenAndServe(cmd.Context(), addr)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	config.BindFlags(cmd.Flags(), &cfg)
	_ = cmd.Flags().MarkHidden("output")
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "TOML or YAML file with default frame settings")

	return cmd
}
