package main

import (
	"fmt"
	"github.com/spf13/cobra"
	"github.com/willbeason/escape-fractal/pkg/config"
	"github.com/willbeason/escape-fractal/pkg/fractal"
	"github.com/willbeason/escape-fractal/pkg/palette"
	"strconv"
	"strings"
)

func iterateCmd() *cobra.Command {
	maxIterations := config.DefaultMaxIterations
	paletteName := config.DefaultPalette

	cmd := &cobra.Command{
		Use:     "iterate RE IM",
		Short:   "Print the escape count and color of one point",
		Example: "  mandelbrot iterate -n 1000 -- -0.75 0.1",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			re, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("real part: %w", err)
			}
			im, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("imaginary part: %w", err)
			}
			cmd.SilenceUsage = true

			p, err := palette.ByName(paletteName)
			if err != nil {
				return err
			}

			n, err := fractal.Iterate(complex(re, im), maxIterations)
			if err != nil {
				return err
			}
			c := p.Color(n, maxIterations)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "point:      %v\n", complex(re, im))
			fmt.Fprintf(out, "iterations: %d of %d\n", n, maxIterations)
			fmt.Fprintf(out, "in set:     %t\n", n == maxIterations)
			fmt.Fprintf(out, "color:      #%02x%02x%02x\n", c.R, c.G, c.B)

			return nil
		},
	}

	cmd.Flags().IntVarP(&maxIterations, "max-iterations", "n", maxIterations, "iteration budget")
	cmd.Flags().StringVarP(&paletteName, "palette", "p", paletteName,
		"color palette: "+strings.Join(palette.Names(), ", "))

	return cmd
}

func palettesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "palettes",
		Short: "List the color palettes",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, name := range palette.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}
