// Package server presents rendered frames over HTTP. Whole images are served
// at /render.<ext>, and /ws streams a frame band by band over a websocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"github.com/willbeason/escape-fractal/pkg/config"
	"github.com/willbeason/escape-fractal/pkg/fractal"
	"github.com/willbeason/escape-fractal/pkg/imageio"
	"github.com/willbeason/escape-fractal/pkg/palette"
	"github.com/willbeason/escape-fractal/pkg/render"
	"golang.org/x/sync/semaphore"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// MaxPixels bounds the size of a single requested frame.
const MaxPixels = 4096 * 4096

// MaxIterations bounds the per-pixel budget of a single requested frame.
const MaxIterations = 1_000_000

// MaxConcurrentFrames bounds how many frames render at once. Each frame
// already uses every CPU; further requests wait for a slot.
const MaxConcurrentFrames = 2

type Server struct {
	base   config.Config
	logger *slog.Logger
	frames *semaphore.Weighted
}

// New returns a Server whose frames start from base. Query parameters
// override individual fields per request.
func New(base config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{base: base, logger: logger, frames: semaphore.NewWeighted(MaxConcurrentFrames)}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	for _, f := range []imageio.Format{imageio.PNG, imageio.JPEG, imageio.GIF, imageio.TIFF, imageio.BMP} {
		mux.HandleFunc("GET /render."+f.String(), s.handleImage(f))
	}
	mux.HandleFunc("GET /render.jpg", s.handleImage(imageio.JPEG))
	mux.HandleFunc("GET /ws", s.handleStream)

	return mux
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errs := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		return err
	}
	if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// frame is a validated request.
type frame struct {
	cfg config.Config
	ev  *fractal.Evaluator
}

func (s *Server) parseFrame(q url.Values) (frame, error) {
	c := s.base
	err := applyQuery(&c, q)
	if err != nil {
		return frame{}, err
	}

	fc, err := c.Fractal()
	if err != nil {
		return frame{}, err
	}
	if fc.Viewport.Width > MaxPixels/fc.Viewport.Height {
		return frame{}, fmt.Errorf("frame %dx%d exceeds %d pixels", fc.Viewport.Width, fc.Viewport.Height, MaxPixels)
	}
	if fc.MaxIterations > MaxIterations {
		return frame{}, fmt.Errorf("max_iterations %d exceeds %d", fc.MaxIterations, MaxIterations)
	}

	p, err := palette.ByName(c.Palette)
	if err != nil {
		return frame{}, err
	}

	ev, err := fractal.NewEvaluator(fc, p)
	if err != nil {
		return frame{}, err
	}

	return frame{cfg: c, ev: ev}, nil
}

func (f frame) options() render.Options {
	return render.Options{Workers: f.cfg.Workers, FlipY: f.cfg.FlipY}
}

func (s *Server) handleImage(format imageio.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		f, err := s.parseFrame(r.URL.Query())
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		err = s.frames.Acquire(r.Context(), 1)
		if err != nil {
			http.Error(w, "server busy", http.StatusServiceUnavailable)
			return
		}
		img, err := render.Image(r.Context(), f.ev, f.options())
		s.frames.Release(1)
		if err != nil {
			s.logger.Warn("render aborted", "path", r.URL.Path, "err", err)
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", format.ContentType())
		err = imageio.Encode(w, img, format)
		if err != nil {
			s.logger.Error("encode frame", "format", format, "err", err)
			return
		}

		s.logger.Info("rendered",
			"format", format,
			"width", f.cfg.Width,
			"height", f.cfg.Height,
			"max_iterations", f.cfg.MaxIterations,
			"took", time.Since(start))
	}
}

// applyQuery overwrites the fields of c named in q.
func applyQuery(c *config.Config, q url.Values) error {
	floats := map[string]*float64{
		"re_start": &c.ReStart,
		"re_end":   &c.ReEnd,
		"im_start": &c.ImStart,
		"im_end":   &c.ImEnd,
	}
	for key, dst := range floats {
		if v := q.Get(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = f
		}
	}

	ints := map[string]*int{
		"width":          &c.Width,
		"height":         &c.Height,
		"max_iterations": &c.MaxIterations,
	}
	for key, dst := range ints {
		if v := q.Get(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
	}

	if v := q.Get("palette"); v != "" {
		c.Palette = v
	}
	if v := q.Get("flip_y"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("flip_y: %w", err)
		}
		c.FlipY = b
	}

	return nil
}
