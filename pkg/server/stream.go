package server

import (
	"bytes"
	"context"
	"errors"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/willbeason/escape-fractal/pkg/fractal"
	"github.com/willbeason/escape-fractal/pkg/render"
	"image/png"
	"net/http"
)

// BandMessage is one websocket message of a streamed frame. Every band of
// the frame is sent once, in completion order, followed by a message with
// Done set. A failed render sends Error instead.
type BandMessage struct {
	Y0     int    `json:"y0"`
	Y1     int    `json:"y1"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	PNG    []byte `json:"png,omitempty"`
	Done   bool   `json:"done,omitempty"`
	Error  string `json:"error,omitempty"`
}

// streamSurface discards pixels; the bands are forwarded through OnBand.
type streamSurface struct {
	width, height int
}

func (s streamSurface) Size() (int, int) { return s.width, s.height }

func (s streamSurface) Set(int, int, fractal.RGB) {}

func (s streamSurface) Present() error { return nil }

func encodeBand(b render.Band) ([]byte, error) {
	s := render.NewImageSurface(b.Width, b.Y1-b.Y0)
	for y := b.Y0; y < b.Y1; y++ {
		for x := 0; x < b.Width; x++ {
			s.Set(x, y-b.Y0, b.At(x, y))
		}
	}

	var buf bytes.Buffer
	err := png.Encode(&buf, s.Image())
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
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
	defer s.frames.Release(1)

	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket accept", "err", err)
		return
	}
	defer c.CloseNow()

	// Reading is required to notice the peer closing; nothing is expected.
	ctx := c.CloseRead(r.Context())
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// OnBand calls are serialized, so writeErr needs no lock.
	var writeErr error
	opts := f.options()
	opts.OnBand = func(b render.Band) {
		if writeErr != nil {
			return
		}

		data, err := encodeBand(b)
		if err == nil {
			err = wsjson.Write(ctx, c, BandMessage{
				Y0:     b.Y0,
				Y1:     b.Y1,
				Width:  f.cfg.Width,
				Height: f.cfg.Height,
				PNG:    data,
			})
		}
		if err != nil {
			writeErr = err
			cancel()
		}
	}

	surface := streamSurface{width: f.cfg.Width, height: f.cfg.Height}
	err = render.Frame(ctx, f.ev, surface, opts)
	switch {
	case writeErr != nil:
		s.logger.Info("stream closed", "err", writeErr)
		return
	case errors.Is(err, context.Canceled):
		s.logger.Info("stream cancelled by client")
		return
	case err != nil:
		_ = wsjson.Write(ctx, c, BandMessage{Error: err.Error()})
		c.Close(websocket.StatusInternalError, "render failed")
		return
	}

	err = wsjson.Write(ctx, c, BandMessage{Width: f.cfg.Width, Height: f.cfg.Height, Done: true})
	if err != nil {
		s.logger.Info("stream closed", "err", err)
		return
	}

	c.Close(websocket.StatusNormalClosure, "")
}
