package server

import (
	"bytes"
	"context"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/willbeason/escape-fractal/pkg/config"
	"github.com/willbeason/escape-fractal/pkg/fractal"
	"github.com/willbeason/escape-fractal/pkg/render"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ts := httptest.NewServer(New(config.Default(), logger).Handler())
	t.Cleanup(ts.Close)

	return ts
}

func get(t *testing.T, target string) (*http.Response, []byte) {
	t.Helper()

	resp, err := http.Get(target)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, body
}

func TestRenderPNG(t *testing.T) {
	ts := newTestServer(t)

	resp, body := get(t, ts.URL+"/render.png?width=40&height=30&max_iterations=50")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	img, err := png.Decode(bytes.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())
	assert.Equal(t, 30, img.Bounds().Dy())

	ev, err := fractal.NewEvaluator(fractal.Config{
		Viewport:      fractal.Viewport{ReStart: -2, ReEnd: 1, ImStart: -1.5, ImEnd: 1.5, Width: 40, Height: 30},
		MaxIterations: 50,
	}, nil)
	require.NoError(t, err)

	for _, xy := range [][2]int{{0, 0}, {20, 15}, {39, 29}, {5, 22}} {
		want, err := ev.At(xy[0], xy[1])
		require.NoError(t, err)

		r, g, b, _ := img.At(xy[0], xy[1]).RGBA()
		assert.Equal(t, want, fractal.RGB{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8)}, "pixel %v", xy)
	}
}

func TestRenderFormats(t *testing.T) {
	ts := newTestServer(t)

	for path, ct := range map[string]string{
		"/render.bmp":  "image/bmp",
		"/render.tiff": "image/tiff",
		"/render.jpg":  "image/jpeg",
		"/render.gif":  "image/gif",
	} {
		resp, body := get(t, ts.URL+path+"?width=16&height=16&palette=wheel")
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Equal(t, ct, resp.Header.Get("Content-Type"), path)
		assert.NotEmpty(t, body, path)
	}
}

func TestRenderBadRequest(t *testing.T) {
	ts := newTestServer(t)

	for _, query := range []string{
		"width=abc",
		"width=0",
		"re_start=1&re_end=-1",
		"max_iterations=0",
		"max_iterations=2000000",
		"width=5000&height=5000",
		"palette=sepia",
		"flip_y=maybe",
	} {
		resp, _ := get(t, ts.URL+"/render.png?"+query)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, query)
	}

	resp, _ := get(t, ts.URL+"/render.webp")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRenderWaitsForFrameSlot(t *testing.T) {
	s := New(config.Default(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	require.True(t, s.frames.TryAcquire(MaxConcurrentFrames))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/render.png?width=8&height=8", nil)
	require.NoError(t, err)

	_, err = http.DefaultClient.Do(req)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	s.frames.Release(MaxConcurrentFrames)

	resp, body := get(t, ts.URL+"/render.png?width=8&height=8")
	assert.Equal(t, http.StatusOK, resp.StatusCode, string(body))
}

func TestEncodeBand(t *testing.T) {
	b := render.Band{Y0: 4, Y1: 6, Width: 2, Pixels: []fractal.RGB{
		{R: 1}, {G: 2},
		{B: 3}, {R: 4, G: 5, B: 6},
	}}

	data, err := encodeBand(b)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 2, img.Bounds().Dy())

	r, g, bl, a := img.At(1, 1).RGBA()
	assert.Equal(t, []uint32{4, 5, 6, 0xff}, []uint32{r >> 8, g >> 8, bl >> 8, a >> 8})
}

func wsURL(ts *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?" + query
}

func TestStream(t *testing.T) {
	ts := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, _, err := websocket.Dial(ctx, wsURL(ts, "width=24&height=40&flip_y=true"), nil)
	require.NoError(t, err)
	defer c.CloseNow()

	rows := make(map[int]bool)
	for {
		var msg BandMessage
		require.NoError(t, wsjson.Read(ctx, c, &msg))
		require.Empty(t, msg.Error)

		assert.Equal(t, 24, msg.Width)
		assert.Equal(t, 40, msg.Height)
		if msg.Done {
			break
		}

		img, err := png.Decode(bytes.NewReader(msg.PNG))
		require.NoError(t, err)
		assert.Equal(t, 24, img.Bounds().Dx())
		assert.Equal(t, msg.Y1-msg.Y0, img.Bounds().Dy())

		for y := msg.Y0; y < msg.Y1; y++ {
			assert.False(t, rows[y], "row %d sent twice", y)
			rows[y] = true
		}
	}

	assert.Len(t, rows, 40)

	_, _, err = c.Read(ctx)
	assert.Equal(t, websocket.StatusNormalClosure, websocket.CloseStatus(err))
}

func TestStreamBadRequest(t *testing.T) {
	ts := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, resp, err := websocket.Dial(ctx, wsURL(ts, url.Values{"height": {"-3"}}.Encode()), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListenAndServe_Shutdown(t *testing.T) {
	s := New(config.Default(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.ListenAndServe(ctx, "127.0.0.1:0")
	}()

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
