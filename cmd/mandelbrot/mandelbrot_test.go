package main

import (
	"bytes"
	"context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd := mainCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)

	err := cmd.ExecuteContext(context.Background())

	return out.String(), err
}

func TestRender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")

	_, err := execute(t, "render", "-W", "32", "-H", "24", "-n", "40", "-o", path)
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
	assert.Equal(t, 24, img.Bounds().Dy())

	// The corner escapes after one step under the classic palette.
	r, g, b, _ := img.At(0, 0).RGBA()
	assert.Equal(t, []uint32{5, 10, 15}, []uint32{r >> 8, g >> 8, b >> 8})
}

func TestRender_ConfigFileWithOverrides(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "frame.toml")
	out := filepath.Join(dir, "frame.bmp")
	require.NoError(t, os.WriteFile(cfgPath, []byte("width = 8\nheight = 8\npalette = \"gray\"\noutput = \"ignored.png\"\n"), 0o600))

	_, err := execute(t, "render", "--config", cfgPath, "-o", out, "--center=-0.5,0", "--span", "1", "--zoom", "0.5")
	require.NoError(t, err)

	_, err = os.Stat(out)
	assert.NoError(t, err)
}

func TestRender_Errors(t *testing.T) {
	dir := t.TempDir()

	for _, args := range [][]string{
		{"render", "-W", "0", "-o", filepath.Join(dir, "a.png")},
		{"render", "-n", "0", "-o", filepath.Join(dir, "b.png")},
		{"render", "--palette", "sepia", "-o", filepath.Join(dir, "c.png")},
		{"render", "-o", filepath.Join(dir, "d.txt")},
		{"render", "--center=1", "-o", filepath.Join(dir, "e.png")},
		{"render", "--zoom", "0", "-o", filepath.Join(dir, "f.png")},
		{"render", "--watch"},
	} {
		_, err := execute(t, args...)
		assert.Error(t, err, strings.Join(args, " "))
	}
}

func TestIterate(t *testing.T) {
	out, err := execute(t, "iterate", "-n", "100", "--", "-2", "-1.5")
	require.NoError(t, err)

	assert.Contains(t, out, "iterations: 1 of 100")
	assert.Contains(t, out, "in set:     false")
	assert.Contains(t, out, "color:      #050a0f")

	out, err = execute(t, "iterate", "0", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "in set:     true")
	assert.Contains(t, out, "color:      #000000")

	_, err = execute(t, "iterate", "x", "0")
	assert.Error(t, err)
}

func TestPalettes(t *testing.T) {
	out, err := execute(t, "palettes")
	require.NoError(t, err)

	assert.Equal(t, "classic\ngray\nhsv\nwheel\n", out)
}
