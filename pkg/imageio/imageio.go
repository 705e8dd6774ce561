// Package imageio writes rendered frames in the common image formats.
package imageio

import (
	"bufio"
	"errors"
	"fmt"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type Format int

const (
	None Format = iota
	PNG
	JPEG
	GIF
	TIFF
	BMP
)

func (f Format) String() string {
	switch f {
	case PNG:
		return "png"
	case JPEG:
		return "jpeg"
	case GIF:
		return "gif"
	case TIFF:
		return "tiff"
	case BMP:
		return "bmp"
	}
	return "none"
}

// ContentType is the MIME type of the format.
func (f Format) ContentType() string {
	return "image/" + f.String()
}

// ParseFormat returns the Format for a file extension or format name, with
// or without a leading dot.
func ParseFormat(ext string) (Format, error) {
	if ext == "" {
		return None, errors.New("image format is empty")
	}
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "png":
		return PNG, nil
	case "jpg", "jpeg":
		return JPEG, nil
	case "gif":
		return GIF, nil
	case "tif", "tiff":
		return TIFF, nil
	case "bmp":
		return BMP, nil
	}
	return None, fmt.Errorf("image format %q not recognized", ext)
}

func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

func Encode(w io.Writer, img image.Image, f Format) error {
	switch f {
	case PNG:
		return png.Encode(w, img)
	case JPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
	case GIF:
		return gif.Encode(w, img, nil)
	case TIFF:
		return tiff.Encode(w, img, nil)
	case BMP:
		return bmp.Encode(w, img)
	}
	return fmt.Errorf("cannot encode format %v", f)
}

// Save writes img to path, choosing the format from the extension. Parent
// directories are created as needed.
func Save(path string, img image.Image) error {
	f, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		err = os.MkdirAll(dir, os.ModePerm)
		if err != nil {
			return err
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(file)
	err = Encode(bw, img, f)
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}

	err = bw.Flush()
	if err != nil {
		_ = file.Close()
		return err
	}

	return file.Close()
}
