package render

import (
	"github.com/willbeason/escape-fractal/pkg/fractal"
	"image"
)

// A Surface receives rendered pixels. Frame serializes calls to Set and calls
// Present once all pixels are written.
type Surface interface {
	Size() (width, height int)
	Set(x, y int, c fractal.RGB)
	Present() error
}

// ImageSurface is a Surface backed by an in-memory image.
type ImageSurface struct {
	img *image.RGBA
}

func NewImageSurface(width, height int) *ImageSurface {
	return &ImageSurface{img: image.NewRGBA(image.Rect(0, 0, width, height))}
}

func (s *ImageSurface) Size() (int, int) {
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}

func (s *ImageSurface) Set(x, y int, c fractal.RGB) {
	i := s.img.PixOffset(x, y)
	pix := s.img.Pix[i : i+4 : i+4]
	pix[0] = c.R
	pix[1] = c.G
	pix[2] = c.B
	pix[3] = 0xff
}

func (s *ImageSurface) Present() error {
	return nil
}

func (s *ImageSurface) Image() *image.RGBA {
	return s.img
}
