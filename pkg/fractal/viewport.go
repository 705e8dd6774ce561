package fractal

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidViewport = errors.New("invalid viewport")
	ErrPixelOutOfRange = errors.New("pixel out of range")
)

// Viewport is the rectangle of the complex plane mapped onto a Width x Height
// pixel grid. Pixel (0, 0) maps to (ReStart, ImStart).
type Viewport struct {
	ReStart, ReEnd float64
	ImStart, ImEnd float64

	Width, Height int
}

// Centered returns a viewport centered on (cx, cy) whose real axis spans span
// units. The imaginary extent follows the pixel aspect ratio so pixels stay square.
func Centered(cx, cy, span float64, width, height int) Viewport {
	halfRe := span * 0.5
	halfIm := halfRe
	if width > 0 && height > 0 {
		halfIm = halfRe * float64(height) / float64(width)
	}

	return Viewport{
		ReStart: cx - halfRe,
		ReEnd:   cx + halfRe,
		ImStart: cy - halfIm,
		ImEnd:   cy + halfIm,
		Width:   width,
		Height:  height,
	}
}

func (v Viewport) Validate() error {
	for _, b := range []float64{v.ReStart, v.ReEnd, v.ImStart, v.ImEnd} {
		if math.IsNaN(b) || math.IsInf(b, 0) {
			return fmt.Errorf("%w: bound %v: %w", ErrInvalidViewport, b, ErrNonFinite)
		}
	}

	switch {
	case v.ReStart >= v.ReEnd:
		return fmt.Errorf("%w: real start %v is not below real end %v", ErrInvalidViewport, v.ReStart, v.ReEnd)
	case v.ImStart >= v.ImEnd:
		return fmt.Errorf("%w: imaginary start %v is not below imaginary end %v", ErrInvalidViewport, v.ImStart, v.ImEnd)
	case v.Width <= 0 || v.Height <= 0:
		return fmt.Errorf("%w: size %dx%d must be positive", ErrInvalidViewport, v.Width, v.Height)
	}

	return nil
}

// Center returns the midpoint of the viewport bounds.
func (v Viewport) Center() complex128 {
	return complex((v.ReStart+v.ReEnd)*0.5, (v.ImStart+v.ImEnd)*0.5)
}

// Zoom scales the bounds about their center. Factors below 1 zoom in.
func (v Viewport) Zoom(factor float64) Viewport {
	c := v.Center()
	halfRe := (v.ReEnd - v.ReStart) * 0.5 * factor
	halfIm := (v.ImEnd - v.ImStart) * 0.5 * factor

	v.ReStart, v.ReEnd = real(c)-halfRe, real(c)+halfRe
	v.ImStart, v.ImEnd = imag(c)-halfIm, imag(c)+halfIm

	return v
}

// PixelToPoint linearly maps pixel (x, y) onto the viewport. The map does not
// flip either axis.
func (v Viewport) PixelToPoint(x, y int) (complex128, error) {
	if err := v.Validate(); err != nil {
		return 0, err
	}
	if x < 0 || x >= v.Width || y < 0 || y >= v.Height {
		return 0, fmt.Errorf("pixel (%d, %d) outside %dx%d: %w", x, y, v.Width, v.Height, ErrPixelOutOfRange)
	}

	return v.point(x, y), nil
}

func (v Viewport) point(x, y int) complex128 {
	re := v.ReStart + (float64(x)/float64(v.Width))*(v.ReEnd-v.ReStart)
	im := v.ImStart + (float64(y)/float64(v.Height))*(v.ImEnd-v.ImStart)

	return complex(re, im)
}
