package fractal

import (
	"errors"
	"fmt"
	"math/cmplx"
)

const (
	// EscapeRadius is the magnitude beyond which z*z + c is guaranteed to diverge.
	EscapeRadius = 2.0

	escapeRadiusSquared = EscapeRadius * EscapeRadius
)

var (
	ErrNonFinite          = errors.New("value is not finite")
	ErrNegativeIterations = errors.New("iteration budget is negative")
	ErrIterationRange     = errors.New("iteration count out of range")
)

// Next applies the Mandelbrot recurrence once.
func Next(z, c complex128) complex128 {
	return z*z + c
}

// Iterate counts the applications of Next, starting from z = 0, before |z|
// reaches EscapeRadius. A result equal to maxIterations means the point did
// not escape within the budget and is treated as a member of the set.
func Iterate(c complex128, maxIterations int) (int, error) {
	if cmplx.IsNaN(c) || cmplx.IsInf(c) {
		return 0, fmt.Errorf("iterate %v: %w", c, ErrNonFinite)
	}
	if maxIterations < 0 {
		return 0, fmt.Errorf("iterate with budget %d: %w", maxIterations, ErrNegativeIterations)
	}

	return iterate(c, maxIterations), nil
}

// iterate is Iterate without argument checks, for callers that validated
// their configuration up front.
func iterate(c complex128, maxIterations int) int {
	z := complex(0, 0)
	count := 0
	for count < maxIterations && real(z)*real(z)+imag(z)*imag(z) < escapeRadiusSquared {
		z = Next(z, c)
		count++
	}

	return count
}
