package metric

import (
	"errors"
	"fmt"

	"github.com/cwbudde/ppmse/internal/ppm"
)

// ErrDimensionMismatch indicates two images cannot be compared because their
// shapes differ.
var ErrDimensionMismatch = errors.New("image dimensions do not match")

// MSE computes the mean squared error between two equally shaped images.
//
// Both images are consumed through their float64 sample view, so integer and
// normalized images alike are compared without wraparound; the result scale
// follows the inputs (raw channel units, or [0,1] for normalized images).
func MSE(a, b *ppm.Image) (float64, error) {
	if a.Width != b.Width || a.Height != b.Height {
		return 0, fmt.Errorf("%w: %dx%d vs %dx%d", ErrDimensionMismatch, a.Width, a.Height, b.Width, b.Height)
	}

	n := a.Len()
	var sum float64
	for i := 0; i < n; i++ {
		d := a.Sample(i) - b.Sample(i)
		sum += d * d
	}

	// Mean over pixels and channels
	return sum / float64(n), nil
}
