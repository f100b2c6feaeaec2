// Package elevation cleans recorded ASML series for charting.
package elevation

import (
	"math"

	"github.com/montanaflynn/stats"
)

// madScale converts a median absolute deviation into a standard deviation
// estimate for normally distributed noise.
const madScale = 1.4826

// Denoiser removes outliers with a windowed median test (a Hampel filter)
// and smooths the remainder with a centered moving average.
type Denoiser struct {
	// Window is the number of samples in the centered window. Even values
	// are widened by one.
	Window int `yaml:"window"`
	// Threshold is how many spreads a sample may sit from the window median
	Threshold float64 `yaml:"threshold"`
	// MinSpread is the lowest spread in meters, so flat stretches do not
	// flag ordinary sensor noise.
	MinSpread float64 `yaml:"min_spread"`
}

// DefaultDenoiser suits barometric and GPS-derived elevation alike
var DefaultDenoiser = Denoiser{Window: 5, Threshold: 3.0, MinSpread: 5}

// Denoise returns a cleaned copy of the series, index-aligned with the
// input. Series of length 0 or 1 are returned unchanged.
func (d Denoiser) Denoise(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	if len(values) < 2 {
		return out
	}

	half := d.half()
	for i := range values {
		lo, hi := bounds(i, half, len(values))
		window := stats.Float64Data(values[lo:hi])

		median, err := window.Median()
		if err != nil {
			continue
		}
		mad, err := stats.MedianAbsoluteDeviation(window)
		if err != nil {
			continue
		}
		spread := math.Max(madScale*mad, d.MinSpread)
		if math.Abs(values[i]-median) > d.Threshold*spread {
			out[i] = median
		}
	}

	return movingAverage(out, half)
}

func (d Denoiser) half() int {
	if d.Window < 1 {
		return 0
	}
	return d.Window / 2
}

// movingAverage averages each sample with up to half neighbours per side
func movingAverage(values []float64, half int) []float64 {
	out := make([]float64, len(values))
	if half == 0 {
		copy(out, values)
		return out
	}

	// Prefix sums keep the pass linear in the series length
	prefix := make([]float64, len(values)+1)
	for i, v := range values {
		prefix[i+1] = prefix[i] + v
	}
	for i := range values {
		lo, hi := bounds(i, half, len(values))
		out[i] = (prefix[hi] - prefix[lo]) / float64(hi-lo)
	}
	return out
}

// bounds returns the half-open window around i, truncated at the edges
func bounds(i, half, n int) (lo, hi int) {
	lo = i - half
	if lo < 0 {
		lo = 0
	}
	hi = i + half + 1
	if hi > n {
		hi = n
	}
	return lo, hi
}
