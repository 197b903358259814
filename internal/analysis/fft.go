package analysis

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/san-kum/oscnet/internal/dynamo"
)

// PowerSpectrum returns the magnitudes of the first half of the spectrum.
// Any length is accepted.
func PowerSpectrum(data []float64) []float64 {
	spectrum := fft.FFTReal(data)
	ps := make([]float64, len(spectrum)/2)

	for i := range ps {
		ps[i] = cmplx.Abs(spectrum[i])
	}

	return ps
}

// DominantFrequency returns the frequency of the strongest non-constant
// component of a channel sampled every dt. The mean is removed and the series
// zero-padded to a power of two.
func DominantFrequency(data []float64, dt float64) (float64, error) {
	if len(data) < 4 {
		return 0, fmt.Errorf("need at least 4 samples, got %d: %w", len(data), dynamo.ErrInvalidParameter)
	}
	if !(dt > 0) {
		return 0, fmt.Errorf("sample interval must be positive, got %g: %w", dt, dynamo.ErrInvalidParameter)
	}

	n := 1
	for n < len(data) {
		n <<= 1
	}
	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(len(data))

	padded := make([]float64, n)
	for i, v := range data {
		padded[i] = v - mean
	}

	ps := PowerSpectrum(padded)
	best := 1
	for i := 2; i < len(ps); i++ {
		if ps[i] > ps[best] {
			best = i
		}
	}
	return float64(best) / (float64(n) * dt), nil
}

// UniformStep returns the common spacing of times, or an error when the
// samples are not evenly spaced.
func UniformStep(times []float64) (float64, error) {
	if len(times) < 2 {
		return 0, fmt.Errorf("need at least 2 samples: %w", dynamo.ErrInvalidTimeVector)
	}
	dt := (times[len(times)-1] - times[0]) / float64(len(times)-1)
	for i := 1; i < len(times); i++ {
		if math.Abs(times[i]-times[i-1]-dt) > 1e-6*math.Max(dt, 1e-12) {
			return 0, fmt.Errorf("samples are not evenly spaced at %d: %w", i, dynamo.ErrInvalidTimeVector)
		}
	}
	if !(dt > 0) {
		return 0, fmt.Errorf("samples do not advance in time: %w", dynamo.ErrInvalidTimeVector)
	}
	return dt, nil
}
