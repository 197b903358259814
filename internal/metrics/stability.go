package metrics

import (
	"math"

	"github.com/san-kum/oscnet/internal/dynamo"
)

// Amplitude reports the largest absolute position reached by any oscillator.
type Amplitude struct {
	name string
	peak float64
}

func NewAmplitude() *Amplitude {
	return &Amplitude{name: "peak_amplitude"}
}

func (a *Amplitude) Name() string { return a.name }

func (a *Amplitude) Observe(x dynamo.State, t float64) {
	for _, p := range x.Positions() {
		a.peak = math.Max(a.peak, math.Abs(p))
	}
}

func (a *Amplitude) Value() float64 { return a.peak }

func (a *Amplitude) Reset() { a.peak = 0 }

// Stability reports the fraction of samples whose state stays within threshold.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(x dynamo.State, t float64) {
	s.samples++
	for _, val := range x {
		if math.Abs(val) > s.threshold {
			s.violations++
			break
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
