package integrators

import (
	"context"
	"testing"

	"github.com/san-kum/oscnet/internal/dynamo"
)

func BenchmarkEuler(b *testing.B) {
	integrator := NewEuler()
	dyn := &harmonic{}
	x := dynamo.State{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integrator.Step(dyn, x, 0, 0.01)
	}
}

func BenchmarkRK4(b *testing.B) {
	integrator := NewRK4()
	dyn := &harmonic{}
	x := dynamo.State{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integrator.Step(dyn, x, 0, 0.01)
	}
}

func BenchmarkAdvance(b *testing.B) {
	times := make([]float64, 201)
	for i := range times {
		times[i] = float64(i) * 0.1
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		adv := &Advancer{Integrator: NewRK4(), Dt: 0.01}
		if _, err := adv.Advance(context.Background(), &harmonic{}, dynamo.State{1, 0}, 0, times); err != nil {
			b.Fatal(err)
		}
	}
}
