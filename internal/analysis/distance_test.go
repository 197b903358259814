package analysis

import (
	"testing"

	"github.com/san-kum/oscnet/internal/dynamo"
	"github.com/san-kum/oscnet/internal/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// residual is the net static force on each oscillator at x.
func residual(k, rest mat.Matrix, x, loads []float64) []float64 {
	n := len(x)
	f := make([]float64, n)
	for i := 0; i < n; i++ {
		f[i] = -k.At(i, i) * (x[i] - rest.At(i, i))
		if loads != nil {
			f[i] += loads[i]
		}
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			r := rest.At(i, j)
			if j < i {
				r = -rest.At(j, i)
			}
			f[i] += k.At(i, j) * (x[j] - x[i] - r)
		}
	}
	return f
}

func TestEstimateDistances_Uncoupled(t *testing.T) {
	k := mat.NewDense(3, 3, []float64{
		2, 0, 0,
		0, 1, 0,
		0, 0, 5,
	})
	eq := []float64{1, 2, 3}

	for _, mode := range []GroundMode{Individual, Uniform} {
		t.Run(mode.String(), func(t *testing.T) {
			rest, err := EstimateDistances(k, eq, mode, nil)
			require.NoError(t, err)
			for i := 0; i < 3; i++ {
				assert.InDelta(t, eq[i], rest.At(i, i), 1e-12)
				for j := 0; j < 3; j++ {
					if i != j {
						assert.Equal(t, 0.0, rest.At(i, j))
					}
				}
			}
		})
	}
}

func TestEstimateDistances_IndividualRelaxed(t *testing.T) {
	k := mat.NewDense(2, 2, []float64{1, 1, 1, 1})
	rest, err := EstimateDistances(k, []float64{0, 3}, Individual, nil)
	require.NoError(t, err)

	assert.InDelta(t, 0, rest.At(0, 0), 1e-12)
	assert.InDelta(t, 3, rest.At(1, 1), 1e-12)
	assert.InDelta(t, 3, rest.At(0, 1), 1e-12)
	assert.InDelta(t, 3, rest.At(1, 0), 1e-12)
}

func TestEstimateDistances_UniformPair(t *testing.T) {
	k := mat.NewDense(2, 2, []float64{1, 1, 1, 1})
	x := []float64{0, 3}
	rest, err := EstimateDistances(k, x, Uniform, nil)
	require.NoError(t, err)

	// one ground rest length for both, the coupling takes up the rest
	assert.InDelta(t, 1.5, rest.At(0, 0), 1e-12)
	assert.InDelta(t, 1.5, rest.At(1, 1), 1e-12)
	assert.InDelta(t, 4.5, rest.At(0, 1), 1e-12)
	for _, f := range residual(k, rest, x, nil) {
		assert.InDelta(t, 0, f, 1e-12)
	}
}

func TestEstimateDistances_RoundTrip(t *testing.T) {
	stiffness := [][]float64{
		{2, 1, 0},
		{1, 1, 0.5},
		{0, 0.5, 3},
	}
	x := []float64{0.5, 2, 4}
	k := mat.NewDense(3, 3, nil)
	for i, row := range stiffness {
		k.SetRow(i, row)
	}

	for _, mode := range []GroundMode{Individual, Uniform} {
		t.Run(mode.String(), func(t *testing.T) {
			rest, err := EstimateDistances(k, x, mode, nil)
			require.NoError(t, err)

			restRows := make([][]float64, 3)
			for i := range restRows {
				restRows[i] = mat.Row(nil, i, rest)
			}
			model, err := network.New(network.Params{
				Masses:      []float64{1, 1, 1},
				Damping:     [][]float64{{0, 0, 0}, {0, 0, 0}, {0, 0, 0}},
				Stiffness:   stiffness,
				RestLengths: restRows,
			})
			require.NoError(t, err)

			eq, ok := model.Equilibrium()
			require.True(t, ok)
			assert.InDeltaSlice(t, x, []float64(eq.Positions()), 1e-9)
		})
	}
}

func TestEstimateDistances_Loads(t *testing.T) {
	k := mat.NewDense(3, 3, []float64{
		1, 2, 0,
		2, 0, 1,
		0, 1, 0.5,
	})
	x := []float64{0, 1, 1.5}
	loads := []float64{0.3, -1, 2}

	for _, mode := range []GroundMode{Individual, Uniform} {
		t.Run(mode.String(), func(t *testing.T) {
			rest, err := EstimateDistances(k, x, mode, loads)
			require.NoError(t, err)
			for _, f := range residual(k, rest, x, loads) {
				assert.InDelta(t, 0, f, 1e-9)
			}
			assert.Equal(t, 0.0, rest.At(1, 1), "no ground spring on oscillator 2")
			assert.Equal(t, 0.0, rest.At(0, 2), "no coupling between 1 and 3")
		})
	}
}

func TestEstimateDistances_Floating(t *testing.T) {
	k := mat.NewDense(2, 2, []float64{0, 1, 1, 0})
	x := []float64{0, 2}

	for _, mode := range []GroundMode{Individual, Uniform} {
		t.Run(mode.String(), func(t *testing.T) {
			_, err := EstimateDistances(k, x, mode, []float64{1, 0})
			assert.ErrorIs(t, err, dynamo.ErrUnderdeterminedSystem)

			loads := []float64{1, -1}
			rest, err := EstimateDistances(k, x, mode, loads)
			require.NoError(t, err)
			for _, f := range residual(k, rest, x, loads) {
				assert.InDelta(t, 0, f, 1e-12)
			}
		})
	}
}

func TestEstimateDistances_ShapeMismatch(t *testing.T) {
	k := mat.NewDense(2, 2, []float64{1, 0, 0, 1})

	_, err := EstimateDistances(k, []float64{1}, Individual, nil)
	assert.ErrorIs(t, err, dynamo.ErrShapeMismatch)

	_, err = EstimateDistances(k, []float64{1, 2}, Individual, []float64{1})
	assert.ErrorIs(t, err, dynamo.ErrShapeMismatch)

	_, err = EstimateDistances(mat.NewDense(2, 3, nil), []float64{1, 2}, Uniform, nil)
	assert.ErrorIs(t, err, dynamo.ErrShapeMismatch)
}

func TestParseGroundMode(t *testing.T) {
	m, err := ParseGroundMode("Uniform")
	require.NoError(t, err)
	assert.Equal(t, Uniform, m)

	m, err = ParseGroundMode("individual")
	require.NoError(t, err)
	assert.Equal(t, Individual, m)

	_, err = ParseGroundMode("mean")
	assert.ErrorIs(t, err, dynamo.ErrInvalidParameter)
}
