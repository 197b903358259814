package config

import (
	"sort"

	"github.com/san-kum/oscnet/internal/events"
)

// Presets are built on demand so callers may modify what they get.
var Presets = map[string]func() *Config{
	"two-mass":   twoMass,
	"single":     single,
	"chain3":     chain3,
	"overdamped": overdamped,
	"free":       free,
}

// twoMass is the reference two-oscillator network with oscillator 1 pinned
// at 0 from t=5 and at 1 from t=10.
func twoMass() *Config {
	return &Config{
		Name:      "two-mass",
		Masses:    []float64{1, 2},
		Damping:   [][]float64{{0.02, 0.1}, {0.1, 0.1}},
		Stiffness: [][]float64{{4, 2}, {2, 1}},
		InitState: InitStateConfig{Positions: []float64{1, 1}, Velocities: []float64{0, 0}},
		Time:      TimeConfig{Start: 0, End: 20, Step: 0.1},
		Events: []events.Row{
			{Var: "x.1", Time: 5, Value: 0},
			{Var: "x.1", Time: 10, Value: 1},
			{Var: "x.1", Time: 12, Value: 1},
		},
		EventMethod: "constant",
		Solver:      defaultSolver(),
	}
}

func single() *Config {
	return &Config{
		Name:      "single",
		Masses:    []float64{1},
		Damping:   [][]float64{{0}},
		Stiffness: [][]float64{{1}},
		InitState: InitStateConfig{Positions: []float64{1}},
		Time:      TimeConfig{Start: 0, End: 20, Step: 0.05},
		Solver:    defaultSolver(),
	}
}

// chain3 hangs three masses between two walls 4 apart.
func chain3() *Config {
	return &Config{
		Name:    "chain3",
		Masses:  []float64{1, 1, 1},
		Damping: [][]float64{{0.05, 0, 0}, {0, 0, 0}, {0, 0, 0.05}},
		Stiffness: [][]float64{
			{10, 10, 0},
			{10, 0, 10},
			{0, 10, 10},
		},
		RestLengths: [][]float64{
			{1, 1, 0},
			{1, 0, 1},
			{0, 1, 3},
		},
		InitState: InitStateConfig{Positions: []float64{1.5, 2, 3}},
		Time:      TimeConfig{Start: 0, End: 30, Step: 0.05},
		Solver:    defaultSolver(),
	}
}

func overdamped() *Config {
	return &Config{
		Name:      "overdamped",
		Masses:    []float64{1, 1},
		Damping:   [][]float64{{3, 0}, {0, 5}},
		Stiffness: [][]float64{{1, 0.5}, {0.5, 1}},
		InitState: InitStateConfig{Positions: []float64{1, -1}},
		Time:      TimeConfig{Start: 0, End: 10, Step: 0.1},
		Solver:    defaultSolver(),
	}
}

// free has no springs or dampers; only events move it.
func free() *Config {
	return &Config{
		Name:      "free",
		Masses:    []float64{1, 1},
		Damping:   [][]float64{{0, 0}, {0, 0}},
		Stiffness: [][]float64{{0, 0}, {0, 0}},
		InitState: InitStateConfig{Positions: []float64{0, 2}},
		Time:      TimeConfig{Start: 0, End: 10, Step: 0.1},
		Events: []events.Row{
			{Var: "x.1", Time: 2, Value: 0},
			{Var: "x.1", Time: 6, Value: 1},
		},
		EventMethod: "linear",
		Solver:      defaultSolver(),
	}
}

func GetPreset(name string) *Config {
	build, ok := Presets[name]
	if !ok {
		return nil
	}
	return build()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
