package metrics

import (
	"math"

	"github.com/san-kum/oscnet/internal/dynamo"
)

// Energy reports the mean total energy over the observed samples.
type Energy struct {
	name        string
	system      dynamo.Hamiltonian
	samples     int
	totalEnergy float64
}

func NewEnergy(system dynamo.Hamiltonian) *Energy {
	return &Energy{
		name:   "energy",
		system: system,
	}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(x dynamo.State, t float64) {
	e.totalEnergy += e.system.Energy(x)
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

func (e *Energy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
}

// EnergyDrift reports the largest relative deviation from the first
// observed energy.
type EnergyDrift struct {
	name          string
	initialEnergy float64
	maxDrift      float64
	samples       int
	system        dynamo.Hamiltonian
}

func NewEnergyDrift(system dynamo.Hamiltonian) *EnergyDrift {
	return &EnergyDrift{
		name:   "energy_drift",
		system: system,
	}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(x dynamo.State, t float64) {
	energy := e.system.Energy(x)

	if e.samples == 0 {
		e.initialEnergy = energy
	}
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}
