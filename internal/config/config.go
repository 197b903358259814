package config

import (
	"fmt"
	"math"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/san-kum/oscnet/internal/dynamo"
	"github.com/san-kum/oscnet/internal/events"
	"github.com/san-kum/oscnet/internal/network"
	"gopkg.in/yaml.v3"
)

const (
	DefaultStart = 0.0
	DefaultEnd   = 20.0
	DefaultStep  = 0.1
)

var validate = validator.New()

// Config describes one network and how to simulate it.
type Config struct {
	Name        string          `yaml:"name" validate:"required"`
	Masses      []float64       `yaml:"masses" validate:"required,min=1,dive,gt=0"`
	Damping     [][]float64     `yaml:"damping" validate:"required"`
	Stiffness   [][]float64     `yaml:"stiffness" validate:"required"`
	RestLengths [][]float64     `yaml:"rest_lengths,omitempty"`
	InitState   InitStateConfig `yaml:"init_state"`
	Time        TimeConfig      `yaml:"time"`

	// Times, when set, replaces the evenly spaced grid of Time.
	Times       []float64    `yaml:"times,omitempty"`
	Events      []events.Row `yaml:"events,omitempty" validate:"dive"`
	EventMethod string       `yaml:"event_method,omitempty"`
	Solver      SolverConfig `yaml:"solver"`
}

// InitStateConfig holds initial positions and velocities; a missing list
// means all zeros.
type InitStateConfig struct {
	Positions  []float64 `yaml:"positions,omitempty"`
	Velocities []float64 `yaml:"velocities,omitempty"`
}

type TimeConfig struct {
	Start float64 `yaml:"start" validate:"gte=0"`
	End   float64 `yaml:"end" validate:"gtfield=Start"`
	Step  float64 `yaml:"step" validate:"gt=0"`
}

type SolverConfig struct {
	Method          string  `yaml:"method" validate:"oneof=auto analytic numeric"`
	Integrator      string  `yaml:"integrator" validate:"oneof=rk4 euler"`
	StepFraction    float64 `yaml:"step_fraction" validate:"gt=0,lte=1"`
	MaxStep         float64 `yaml:"max_step" validate:"gt=0"`
	ImagTolerance   float64 `yaml:"imag_tolerance" validate:"gt=0"`
	CondLimit       float64 `yaml:"cond_limit" validate:"gt=0"`
	DivergenceLimit float64 `yaml:"divergence_limit" validate:"gt=0"`
}

func defaultSolver() SolverConfig {
	d := dynamo.DefaultConfig()
	return SolverConfig{
		Method:          d.Method,
		Integrator:      d.Integrator,
		StepFraction:    d.StepFraction,
		MaxStep:         d.MaxStep,
		ImagTolerance:   d.ImagTolerance,
		CondLimit:       d.CondLimit,
		DivergenceLimit: d.DivergenceLimit,
	}
}

// DefaultConfig is the two-oscillator network without events.
func DefaultConfig() *Config {
	cfg := twoMass()
	cfg.Name = "default"
	cfg.Events = nil
	cfg.EventMethod = ""
	return cfg
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		Time:   TimeConfig{Start: DefaultStart, End: DefaultEnd, Step: DefaultStep},
		Solver: defaultSolver(),
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the document structure. Physical consistency is checked
// when the network and event set are built.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config %q: %v: %w", c.Name, err, dynamo.ErrInvalidParameter)
	}
	return nil
}

func (c *Config) Params() network.Params {
	return network.Params{
		Masses:      c.Masses,
		Damping:     c.Damping,
		Stiffness:   c.Stiffness,
		RestLengths: c.RestLengths,
	}
}

func (c *Config) Model() (*network.Model, error) {
	return network.New(c.Params())
}

func (c *Config) InitialState() (dynamo.State, error) {
	n := len(c.Masses)
	pos, vel := c.InitState.Positions, c.InitState.Velocities
	if pos == nil {
		pos = make([]float64, n)
	}
	if vel == nil {
		vel = make([]float64, n)
	}
	if len(pos) != n {
		return nil, fmt.Errorf("%d initial positions for %d oscillators: %w", len(pos), n, dynamo.ErrShapeMismatch)
	}
	return dynamo.NewState(pos, vel)
}

// SampleTimes returns Times when set, otherwise start, start+step, ... up to
// and including end.
func (c *Config) SampleTimes() ([]float64, error) {
	if len(c.Times) > 0 {
		return append([]float64(nil), c.Times...), nil
	}

	t := c.Time
	if !(t.Step > 0) || t.End < t.Start {
		return nil, fmt.Errorf("time grid [%g, %g] step %g: %w", t.Start, t.End, t.Step, dynamo.ErrInvalidTimeVector)
	}
	steps := int(math.Floor((t.End-t.Start)/t.Step + 1e-9))
	times := make([]float64, 0, steps+2)
	for i := 0; i <= steps; i++ {
		times = append(times, t.Start+float64(i)*t.Step)
	}
	if last := times[len(times)-1]; t.End-last > 1e-9*t.Step {
		times = append(times, t.End)
	}
	return times, nil
}

func (c *Config) EventSet() (*events.Set, error) {
	return events.ParseTable(c.Events, c.EventMethod)
}

func (c *Config) SolverConfig() dynamo.Config {
	return dynamo.Config{
		Method:          c.Solver.Method,
		Integrator:      c.Solver.Integrator,
		StepFraction:    c.Solver.StepFraction,
		MaxStep:         c.Solver.MaxStep,
		ImagTolerance:   c.Solver.ImagTolerance,
		CondLimit:       c.Solver.CondLimit,
		DivergenceLimit: c.Solver.DivergenceLimit,
	}
}
