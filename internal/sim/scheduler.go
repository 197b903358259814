package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/oscnet/internal/analytic"
	"github.com/san-kum/oscnet/internal/dynamo"
	"github.com/san-kum/oscnet/internal/events"
	"github.com/san-kum/oscnet/internal/integrators"
	"github.com/san-kum/oscnet/internal/network"
)

// MetricFactory builds a fresh metric for one simulation of model.
type MetricFactory func(model *network.Model) dynamo.Metric

type Scheduler struct {
	cfg     dynamo.Config
	logger  *slog.Logger
	metrics []MetricFactory
}

type Option func(*Scheduler)

func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

func WithMetrics(m ...MetricFactory) Option {
	return func(s *Scheduler) { s.metrics = append(s.metrics, m...) }
}

func New(cfg dynamo.Config, opts ...Option) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := integrators.New(cfg.Integrator); err != nil {
		return nil, err
	}
	s := &Scheduler{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Simulate returns one row per entry of times, in input order.
func (s *Scheduler) Simulate(ctx context.Context, model *network.Model, x0 dynamo.State, evts *events.Set, times []float64) (*dynamo.Result, error) {
	if err := validateTimes(times); err != nil {
		return nil, err
	}
	if len(x0) != model.StateDim() {
		return nil, fmt.Errorf("initial state has %d entries, network needs %d: %w", len(x0), model.StateDim(), dynamo.ErrShapeMismatch)
	}
	if !x0.IsValid() {
		return nil, fmt.Errorf("initial state is not finite: %w", dynamo.ErrInvalidParameter)
	}
	if err := evts.Validate(model.N()); err != nil {
		return nil, err
	}
	if s.cfg.Method == dynamo.MethodAnalytic && evts.HasEvents() {
		return nil, fmt.Errorf("analytic method cannot apply %d events: %w", evts.Len(), dynamo.ErrInvalidParameter)
	}

	var (
		result *dynamo.Result
		err    error
	)
	if !evts.HasEvents() && s.cfg.Method != dynamo.MethodNumeric {
		result, err = s.solveAnalytic(ctx, model, x0, times)
		if errors.Is(err, dynamo.ErrNonDiagonalizable) && s.cfg.Method == dynamo.MethodAuto {
			s.logger.Debug("analytic path unavailable, integrating numerically", slog.String("reason", err.Error()))
			result, err = nil, nil
		}
	}
	if result == nil && err == nil {
		result, err = s.solveNumeric(ctx, model, x0, evts, times)
	}
	if err != nil {
		return nil, err
	}

	s.observe(model, result)
	return result, nil
}

func (s *Scheduler) solveAnalytic(ctx context.Context, model *network.Model, x0 dynamo.State, times []float64) (*dynamo.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", dynamo.ErrContextCanceled, err)
	}

	eq, ok := model.Equilibrium()
	if !ok {
		return nil, fmt.Errorf("rest lengths have no static equilibrium: %w", dynamo.ErrNonDiagonalizable)
	}

	solver := &analytic.Solver{ImagTolerance: s.cfg.ImagTolerance, CondLimit: s.cfg.CondLimit}
	tr, err := solver.Solve(model.SystemMatrix(), x0.Sub(eq))
	if err != nil {
		return nil, err
	}
	states, err := tr.Sample(times[0], times)
	if err != nil {
		return nil, err
	}
	for i := range states {
		states[i] = states[i].Add(eq)
	}

	s.logger.Debug("analytic solution", slog.Int("samples", len(times)))
	return &dynamo.Result{
		States:  states,
		Times:   append([]float64(nil), times...),
		Metrics: make(map[string]float64),
		Method:  dynamo.MethodAnalytic,
	}, nil
}

func (s *Scheduler) solveNumeric(ctx context.Context, model *network.Model, x0 dynamo.State, evts *events.Set, times []float64) (*dynamo.Result, error) {
	integ, err := integrators.New(s.cfg.Integrator)
	if err != nil {
		return nil, err
	}

	n := model.N()
	t0, tEnd := times[0], times[len(times)-1]
	sys := &constrained{base: model, cons: evts.Constraints(t0, n)}
	adv := &integrators.Advancer{
		Integrator: integ,
		Dt:         integrators.StepSize(times, s.cfg.StepFraction, s.cfg.MaxStep),
		Ceiling:    s.cfg.DivergenceLimit,
		Project:    func(t float64, x dynamo.State) { events.Apply(sys.cons, t, x) },
	}

	out := make([]dynamo.State, len(times))
	x := evts.Start(t0, x0)
	ti := 0
	for ti < len(times) && times[ti] == t0 {
		out[ti] = x.Clone()
		ti++
	}

	start := t0
	segments := 0
	for _, end := range segmentEnds(evts.BoundaryTimes(), t0, tEnd) {
		j := ti
		for j < len(times) && times[j] < end {
			j++
		}
		targets := make([]float64, 0, j-ti+1)
		targets = append(targets, times[ti:j]...)
		targets = append(targets, end)

		states, err := adv.Advance(ctx, sys, x, start, targets)
		if err != nil {
			return nil, err
		}
		copy(out[ti:j], states)

		x = evts.Override(end, states[len(states)-1])
		sys.cons = evts.Constraints(end, n)
		events.Apply(sys.cons, end, x)

		for ti = j; ti < len(times) && times[ti] == end; ti++ {
			out[ti] = x.Clone()
		}
		start = end
		segments++
	}

	s.logger.Debug("numeric solution",
		slog.String("integrator", s.cfg.Integrator),
		slog.Float64("dt", adv.Dt),
		slog.Int("segments", segments),
		slog.Int("steps", adv.Steps()),
	)
	return &dynamo.Result{
		States:     out,
		Times:      append([]float64(nil), times...),
		Metrics:    make(map[string]float64),
		Method:     dynamo.MethodNumeric,
		StepsTaken: adv.Steps(),
	}, nil
}

func (s *Scheduler) observe(model *network.Model, result *dynamo.Result) {
	for _, f := range s.metrics {
		m := f(model)
		m.Reset()
		for i, x := range result.States {
			m.Observe(x, result.Times[i])
		}
		result.Metrics[m.Name()] = m.Value()
	}

	if len(result.States) == 0 {
		return
	}
	initial := model.Energy(result.States[0])
	final := model.Energy(result.States[len(result.States)-1])
	if initial != 0 {
		result.FinalEnergyDrift = math.Abs(final-initial) / math.Abs(initial)
	}
}

// segmentEnds returns the event boundaries inside (t0, tEnd] followed by tEnd.
func segmentEnds(bounds []float64, t0, tEnd float64) []float64 {
	ends := make([]float64, 0, len(bounds)+1)
	for _, b := range bounds {
		if b > t0 && b < tEnd {
			ends = append(ends, b)
		}
	}
	if tEnd > t0 {
		ends = append(ends, tEnd)
	}
	return ends
}

func validateTimes(times []float64) error {
	if len(times) == 0 {
		return fmt.Errorf("no sample times: %w", dynamo.ErrInvalidTimeVector)
	}
	for i, t := range times {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return fmt.Errorf("time %d is not finite: %w", i, dynamo.ErrInvalidTimeVector)
		}
		if i > 0 && times[i-1] > t {
			return fmt.Errorf("times[%d]=%g > times[%d]=%g: %w", i-1, times[i-1], i, t, dynamo.ErrInvalidTimeVector)
		}
	}
	return nil
}

// constrained removes pinned variables from integration by replacing their
// derivative with the prescribed rate.
type constrained struct {
	base dynamo.System
	cons []events.Constraint
}

func (c *constrained) Derive(x dynamo.State, t float64) dynamo.State {
	dx := c.base.Derive(x, t)
	events.Rates(c.cons, dx)
	return dx
}

func (c *constrained) StateDim() int { return c.base.StateDim() }
