package events

import (
	"fmt"
	"slices"
	"sort"

	"github.com/san-kum/oscnet/internal/dynamo"
)

// Set is an immutable collection of events grouped by variable.
// The zero value and a nil *Set are both empty.
type Set struct {
	byVar map[Variable][]Event
	// vars lists velocity variables before position variables so that a
	// position constraint, which also pins the velocity, is applied last.
	vars  []Variable
	count int
}

// NewSet validates evts. Events on the same variable must be given in
// strictly increasing time order; they are not re-sorted.
func NewSet(evts ...Event) (*Set, error) {
	s := &Set{byVar: make(map[Variable][]Event)}
	for _, e := range evts {
		if err := e.validate(); err != nil {
			return nil, err
		}
		prev := s.byVar[e.Var]
		if len(prev) > 0 && e.Time <= prev[len(prev)-1].Time {
			return nil, fmt.Errorf("events on %s are not strictly increasing in time (%g after %g): %w",
				e.Var, e.Time, prev[len(prev)-1].Time, dynamo.ErrInvalidParameter)
		}
		s.byVar[e.Var] = append(prev, e)
		s.count++
	}

	for v := range s.byVar {
		s.vars = append(s.vars, v)
		if v.Velocity {
			if err := s.checkVelocityConflicts(v.Oscillator); err != nil {
				return nil, err
			}
		}
	}
	sort.Slice(s.vars, func(i, j int) bool {
		a, b := s.vars[i], s.vars[j]
		if a.Velocity != b.Velocity {
			return a.Velocity
		}
		return a.Oscillator < b.Oscillator
	})
	return s, nil
}

// checkVelocityConflicts rejects velocity events on oscillator i that would
// compete with a position hold or ramp, which already sets the velocity.
func (s *Set) checkVelocityConflicts(i int) error {
	xs, vs := s.byVar[X(i)], s.byVar[V(i)]
	for _, e := range vs {
		if pinned(xs, e.Time) {
			return fmt.Errorf("event on %s at %g while %s is held or ramped: %w", e.Var, e.Time, X(i), dynamo.ErrInvalidParameter)
		}
	}
	for _, e := range xs {
		if e.Kind != Instantaneous && pinned(vs, e.Time) {
			return fmt.Errorf("%s %s event at %g while %s is held or ramped: %w", e.Kind, e.Var, e.Time, V(i), dynamo.ErrInvalidParameter)
		}
	}
	return nil
}

// pinned reports whether a hold or ramp from evs is in force at t.
func pinned(evs []Event, t float64) bool {
	k := sort.Search(len(evs), func(i int) bool { return evs[i].Time > t }) - 1
	return k >= 0 && evs[k].Kind != Instantaneous
}

func (s *Set) HasEvents() bool { return s != nil && s.count > 0 }

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return s.count
}

// Events returns all events ordered by time, then variable.
func (s *Set) Events() []Event {
	if s == nil {
		return nil
	}
	out := make([]Event, 0, s.count)
	for _, v := range s.vars {
		out = append(out, s.byVar[v]...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out
}

// Validate checks every event targets one of n oscillators.
func (s *Set) Validate(n int) error {
	if s == nil {
		return nil
	}
	for _, v := range s.vars {
		if v.Oscillator > n {
			return fmt.Errorf("event on %s but network has %d oscillators: %w", v, n, dynamo.ErrShapeMismatch)
		}
	}
	return nil
}

// BoundaryTimes returns the sorted distinct event times.
func (s *Set) BoundaryTimes() []float64 {
	if s == nil {
		return nil
	}
	times := make([]float64, 0, s.count)
	for _, evs := range s.byVar {
		for _, e := range evs {
			times = append(times, e.Time)
		}
	}
	slices.Sort(times)
	return slices.Compact(times)
}

// Override applies the events scheduled exactly at t to a copy of x.
// Variables without an event at t keep their value.
func (s *Set) Override(t float64, x dynamo.State) dynamo.State {
	y := x.Clone()
	if !s.HasEvents() {
		return y
	}
	n := len(x) / 2
	for _, v := range s.vars {
		evs := s.byVar[v]
		k := slices.IndexFunc(evs, func(e Event) bool { return e.Time == t })
		if k < 0 {
			continue
		}
		if evs[k].Kind == Instantaneous {
			y[v.Index(n)] = evs[k].Value
			continue
		}
		Apply(constraintsFor(v, evs, k, n), t, y)
	}
	return y
}

// Start prepares the initial state of a run beginning at t0: events exactly at
// t0 fire, and holds or ramps begun earlier are already in force.
// Instantaneous events before t0 have no effect.
func (s *Set) Start(t0 float64, x dynamo.State) dynamo.State {
	y := s.Override(t0, x)
	Apply(s.Constraints(t0, len(x)/2), t0, y)
	return y
}

// Constraints returns the pins and ramps in force just after t, valid until
// the next boundary time.
func (s *Set) Constraints(t float64, n int) []Constraint {
	if !s.HasEvents() {
		return nil
	}
	var out []Constraint
	for _, v := range s.vars {
		evs := s.byVar[v]
		k := sort.Search(len(evs), func(i int) bool { return evs[i].Time > t }) - 1
		if k < 0 {
			continue
		}
		out = append(out, constraintsFor(v, evs, k, n)...)
	}
	return out
}

func constraintsFor(v Variable, evs []Event, k, n int) []Constraint {
	e := evs[k]
	idx := v.Index(n)

	switch e.Kind {
	case Instantaneous:
		return nil
	case Hold:
		if v.Velocity {
			return []Constraint{{Index: idx, Value: e.Value, Start: e.Time}}
		}
		return []Constraint{
			{Index: idx, Value: e.Value, Start: e.Time},
			{Index: n + idx, Value: 0, Start: e.Time},
		}
	case Linear:
		slope := 0.0
		if k+1 < len(evs) {
			next := evs[k+1]
			slope = (next.Value - e.Value) / (next.Time - e.Time)
		}
		if v.Velocity {
			return []Constraint{{Index: idx, Value: e.Value, Slope: slope, Start: e.Time}}
		}
		return []Constraint{
			{Index: idx, Value: e.Value, Slope: slope, Start: e.Time},
			{Index: n + idx, Value: slope, Start: e.Time},
		}
	}
	return nil
}
