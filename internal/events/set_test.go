package events

import (
	"testing"

	"github.com/san-kum/oscnet/internal/dynamo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVariable(t *testing.T) {
	tests := []struct {
		in   string
		want Variable
		idx  int
		ok   bool
	}{
		{"x.1", X(1), 0, true},
		{"v.2", V(2), 3, true},
		{" x.3 ", X(3), 2, true},
		{"x.0", Variable{}, 0, false},
		{"y.1", Variable{}, 0, false},
		{"x1", Variable{}, 0, false},
		{"v.a", Variable{}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, err := ParseVariable(tt.in)
			if !tt.ok {
				assert.ErrorIs(t, err, dynamo.ErrInvalidParameter)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
			assert.Equal(t, tt.idx, v.Index(2))
			assert.Equal(t, tt.want.String(), v.String())
		})
	}
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{
		"dirac": Instantaneous, "instantaneous": Instantaneous,
		"constant": Hold, "HOLD": Hold, "linear": Linear,
	} {
		k, err := ParseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, k, in)
	}
	_, err := ParseKind("cubic")
	assert.ErrorIs(t, err, dynamo.ErrInvalidParameter)
}

func TestNewSet_Validation(t *testing.T) {
	_, err := NewSet(
		Event{Var: X(1), Time: 5, Kind: Hold},
		Event{Var: X(1), Time: 5, Kind: Hold},
	)
	assert.ErrorIs(t, err, dynamo.ErrInvalidParameter, "equal times on one variable")

	_, err = NewSet(
		Event{Var: X(1), Time: 5},
		Event{Var: X(1), Time: 3},
	)
	assert.ErrorIs(t, err, dynamo.ErrInvalidParameter, "times are not re-sorted")

	_, err = NewSet(Event{Var: X(1), Time: -1})
	assert.ErrorIs(t, err, dynamo.ErrInvalidParameter)

	s, err := NewSet(
		Event{Var: X(1), Time: 5},
		Event{Var: V(1), Time: 3},
		Event{Var: X(2), Time: 3},
	)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []float64{3, 5}, s.BoundaryTimes())
	assert.NoError(t, s.Validate(2))
	assert.ErrorIs(t, s.Validate(1), dynamo.ErrShapeMismatch)
}

func TestEmptySet(t *testing.T) {
	var nilSet *Set
	assert.False(t, nilSet.HasEvents())
	assert.Empty(t, nilSet.BoundaryTimes())

	s, err := NewSet()
	require.NoError(t, err)
	assert.False(t, s.HasEvents())

	x := dynamo.State{1, 2, 3, 4}
	assert.Equal(t, x, s.Override(1, x))
	assert.Nil(t, s.Constraints(1, 2))
}

func TestNewSet_VelocityConflicts(t *testing.T) {
	tests := []struct {
		name string
		evts []Event
		ok   bool
	}{
		{"dirac on v during x hold", []Event{
			{Var: X(1), Time: 1, Value: 0, Kind: Hold},
			{Var: V(1), Time: 2, Value: 3, Kind: Instantaneous},
		}, false},
		{"v hold at the start of an x ramp", []Event{
			{Var: X(1), Time: 1, Value: 0, Kind: Linear},
			{Var: V(1), Time: 1, Value: 3, Kind: Hold},
		}, false},
		{"x hold during v hold", []Event{
			{Var: V(1), Time: 1, Value: 3, Kind: Hold},
			{Var: X(1), Time: 2, Value: 0, Kind: Hold},
		}, false},
		{"v event after the x hold is released", []Event{
			{Var: X(1), Time: 1, Value: 0, Kind: Hold},
			{Var: X(1), Time: 2, Value: 1, Kind: Instantaneous},
			{Var: V(1), Time: 2, Value: 3, Kind: Instantaneous},
		}, true},
		{"x dirac during v hold", []Event{
			{Var: V(1), Time: 1, Value: 3, Kind: Hold},
			{Var: X(1), Time: 2, Value: 0, Kind: Instantaneous},
		}, true},
		{"different oscillators", []Event{
			{Var: X(1), Time: 1, Value: 0, Kind: Hold},
			{Var: V(2), Time: 2, Value: 3, Kind: Instantaneous},
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSet(tt.evts...)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, dynamo.ErrInvalidParameter)
			}
		})
	}
}

func TestOverride(t *testing.T) {
	s, err := NewSet(
		Event{Var: X(1), Time: 1, Value: 9, Kind: Instantaneous},
		Event{Var: X(2), Time: 1, Value: 7, Kind: Hold},
		Event{Var: V(1), Time: 2, Value: -1, Kind: Linear},
	)
	require.NoError(t, err)

	x := dynamo.State{1, 2, 3, 4}
	y := s.Override(1, x)
	assert.Equal(t, dynamo.State{9, 7, 3, 0}, y)
	assert.Equal(t, dynamo.State{1, 2, 3, 4}, x, "input not mutated")

	// nothing scheduled at t=1.5
	assert.Equal(t, x, s.Override(1.5, x))
	assert.Equal(t, dynamo.State{1, 2, -1, 4}, s.Override(2, x))
}

func TestConstraints(t *testing.T) {
	s, err := NewSet(
		Event{Var: X(1), Time: 1, Value: 0, Kind: Linear},
		Event{Var: X(1), Time: 3, Value: 4, Kind: Linear},
		Event{Var: X(2), Time: 1, Value: 5, Kind: Hold},
		Event{Var: X(2), Time: 2, Value: 0, Kind: Instantaneous},
	)
	require.NoError(t, err)

	assert.Empty(t, s.Constraints(0.5, 2))

	cs := s.Constraints(1, 2)
	x := dynamo.State{0, 0, 0, 0}
	Apply(cs, 2, x)
	assert.Equal(t, dynamo.State{2, 5, 2, 0}, x)

	dx := dynamo.State{9, 9, 9, 9}
	Rates(cs, dx)
	assert.Equal(t, dynamo.State{2, 0, 0, 0}, dx)

	// after t=2 the hold on x.2 is released; after t=3 x.1 stays at 4
	cs = s.Constraints(3.5, 2)
	x = dynamo.State{0, 0, 0, 0}
	Apply(cs, 10, x)
	assert.Equal(t, dynamo.State{4, 0, 0, 0}, x)
	assert.Len(t, cs, 2)
}

func TestStart_ReplaysEarlierEvents(t *testing.T) {
	s, err := NewSet(
		Event{Var: X(1), Time: 0, Value: 3, Kind: Instantaneous},
		Event{Var: X(2), Time: 1, Value: 5, Kind: Hold},
	)
	require.NoError(t, err)

	y := s.Start(2, dynamo.State{1, 1, 1, 1})
	assert.Equal(t, dynamo.State{1, 5, 1, 0}, y)
}

func TestParseTable(t *testing.T) {
	s, err := ParseTable([]Row{
		{Var: "x.1", Time: 5, Value: 0},
		{Var: "x.1", Time: 10, Value: 1, Method: "linear"},
	}, "constant")
	require.NoError(t, err)

	evs := s.Events()
	require.Len(t, evs, 2)
	assert.Equal(t, Hold, evs[0].Kind)
	assert.Equal(t, Linear, evs[1].Kind)

	_, err = ParseTable([]Row{{Var: "z.1", Time: 1}}, "")
	assert.ErrorIs(t, err, dynamo.ErrInvalidParameter)
}
