package optim

import (
	"context"
	"fmt"
	"maps"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/san-kum/oscnet/internal/dynamo"
	"github.com/san-kum/oscnet/internal/sim"
)

// GridSearch evaluates every combination of parameter values.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) == 0 || len(params) != len(ranges) {
		return nil, fmt.Errorf("%d parameters with %d value lists: %w", len(params), len(ranges), dynamo.ErrInvalidParameter)
	}
	for i, r := range ranges {
		if len(r) == 0 {
			return nil, fmt.Errorf("parameter %q has no values: %w", params[i], dynamo.ErrInvalidParameter)
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// Points lists the grid with the last parameter varying fastest.
func (g *GridSearch) Points() []map[string]float64 {
	var points []map[string]float64
	g.collect(0, make(map[string]float64), &points)
	return points
}

func (g *GridSearch) collect(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(g.paramNames) {
		*out = append(*out, maps.Clone(current))
		return
	}
	name := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		current[name] = val
		g.collect(depth+1, current, out)
	}
}

// Candidate is one evaluated grid point.
type Candidate struct {
	Params map[string]float64
	Value  float64
	Result *dynamo.Result
}

// Search builds a request for every grid point, simulates them through the
// scheduler's batch runner and returns the candidates ordered by the named
// metric, smallest first. NaN values sort last.
func (g *GridSearch) Search(
	ctx context.Context,
	scheduler *sim.Scheduler,
	build func(params map[string]float64) (sim.Request, error),
	metricName string,
	limit int,
) ([]Candidate, error) {
	points := g.Points()
	reqs := make([]sim.Request, len(points))
	for i, p := range points {
		req, err := build(p)
		if err != nil {
			return nil, fmt.Errorf("grid point %v: %w", p, err)
		}
		reqs[i] = req
	}

	results, err := scheduler.Batch(ctx, reqs, limit)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, len(points))
	for i, res := range results {
		val, ok := res.Metrics[metricName]
		if !ok {
			return nil, fmt.Errorf("metric %q not recorded: %w", metricName, dynamo.ErrInvalidParameter)
		}
		candidates[i] = Candidate{Params: points[i], Value: val, Result: res}
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		va, vb := candidates[a].Value, candidates[b].Value
		if math.IsNaN(vb) {
			return !math.IsNaN(va)
		}
		return va < vb
	})
	return candidates, nil
}

// ParseAxis reads "name=v1,v2,..." or "name=lo:hi:count" (count evenly
// spaced values including both ends).
func ParseAxis(s string) (string, []float64, error) {
	name, list, ok := strings.Cut(s, "=")
	if !ok || name == "" || list == "" {
		return "", nil, fmt.Errorf("axis %q: want name=values: %w", s, dynamo.ErrInvalidParameter)
	}

	if lo, rest, ok := strings.Cut(list, ":"); ok {
		hi, count, ok := strings.Cut(rest, ":")
		if !ok {
			return "", nil, fmt.Errorf("axis %q: range needs lo:hi:count: %w", s, dynamo.ErrInvalidParameter)
		}
		a, errA := strconv.ParseFloat(lo, 64)
		b, errB := strconv.ParseFloat(hi, 64)
		n, errN := strconv.Atoi(count)
		if errA != nil || errB != nil || errN != nil || n < 1 {
			return "", nil, fmt.Errorf("axis %q: bad range: %w", s, dynamo.ErrInvalidParameter)
		}
		if n == 1 {
			return name, []float64{a}, nil
		}
		values := make([]float64, n)
		for i := range values {
			values[i] = a + (b-a)*float64(i)/float64(n-1)
		}
		return name, values, nil
	}

	fields := strings.Split(list, ",")
	values := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return "", nil, fmt.Errorf("axis %q: %v: %w", s, err, dynamo.ErrInvalidParameter)
		}
		values[i] = v
	}
	return name, values, nil
}
