package analysis

import (
	"fmt"
	"strings"

	"github.com/san-kum/oscnet/internal/dynamo"
)

type Point struct{ X, Y float64 }

// PhasePortrait is the (position, velocity) trace of one oscillator.
type PhasePortrait struct {
	Oscillator int
	Points     []Point
}

// NewPhasePortrait reads the trace of oscillator osc (1-based) from a trajectory.
func NewPhasePortrait(res *dynamo.Result, osc int) (*PhasePortrait, error) {
	if len(res.States) == 0 {
		return nil, fmt.Errorf("empty trajectory: %w", dynamo.ErrInvalidParameter)
	}
	n := len(res.States[0]) / 2
	if osc < 1 || osc > n {
		return nil, fmt.Errorf("oscillator %d out of range 1..%d: %w", osc, n, dynamo.ErrShapeMismatch)
	}

	p := &PhasePortrait{Oscillator: osc, Points: make([]Point, len(res.States))}
	for i, x := range res.States {
		p.Points[i] = Point{X: x[osc-1], Y: x[n+osc-1]}
	}
	return p, nil
}

// ASCII renders the portrait on a width×height character canvas, position
// across and velocity up.
func (p *PhasePortrait) ASCII(width, height int) string {
	if p == nil || len(p.Points) == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, maxX := p.Points[0].X, p.Points[0].X
	minY, maxY := p.Points[0].Y, p.Points[0].Y
	for _, pt := range p.Points {
		minX, maxX = min(minX, pt.X), max(maxX, pt.X)
		minY, maxY = min(minY, pt.Y), max(maxY, pt.Y)
	}

	// pad by a tenth so the trace does not touch the border
	rangeX, rangeY := maxX-minX, maxY-minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX, maxX = minX-rangeX*0.1, maxX+rangeX*0.1
	minY, maxY = minY-rangeY*0.1, maxY+rangeY*0.1
	rangeX, rangeY = maxX-minX, maxY-minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}
	col := func(x float64) int { return int((x - minX) / rangeX * float64(width-1)) }
	row := func(y float64) int { return height - 1 - int((y-minY)/rangeY*float64(height-1)) }

	for _, pt := range p.Points {
		r, c := row(pt.Y), col(pt.X)
		if r >= 0 && r < height && c >= 0 && c < width {
			canvas[r][c] = '•'
		}
	}

	if minX <= 0 && maxX >= 0 {
		c := col(0)
		for r := 0; r < height; r++ {
			if canvas[r][c] == ' ' {
				canvas[r][c] = '│'
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		r := row(0)
		for c := 0; c < width; c++ {
			if canvas[r][c] == ' ' {
				canvas[r][c] = '─'
			}
		}
	}

	var sb strings.Builder
	for _, line := range canvas {
		sb.WriteString(string(line))
		sb.WriteRune('\n')
	}
	return sb.String()
}
