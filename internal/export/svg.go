package export

import (
	"fmt"
	"strings"

	"github.com/san-kum/oscnet/internal/analysis"
	"github.com/san-kum/oscnet/internal/dynamo"
)

var palette = []string{"#00ff00", "#00bfff", "#ff8c00", "#ff1493", "#ffd700", "#9370db"}

type bounds struct {
	minX, maxX, minY, maxY float64
}

func (b *bounds) add(p analysis.Point) {
	b.minX = min(b.minX, p.X)
	b.maxX = max(b.maxX, p.X)
	b.minY = min(b.minY, p.Y)
	b.maxY = max(b.maxY, p.Y)
}

// pad widens the box by 10% on each side; flat ranges become unit ranges.
func (b *bounds) pad() {
	rangeX := b.maxX - b.minX
	rangeY := b.maxY - b.minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	b.minX -= rangeX * 0.1
	b.maxX += rangeX * 0.1
	b.minY -= rangeY * 0.1
	b.maxY += rangeY * 0.1
}

func fit(series [][]analysis.Point) bounds {
	b := bounds{minX: series[0][0].X, maxX: series[0][0].X, minY: series[0][0].Y, maxY: series[0][0].Y}
	for _, pts := range series {
		for _, p := range pts {
			b.add(p)
		}
	}
	b.pad()
	return b
}

func render(series [][]analysis.Point, labels []string, width, height int) string {
	b := fit(series)
	rangeX := b.maxX - b.minX
	rangeY := b.maxY - b.minY

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)

	// zero line
	if b.minY < 0 && b.maxY > 0 {
		y := float64(height) - (0-b.minY)/rangeY*float64(height)
		fmt.Fprintf(&sb, `<line x1="0" y1="%.1f" x2="%d" y2="%.1f" stroke="#333333" stroke-dasharray="4 4"/>
`, y, width, y)
	}

	for s, pts := range series {
		color := palette[s%len(palette)]
		fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, color)
		for i, p := range pts {
			x := (p.X - b.minX) / rangeX * float64(width)
			y := float64(height) - (p.Y-b.minY)/rangeY*float64(height)
			if i == 0 {
				fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
			} else {
				fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
			}
		}
		sb.WriteString("\"/>\n")
		if s < len(labels) {
			fmt.Fprintf(&sb, `<text x="8" y="%d" fill="%s" font-family="monospace" font-size="12">%s</text>
`, 16*(s+1), color, labels[s])
		}
	}

	sb.WriteString("</svg>\n")
	return sb.String()
}

// Channels draws the named state columns of a run against time, one
// coloured path per channel.
func Channels(result *dynamo.Result, channels []string, width, height int) (string, error) {
	if len(result.States) < 2 {
		return "", fmt.Errorf("need at least 2 samples to draw, got %d: %w", len(result.States), dynamo.ErrInvalidParameter)
	}
	if len(channels) == 0 {
		return "", fmt.Errorf("no channels selected: %w", dynamo.ErrInvalidParameter)
	}

	index := make(map[string]int)
	for i, name := range result.Columns()[1:] {
		index[name] = i
	}

	series := make([][]analysis.Point, len(channels))
	for s, name := range channels {
		col, ok := index[name]
		if !ok {
			return "", fmt.Errorf("no channel %q: %w", name, dynamo.ErrInvalidParameter)
		}
		pts := make([]analysis.Point, len(result.States))
		for i, x := range result.States {
			pts[i] = analysis.Point{X: result.Times[i], Y: x[col]}
		}
		series[s] = pts
	}
	return render(series, channels, width, height), nil
}

// Phase draws a phase portrait with position across and velocity up.
func Phase(p *analysis.PhasePortrait, width, height int) string {
	if len(p.Points) < 2 {
		return ""
	}
	label := fmt.Sprintf("oscillator %d", p.Oscillator)
	return render([][]analysis.Point{p.Points}, []string{label}, width, height)
}
