package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/oscnet/internal/dynamo"
)

const (
	canvasWidth  = 60
	canvasHeight = 20
	chartWindow  = 200
	maxSpeed     = 64
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Replay steps through the rows of a trajectory.
type Replay struct {
	title    string
	result   *dynamo.Result
	energy   []float64
	n        int
	minX     float64
	maxX     float64
	frame    int
	speed    int
	channel  int
	running  bool
	showHelp bool
	canvas   *Canvas
}

// NewReplay prepares a replay of result. energy may be nil.
func NewReplay(title string, result *dynamo.Result, energy func(dynamo.State) float64) Replay {
	r := Replay{
		title:   title,
		result:  result,
		speed:   1,
		running: true,
		canvas:  NewCanvas(canvasWidth, canvasHeight),
	}
	if len(result.States) == 0 {
		return r
	}

	r.n = len(result.States[0]) / 2
	r.minX, r.maxX = math.Inf(1), math.Inf(-1)
	for _, x := range result.States {
		for _, p := range x.Positions() {
			r.minX, r.maxX = math.Min(r.minX, p), math.Max(r.maxX, p)
		}
	}
	if span := r.maxX - r.minX; span > 0 {
		r.minX -= 0.05 * span
		r.maxX += 0.05 * span
	} else {
		r.minX, r.maxX = r.minX-1, r.maxX+1
	}

	if energy != nil {
		r.energy = make([]float64, len(result.States))
		for i, x := range result.States {
			r.energy[i] = energy(x)
		}
	}
	return r
}

// Watch runs the replay full screen until the user quits.
func Watch(title string, result *dynamo.Result, energy func(dynamo.State) float64) error {
	_, err := tea.NewProgram(NewReplay(title, result, energy), tea.WithAltScreen()).Run()
	return err
}

func (r Replay) Frame() int { return r.frame }

func (r Replay) Running() bool { return r.running }

func (r Replay) Init() tea.Cmd { return tick() }

func (r Replay) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	last := len(r.result.States) - 1
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return r, tea.Quit
		case " ":
			if r.frame >= last {
				r.frame = 0
			}
			r.running = !r.running
		case "[", "left":
			r.frame = max(0, r.frame-r.speed)
		case "]", "right":
			r.frame = min(last, r.frame+r.speed)
		case "+", "=":
			r.speed = min(maxSpeed, 2*r.speed)
		case "-", "_":
			r.speed = max(1, r.speed/2)
		case "tab":
			if dim := 2 * r.n; dim > 0 {
				r.channel = (r.channel + 1) % dim
			}
		case "r":
			r.frame = 0
		case "?":
			r.showHelp = !r.showHelp
		}
	case TickMsg:
		if r.running {
			r.frame += r.speed
			if r.frame >= last {
				r.frame = max(0, last)
				r.running = false
			}
		}
		return r, tick()
	}
	return r, nil
}

func (r Replay) View() string {
	if len(r.result.States) == 0 {
		return headerStyle.Render(r.title) + "\nempty trajectory\n"
	}

	x := r.result.States[r.frame]
	t := r.result.Times[r.frame]
	r.draw(x)

	status := "PLAYING"
	switch {
	case r.frame == len(r.result.States)-1:
		status = "END"
	case !r.running:
		status = "PAUSED"
	}

	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(r.title)) + "\n")
	s.WriteString(fmt.Sprintf("%s  x%d\n\n", status, r.speed))
	s.WriteString(labelStyle.Render("Time") + valueStyle.Render(fmt.Sprintf("%.3f", t)) + "\n")
	s.WriteString(labelStyle.Render("Frame") + valueStyle.Render(fmt.Sprintf("%d/%d", r.frame+1, len(r.result.States))) + "\n")
	if r.energy != nil {
		s.WriteString(labelStyle.Render("Energy") + valueStyle.Render(fmt.Sprintf("%.4f", r.energy[r.frame])) + "\n")
	}

	names := dynamo.ColumnNames(r.n)[1:]
	s.WriteString("\n")
	for i := 0; i < r.n; i++ {
		line := fmt.Sprintf("%-5s %9.4f   %-5s %9.4f", names[i], x[i], names[r.n+i], x[r.n+i])
		if i == r.channel%r.n {
			s.WriteString(activeStyle.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + labelStyle.Render(line) + "\n")
		}
	}

	if series := r.window(r.channelSeries()); len(series) > 1 {
		chart := asciigraph.Plot(series, asciigraph.Height(5), asciigraph.Width(36), asciigraph.Caption(names[r.channel]))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}
	if series := r.window(r.energy); len(series) > 1 {
		chart := asciigraph.Plot(series, asciigraph.Height(3), asciigraph.Width(36), asciigraph.Caption("energy"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}

	s.WriteString(helpStyle.Render("SP:Pause [ ]:Step +/-:Speed TAB:Channel R:Restart Q:Quit"))

	main := lipgloss.JoinHorizontal(lipgloss.Top, canvasStyle.Render(r.canvas.String()), statsStyle.Render(s.String()))
	if r.showHelp {
		return helpStyle.Render(helpText) + "\n\n" + main
	}
	return main
}

const helpText = `Space   pause or resume playback
[ / ]   step one frame (times speed) back or forward
+ / -   double or halve playback speed
Tab     chart the next position or velocity channel
R       restart from the first sample
?       toggle this help
Q       quit`

func (r Replay) channelSeries() []float64 {
	out := make([]float64, len(r.result.States))
	for i, x := range r.result.States {
		out[i] = x[r.channel]
	}
	return out
}

// window returns up to chartWindow samples ending at the current frame.
func (r Replay) window(series []float64) []float64 {
	if series == nil {
		return nil
	}
	end := r.frame + 1
	return series[max(0, end-chartWindow):end]
}

// draw places oscillator i on lane i, its horizontal position scaled to the
// trajectory's position range, and links neighbouring lanes.
func (r Replay) draw(x dynamo.State) {
	r.canvas.Clear()
	w, h := r.canvas.Pixels()
	lane := h / (r.n + 1)

	col := func(p float64) int {
		return int((p - r.minX) / (r.maxX - r.minX) * float64(w-1))
	}
	if r.minX <= 0 && r.maxX >= 0 {
		r.canvas.Dashed(col(0))
	}

	prevX, prevY := -1, -1
	for i := 0; i < r.n; i++ {
		cx, cy := col(x[i]), (i+1)*lane
		r.canvas.Disc(cx, cy, 2)
		if prevX >= 0 {
			r.canvas.Line(prevX, prevY, cx, cy)
		}
		prevX, prevY = cx, cy
	}
}
