package viz

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/oscnet/internal/dynamo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trajectory(rows int) *dynamo.Result {
	res := &dynamo.Result{}
	for i := 0; i < rows; i++ {
		t := float64(i) * 0.1
		res.Times = append(res.Times, t)
		res.States = append(res.States, dynamo.State{t, 1 - t, 1, -1})
	}
	return res
}

func update(t *testing.T, r Replay, msg tea.Msg) Replay {
	t.Helper()
	m, _ := r.Update(msg)
	next, ok := m.(Replay)
	require.True(t, ok)
	return next
}

func key(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestReplay_Playback(t *testing.T) {
	r := NewReplay("pair", trajectory(5), nil)
	assert.Equal(t, 0, r.Frame())
	assert.True(t, r.Running())

	r = update(t, r, TickMsg(time.Now()))
	assert.Equal(t, 1, r.Frame())

	r = update(t, r, key("+"))
	r = update(t, r, TickMsg(time.Now()))
	assert.Equal(t, 3, r.Frame())

	r = update(t, r, TickMsg(time.Now()))
	assert.Equal(t, 4, r.Frame(), "clamped to the last row")
	assert.False(t, r.Running())

	r = update(t, r, key(" "))
	assert.Equal(t, 0, r.Frame(), "space at the end restarts")
	assert.True(t, r.Running())
}

func TestReplay_Stepping(t *testing.T) {
	r := NewReplay("pair", trajectory(5), nil)
	r = update(t, r, key(" "))
	assert.False(t, r.Running())

	r = update(t, r, key("]"))
	r = update(t, r, key("]"))
	assert.Equal(t, 2, r.Frame())

	r = update(t, r, key("["))
	r = update(t, r, key("["))
	r = update(t, r, key("["))
	assert.Equal(t, 0, r.Frame())

	r = update(t, r, TickMsg(time.Now()))
	assert.Equal(t, 0, r.Frame(), "paused replay ignores ticks")
}

func TestReplay_View(t *testing.T) {
	energy := func(x dynamo.State) float64 { return x[2] * x[2] }
	r := NewReplay("pair", trajectory(5), energy)
	r = update(t, r, key("tab"))

	view := r.View()
	assert.Contains(t, view, "PAIR")
	assert.Contains(t, view, "Energy")
	assert.Contains(t, view, "x.2")
	assert.Contains(t, view, "v.2")

	_, cmd := r.Update(key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestReplay_Empty(t *testing.T) {
	r := NewReplay("none", &dynamo.Result{}, nil)
	assert.True(t, strings.Contains(r.View(), "empty trajectory"))
}

func TestCanvas(t *testing.T) {
	c := NewCanvas(4, 2)
	w, h := c.Pixels()
	assert.Equal(t, 8, w)
	assert.Equal(t, 8, h)

	c.Set(0, 0)
	c.Set(100, 100)
	assert.Equal(t, rune(0x2801), c.Grid[0][0])

	c.Line(0, 0, 7, 7)
	assert.NotEqual(t, rune(brailleBlank), c.Grid[1][3])

	c.Clear()
	assert.Equal(t, strings.Repeat(string(rune(brailleBlank)), 4)+"\n"+strings.Repeat(string(rune(brailleBlank)), 4)+"\n", c.String())
}

func TestTable(t *testing.T) {
	out := Table([]string{"MODE", "FREQ"}, [][]string{{"1", "0.159155"}, {"12", "1"}})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "1     0.159155", lines[1])
	assert.Equal(t, "12    1", lines[2])
}
