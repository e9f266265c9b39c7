// Package render draws snake episodes in a terminal with tcell.
package render

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"snakevo/internal/grid"
	"snakevo/internal/scape"
)

const (
	wallRune = '█'
	bodyRune = 'o'
	headRune = '@'
	foodRune = '*'
)

var (
	wallStyle   = tcell.StyleDefault.Foreground(tcell.ColorGray)
	bodyStyle   = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	headStyle   = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	foodStyle   = tcell.StyleDefault.Foreground(tcell.ColorRed)
	statusStyle = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	deathStyle  = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
)

// Terminal is a scape.Observer that draws every frame and then waits
// Delay before letting the episode continue.
type Terminal struct {
	screen tcell.Screen
	Delay  time.Duration
	// Title is drawn above the status line, e.g. the run label.
	Title string
}

var _ scape.Observer = (*Terminal)(nil)

// NewTerminal takes an initialised screen; the caller owns Fini.
func NewTerminal(screen tcell.Screen, delay time.Duration) *Terminal {
	return &Terminal{screen: screen, Delay: delay}
}

func (t *Terminal) Observe(ctx context.Context, frame scape.Frame) error {
	t.Draw(frame)
	if t.Delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(t.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Draw renders one frame: rows are screen lines, columns screen cells.
func (t *Terminal) Draw(frame scape.Frame) {
	t.screen.Clear()
	cfg := frame.Grid
	for row := 0; row < cfg.Y; row++ {
		for col := 0; col < cfg.X; col++ {
			if row == 0 || col == 0 || row == cfg.Y-1 || col == cfg.X-1 {
				t.screen.SetContent(col, row, wallRune, nil, wallStyle)
			}
		}
	}
	t.screen.SetContent(frame.Food.Col, frame.Food.Row, foodRune, nil, foodStyle)
	for i := len(frame.Body) - 1; i >= 0; i-- {
		cell := frame.Body[i]
		if i == 0 {
			t.screen.SetContent(cell.Col, cell.Row, headRune, nil, headStyle)
			continue
		}
		t.screen.SetContent(cell.Col, cell.Row, bodyRune, nil, bodyStyle)
	}

	line := cfg.Y
	if t.Title != "" {
		t.drawText(0, line, t.Title, statusStyle)
		line++
	}
	t.drawText(0, line, StatusLine(frame), statusStyle)
	if frame.State == grid.GameOver {
		t.drawText(0, line+1, fmt.Sprintf("game over: %s", frame.Death), deathStyle)
	}
	t.screen.Show()
}

// StatusLine summarises a frame in one line.
func StatusLine(frame scape.Frame) string {
	return fmt.Sprintf("score %d  length %d  tick %d  starvation %d  heading %s",
		frame.Score, len(frame.Body), frame.Tick, frame.Starvation, frame.Heading)
}

func (t *Terminal) drawText(x, y int, text string, style tcell.Style) {
	for i, r := range []rune(text) {
		t.screen.SetContent(x+i, y, r, nil, style)
	}
}

// WatchKeys cancels when the user presses Esc, q or Ctrl-C. It returns
// once the screen is finalised.
func WatchKeys(screen tcell.Screen, cancel context.CancelFunc) {
	for {
		ev := screen.PollEvent()
		if ev == nil {
			return
		}
		key, ok := ev.(*tcell.EventKey)
		if !ok {
			continue
		}
		if key.Key() == tcell.KeyEscape || key.Key() == tcell.KeyCtrlC ||
			(key.Key() == tcell.KeyRune && key.Rune() == 'q') {
			cancel()
			return
		}
	}
}
