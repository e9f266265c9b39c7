package render

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"snakevo/internal/grid"
	"snakevo/internal/scape"
)

func newScreen(t *testing.T) tcell.SimulationScreen {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("init screen: %v", err)
	}
	screen.SetSize(40, 24)
	t.Cleanup(screen.Fini)
	return screen
}

func sampleFrame() scape.Frame {
	return scape.Frame{
		Tick:       3,
		Body:       []grid.Cell{{Row: 2, Col: 4}, {Row: 2, Col: 3}, {Row: 2, Col: 2}},
		Food:       grid.Cell{Row: 5, Col: 6},
		Score:      1,
		Starvation: 90,
		Heading:    grid.Right,
		State:      grid.Running,
		Grid:       grid.GridConfig{X: 8, Y: 8, InitialLength: 3},
	}
}

func runeAt(screen tcell.SimulationScreen, x, y int) rune {
	mainc, _, _, _ := screen.GetContent(x, y)
	return mainc
}

func lineAt(screen tcell.SimulationScreen, y, width int) string {
	var b strings.Builder
	for x := 0; x < width; x++ {
		b.WriteRune(runeAt(screen, x, y))
	}
	return strings.TrimRight(b.String(), " \x00")
}

func TestDrawPlacesWallsBodyAndFood(t *testing.T) {
	screen := newScreen(t)
	term := NewTerminal(screen, 0)
	term.Draw(sampleFrame())

	tests := []struct {
		name string
		x, y int
		want rune
	}{
		{name: "corner", x: 0, y: 0, want: wallRune},
		{name: "right wall", x: 7, y: 4, want: wallRune},
		{name: "head", x: 4, y: 2, want: headRune},
		{name: "body", x: 2, y: 2, want: bodyRune},
		{name: "food", x: 6, y: 5, want: foodRune},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := runeAt(screen, tc.x, tc.y); got != tc.want {
				t.Fatalf("unexpected rune at (%d,%d): got=%q want=%q", tc.x, tc.y, got, tc.want)
			}
		})
	}

	if status := lineAt(screen, 8, 40); !strings.HasPrefix(status, "score 1  length 3  tick 3") {
		t.Fatalf("unexpected status line: %q", status)
	}
}

func TestDrawShowsTitleAndDeath(t *testing.T) {
	screen := newScreen(t)
	term := NewTerminal(screen, 0)
	term.Title = "algorithm-b"
	frame := sampleFrame()
	frame.State = grid.GameOver
	frame.Death = grid.DeathWall
	term.Draw(frame)

	if got := lineAt(screen, 8, 40); got != "algorithm-b" {
		t.Fatalf("unexpected title: got=%q", got)
	}
	if got := lineAt(screen, 10, 40); got != "game over: wall" {
		t.Fatalf("unexpected death line: got=%q", got)
	}
}

func TestObserveHonoursContext(t *testing.T) {
	screen := newScreen(t)
	term := NewTerminal(screen, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := term.Observe(ctx, sampleFrame()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}

	term.Delay = time.Millisecond
	if err := term.Observe(context.Background(), sampleFrame()); err != nil {
		t.Fatalf("observe: %v", err)
	}
}

func TestWatchKeysCancelsOnQuit(t *testing.T) {
	screen := newScreen(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		WatchKeys(screen, cancel)
		close(done)
	}()
	screen.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("key watcher did not return")
	}
	if ctx.Err() == nil {
		t.Fatal("expected context to be canceled")
	}
}
