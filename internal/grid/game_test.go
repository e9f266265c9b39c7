package grid

import (
	"errors"
	"math/rand"
	"testing"

	"snakevo/internal/model"
)

func newTestGame(t *testing.T, cfg GridConfig, seed int64) *Game {
	t.Helper()
	g, err := NewGame(cfg, rand.New(rand.NewSource(seed)))
	if err != nil {
		t.Fatalf("new game: %v", err)
	}
	return g
}

func defaultGrid() GridConfig {
	return GridConfig{X: DefaultGridSize, Y: DefaultGridSize, InitialLength: DefaultInitialLength}
}

func TestResetPlacesCentredSnakeFacingRight(t *testing.T) {
	g := newTestGame(t, defaultGrid(), 1)

	body := g.Body()
	if len(body) != 11 {
		t.Fatalf("unexpected initial length: got=%d want=11", len(body))
	}
	if body[0] != (Cell{Row: 8, Col: 12}) || body[10] != (Cell{Row: 8, Col: 2}) {
		t.Fatalf("unexpected initial placement: head=%v tail=%v", body[0], body[10])
	}
	if g.Heading() != Right {
		t.Fatalf("unexpected heading: %s", g.Heading())
	}
	if g.Starvation() != 384 {
		t.Fatalf("unexpected starvation budget: got=%d want=384", g.Starvation())
	}
	if g.Occupied(g.Food()) || g.IsWall(g.Food()) {
		t.Fatalf("food placed on invalid cell %v", g.Food())
	}
}

func TestEatingFoodAheadGrowsAndResetsBudget(t *testing.T) {
	g := newTestGame(t, defaultGrid(), 7)
	if err := g.SetFood(Cell{Row: 8, Col: 13}); err != nil {
		t.Fatalf("set food: %v", err)
	}
	// Drain part of the budget so the reset is observable.
	g.starvation = 100

	if err := g.Step(Right); err != nil {
		t.Fatalf("step: %v", err)
	}
	if g.Score() != 1 || g.Len() != 12 {
		t.Fatalf("unexpected score/length: score=%d len=%d", g.Score(), g.Len())
	}
	if g.Starvation() != 384 {
		t.Fatalf("unexpected starvation budget: got=%d want=384", g.Starvation())
	}
	if !g.Grew() {
		t.Fatal("expected grew flag after eating")
	}
	if g.Done() {
		t.Fatalf("unexpected game over: %s", g.Death())
	}
	if g.Occupied(g.Food()) {
		t.Fatalf("new food %v placed inside body", g.Food())
	}
}

func TestStepWithoutFoodKeepsLength(t *testing.T) {
	g := newTestGame(t, defaultGrid(), 3)
	if err := g.SetFood(Cell{Row: 1, Col: 1}); err != nil {
		t.Fatalf("set food: %v", err)
	}
	if err := g.Step(Right); err != nil {
		t.Fatalf("step: %v", err)
	}
	if g.Len() != 11 || g.Grew() {
		t.Fatalf("unexpected growth: len=%d grew=%t", g.Len(), g.Grew())
	}
	if g.Starvation() != 383 {
		t.Fatalf("unexpected starvation budget: got=%d want=383", g.Starvation())
	}
	if g.Head() != (Cell{Row: 8, Col: 13}) {
		t.Fatalf("unexpected head: %v", g.Head())
	}
}

func TestWallCollisionEndsGame(t *testing.T) {
	g := newTestGame(t, defaultGrid(), 3)
	if err := g.SetFood(Cell{Row: 14, Col: 14}); err != nil {
		t.Fatalf("set food: %v", err)
	}
	for !g.Done() {
		if err := g.Step(Up); err != nil {
			t.Fatalf("step: %v", err)
		}
	}
	if g.Death() != DeathWall {
		t.Fatalf("unexpected death: got=%s want=%s", g.Death(), DeathWall)
	}
	if g.Ticks() != 8 {
		t.Fatalf("unexpected ticks: got=%d want=8", g.Ticks())
	}
	if g.State() != GameOver {
		t.Fatalf("unexpected state: %s", g.State())
	}
}

func TestReversingIntoNeckIsSelfCollision(t *testing.T) {
	g := newTestGame(t, defaultGrid(), 3)
	if err := g.SetFood(Cell{Row: 1, Col: 1}); err != nil {
		t.Fatalf("set food: %v", err)
	}
	if err := g.Step(Left); err != nil {
		t.Fatalf("step: %v", err)
	}
	if g.Death() != DeathSelf {
		t.Fatalf("unexpected death: got=%s want=%s", g.Death(), DeathSelf)
	}
}

func TestStarvationEndsGameAfterBudget(t *testing.T) {
	g := newTestGame(t, GridConfig{X: 20, Y: 20, InitialLength: 1}, 5)
	if err := g.SetFood(Cell{Row: 1, Col: 1}); err != nil {
		t.Fatalf("set food: %v", err)
	}
	loop := []Direction{Right, Right, Down, Down, Left, Left, Up, Up}
	for i := 0; !g.Done(); i++ {
		if err := g.Step(loop[i%len(loop)]); err != nil {
			t.Fatalf("step: %v", err)
		}
	}
	if g.Death() != DeathStarved {
		t.Fatalf("unexpected death: got=%s want=%s", g.Death(), DeathStarved)
	}
	if g.Ticks() != 600 {
		t.Fatalf("unexpected ticks: got=%d want=600", g.Ticks())
	}
}

func TestRandomEpisodesKeepInvariants(t *testing.T) {
	for seed := int64(0); seed < 40; seed++ {
		rng := rand.New(rand.NewSource(seed))
		g := newTestGame(t, GridConfig{X: 10, Y: 10, InitialLength: 3}, seed)
		budget := g.Config().StarvationBudget()
		sinceEat := 0
		for !g.Done() {
			// Mostly keep heading so episodes last long enough to eat.
			heading := g.Heading()
			if rng.Float64() < 0.3 {
				heading = StraightDirections[rng.Intn(len(StraightDirections))]
			}
			if err := g.Step(heading); err != nil {
				t.Fatalf("seed %d step: %v", seed, err)
			}
			if g.Len() != 3+g.Score() {
				t.Fatalf("seed %d: length=%d want=%d", seed, g.Len(), 3+g.Score())
			}
			if g.Grew() {
				sinceEat = 0
			} else {
				sinceEat++
			}
			if sinceEat > budget {
				t.Fatalf("seed %d: %d ticks since eating exceeds budget %d", seed, sinceEat, budget)
			}
			if !g.Done() && (g.Occupied(g.Food()) || g.IsWall(g.Food())) {
				t.Fatalf("seed %d: food %v on body or wall", seed, g.Food())
			}
		}
	}
}

func TestSameSeedSameFood(t *testing.T) {
	a := newTestGame(t, defaultGrid(), 42)
	b := newTestGame(t, defaultGrid(), 42)
	if a.Food() != b.Food() {
		t.Fatalf("food differs for same seed: %v vs %v", a.Food(), b.Food())
	}
}

func TestGridTooSmallIsConfigurationError(t *testing.T) {
	_, err := NewGame(GridConfig{X: 12, Y: 16, InitialLength: 11}, rand.New(rand.NewSource(1)))
	if !errors.Is(err, ErrGridTooSmall) {
		t.Fatalf("expected grid too small, got %v", err)
	}
	if !errors.Is(err, model.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestFullInteriorIsConfigurationError(t *testing.T) {
	cfg := GridConfig{X: 13, Y: 3, InitialLength: 11}
	if err := cfg.Validate(); !errors.Is(err, model.ErrConfiguration) {
		t.Fatalf("expected configuration error from validate, got %v", err)
	}
	_, err := NewGame(cfg, rand.New(rand.NewSource(1)))
	if !errors.Is(err, ErrGridTooSmall) || !errors.Is(err, model.ErrConfiguration) {
		t.Fatalf("expected grid too small configuration error, got %v", err)
	}
}

func TestEatingLastFreeCellFailsFoodPlacement(t *testing.T) {
	// One free interior cell, directly ahead of the head.
	g := newTestGame(t, GridConfig{X: 14, Y: 3, InitialLength: 11}, 1)
	if want := (Cell{Row: 1, Col: 12}); g.Food() != want {
		t.Fatalf("unexpected food: got=%v want=%v", g.Food(), want)
	}
	if err := g.Step(Right); !errors.Is(err, ErrNoFreeCell) {
		t.Fatalf("expected no free cell, got %v", err)
	}
	if !g.Done() || g.Score() != 1 {
		t.Fatalf("unexpected state after filling the board: done=%t score=%d", g.Done(), g.Score())
	}
}

func TestUnknownHeadingCollidesWithItself(t *testing.T) {
	g := newTestGame(t, defaultGrid(), 1)
	if err := g.Step(Direction(42)); err != nil {
		t.Fatalf("step: %v", err)
	}
	if g.Death() != DeathSelf {
		t.Fatalf("unexpected death: %s", g.Death())
	}
}
