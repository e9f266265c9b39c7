package scape

import (
	"context"
	"math/rand"

	"snakevo/internal/grid"
	"snakevo/internal/model"
)

type Fitness float64

type Trace map[string]any

// Scape scores one genome by running one episode. Implementations must not
// keep state between calls; rng is the only source of randomness.
type Scape interface {
	Name() string
	GenomeLength() int
	Evaluate(ctx context.Context, genome model.Genome, rng *rand.Rand) (Fitness, Trace, error)
}

// Frame is the read-only view handed to observers after every tick. Tick 0
// is the initial state.
type Frame struct {
	Tick       int
	Body       []grid.Cell
	Food       grid.Cell
	Grew       bool
	Score      int
	Starvation int
	Heading    grid.Direction
	State      grid.State
	Death      grid.DeathReason
	Grid       grid.GridConfig
}

// Observer receives frames while an episode plays, e.g. a renderer.
type Observer interface {
	Observe(ctx context.Context, frame Frame) error
}

type ObserverFunc func(ctx context.Context, frame Frame) error

func (f ObserverFunc) Observe(ctx context.Context, frame Frame) error {
	return f(ctx, frame)
}

func frameOf(g *grid.Game) Frame {
	return Frame{
		Tick:       g.Ticks(),
		Body:       g.Body(),
		Food:       g.Food(),
		Grew:       g.Grew(),
		Score:      g.Score(),
		Starvation: g.Starvation(),
		Heading:    g.Heading(),
		State:      g.State(),
		Death:      g.Death(),
		Grid:       g.Config(),
	}
}
