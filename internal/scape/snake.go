package scape

import (
	"context"
	"fmt"
	"math/rand"

	"snakevo/internal/grid"
	"snakevo/internal/model"
	"snakevo/internal/nn"
	"snakevo/internal/sensing"
)

const SnakeName = "snake"

// SnakeConfig is everything an episode needs besides the genome.
type SnakeConfig struct {
	Grid          grid.GridConfig
	Mode          sensing.Mode
	Sentinel      sensing.Sentinel
	DiagonalMoves bool
	Topology      nn.Topology
}

// DefaultSnakeConfig is a 16x16 grid, an 11 cell snake, local sensing with
// food bearing, and four moves.
func DefaultSnakeConfig() SnakeConfig {
	return SnakeConfigFor(sensing.Local4Bearing, false)
}

// SnakeConfigFor builds a default-sized config for mode with a topology
// matching its width.
func SnakeConfigFor(mode sensing.Mode, diagonalMoves bool) SnakeConfig {
	return SnakeConfig{
		Grid: grid.GridConfig{
			X:             grid.DefaultGridSize,
			Y:             grid.DefaultGridSize,
			InitialLength: grid.DefaultInitialLength,
		},
		Mode:          mode,
		Sentinel:      sensing.SentinelSpan,
		DiagonalMoves: diagonalMoves,
		Topology:      nn.DefaultTopology(mode.Width(), diagonalMoves),
	}
}

func (c SnakeConfig) Moves() []grid.Direction {
	if c.DiagonalMoves {
		return grid.AllDirections
	}
	return grid.StraightDirections
}

func (c SnakeConfig) Validate() error {
	if err := c.Grid.Validate(); err != nil {
		return err
	}
	if !c.Mode.Valid() {
		return fmt.Errorf("%w: %d", sensing.ErrUnknownMode, int(c.Mode))
	}
	if err := c.Topology.Validate(); err != nil {
		return err
	}
	if c.Topology.Inputs != c.Mode.Width() {
		return fmt.Errorf("%w: mode %s needs %d inputs, topology has %d",
			nn.ErrInputWidth, c.Mode, c.Mode.Width(), c.Topology.Inputs)
	}
	if moves := len(c.Moves()); c.Topology.Outputs != moves {
		return fmt.Errorf("%w: %d moves need %d outputs, topology has %d",
			nn.ErrTopology, moves, moves, c.Topology.Outputs)
	}
	return nil
}

// SnakeScape evaluates a genome as the number of foods its controller eats
// in one episode.
type SnakeScape struct {
	cfg       SnakeConfig
	extractor *sensing.Extractor
	moves     []grid.Direction
}

func NewSnakeScape(cfg SnakeConfig) (*SnakeScape, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	extractor, err := sensing.NewExtractor(cfg.Mode, cfg.Sentinel)
	if err != nil {
		return nil, err
	}
	return &SnakeScape{
		cfg:       cfg,
		extractor: extractor,
		moves:     cfg.Moves(),
	}, nil
}

func (s *SnakeScape) Name() string {
	return SnakeName
}

func (s *SnakeScape) Config() SnakeConfig {
	return s.cfg
}

func (s *SnakeScape) GenomeLength() int {
	return s.cfg.Topology.GenomeLength()
}

func (s *SnakeScape) Evaluate(ctx context.Context, genome model.Genome, rng *rand.Rand) (Fitness, Trace, error) {
	return s.Play(ctx, genome, rng, nil)
}

// Play runs one episode like Evaluate and reports every tick to observer,
// which may be nil.
func (s *SnakeScape) Play(ctx context.Context, genome model.Genome, rng *rand.Rand, observer Observer) (Fitness, Trace, error) {
	net, err := nn.New(s.cfg.Topology, genome)
	if err != nil {
		return 0, nil, err
	}
	game, err := grid.NewGame(s.cfg.Grid, rng)
	if err != nil {
		return 0, nil, err
	}
	return s.Run(ctx, net, game, observer)
}

// Run drives an already reset game with net until it ends. The starvation
// budget bounds the number of ticks.
func (s *SnakeScape) Run(ctx context.Context, net *nn.Network, game *grid.Game, observer Observer) (Fitness, Trace, error) {
	if topo := net.Topology(); topo.Inputs != s.extractor.Width() || topo.Outputs != len(s.moves) {
		return 0, nil, fmt.Errorf("%w: network %dx%d, scape %dx%d",
			nn.ErrTopology, topo.Inputs, topo.Outputs, s.extractor.Width(), len(s.moves))
	}
	if observer != nil {
		if err := observer.Observe(ctx, frameOf(game)); err != nil {
			return 0, nil, err
		}
	}
	features := make([]float64, 0, s.extractor.Width())
	for !game.Done() {
		if err := ctx.Err(); err != nil {
			return 0, nil, err
		}
		features = s.extractor.Extract(game, features)
		choice, err := net.Decide(features)
		if err != nil {
			return 0, nil, err
		}
		if err := game.Step(s.moves[choice]); err != nil {
			return 0, nil, fmt.Errorf("tick %d: %w", game.Ticks(), err)
		}
		if observer != nil {
			if err := observer.Observe(ctx, frameOf(game)); err != nil {
				return 0, nil, err
			}
		}
	}
	return Fitness(game.Score()), Trace{
		"ticks":  game.Ticks(),
		"length": game.Len(),
		"death":  string(game.Death()),
	}, nil
}
