package grid

import (
	"errors"
	"fmt"
	"math/rand"

	"snakevo/internal/model"
)

const (
	DefaultGridSize      = 16
	DefaultInitialLength = 11
)

var (
	ErrGridTooSmall = fmt.Errorf("%w: grid too small for initial snake", model.ErrConfiguration)
	ErrNoFreeCell   = errors.New("no free cell to place food")
)

type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (c Cell) Add(o Offset) Cell {
	return Cell{Row: c.Row + o.Row, Col: c.Col + o.Col}
}

type Offset struct {
	Row int
	Col int
}

// Direction is a heading. The first four are the straight moves; the rest
// are diagonals, only reachable when a run enables eight moves.
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
	UpLeft
	DownLeft
	UpRight
	DownRight
)

var (
	StraightDirections = []Direction{Up, Down, Left, Right}
	DiagonalDirections = []Direction{UpLeft, DownLeft, UpRight, DownRight}
	AllDirections      = []Direction{Up, Down, Left, Right, UpLeft, DownLeft, UpRight, DownRight}
)

// Offset returns the unit step for d. Unknown headings have a zero offset,
// which makes the head land on itself and end the episode.
func (d Direction) Offset() Offset {
	switch d {
	case Up:
		return Offset{Row: -1}
	case Down:
		return Offset{Row: 1}
	case Left:
		return Offset{Col: -1}
	case Right:
		return Offset{Col: 1}
	case UpLeft:
		return Offset{Row: -1, Col: -1}
	case DownLeft:
		return Offset{Row: 1, Col: -1}
	case UpRight:
		return Offset{Row: -1, Col: 1}
	case DownRight:
		return Offset{Row: 1, Col: 1}
	default:
		return Offset{}
	}
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	case UpLeft:
		return "upleft"
	case DownLeft:
		return "downleft"
	case UpRight:
		return "upright"
	case DownRight:
		return "downright"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

type State int

const (
	Running State = iota
	GameOver
)

func (s State) String() string {
	if s == GameOver {
		return "game_over"
	}
	return "running"
}

type DeathReason string

const (
	DeathNone    DeathReason = ""
	DeathSelf    DeathReason = "self"
	DeathWall    DeathReason = "wall"
	DeathStarved DeathReason = "starved"
)

type GridConfig struct {
	X             int
	Y             int
	InitialLength int
}

// Validate checks that the initial snake fits inside the walls with at least
// one interior cell left for food.
func (c GridConfig) Validate() error {
	if c.InitialLength <= 0 {
		return fmt.Errorf("%w: initial length=%d", ErrGridTooSmall, c.InitialLength)
	}
	if c.Y < 3 || c.X-2 < c.InitialLength {
		return fmt.Errorf("%w: grid=%dx%d initial length=%d", ErrGridTooSmall, c.X, c.Y, c.InitialLength)
	}
	if (c.X-2)*(c.Y-2) <= c.InitialLength {
		return fmt.Errorf("%w: grid=%dx%d leaves no free cell for food", ErrGridTooSmall, c.X, c.Y)
	}
	return nil
}

// StarvationBudget is the number of ticks a snake survives without eating.
func (c GridConfig) StarvationBudget() int {
	return c.X * c.Y * 3 / 2
}

// Game is the snake state machine. The body is an ordered slice with the
// head at index 0. Membership goes through an occupancy-count grid, so the
// self-collision test is O(1); inserting the new head is O(length).
type Game struct {
	cfg        GridConfig
	rng        *rand.Rand
	body       []Cell
	occupied   []uint16
	food       Cell
	heading    Direction
	starvation int
	score      int
	ticks      int
	grew       bool
	state      State
	death      DeathReason
}

func NewGame(cfg GridConfig, rng *rand.Rand) (*Game, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	g := &Game{
		cfg:      cfg,
		rng:      rng,
		occupied: make([]uint16, cfg.X*cfg.Y),
	}
	if err := g.Reset(); err != nil {
		return nil, err
	}
	return g, nil
}

// Reset places a horizontal snake on the middle row, centred between the
// side walls and facing right, then drops the first food.
func (g *Game) Reset() error {
	for i := range g.occupied {
		g.occupied[i] = 0
	}
	length := g.cfg.InitialLength
	row := g.cfg.Y / 2
	tail := 1 + (g.cfg.X-2-length)/2
	head := tail + length - 1

	g.body = make([]Cell, 0, length+8)
	for col := head; col >= tail; col-- {
		cell := Cell{Row: row, Col: col}
		g.body = append(g.body, cell)
		g.occupied[g.index(cell)]++
	}
	g.heading = Right
	g.starvation = g.cfg.StarvationBudget()
	g.score = 0
	g.ticks = 0
	g.grew = false
	g.state = Running
	g.death = DeathNone
	return g.placeFood()
}

// Step advances one tick with the given heading. Terminal conditions are
// reported through State, never as errors.
func (g *Game) Step(heading Direction) error {
	if g.state == GameOver {
		return nil
	}
	g.ticks++
	g.heading = heading
	newHead := g.body[0].Add(heading.Offset())
	g.pushFront(newHead)

	g.grew = false
	if newHead == g.food {
		g.grew = true
		g.score++
		g.starvation = g.cfg.StarvationBudget()
		if err := g.placeFood(); err != nil {
			g.state = GameOver
			return err
		}
	} else {
		g.popBack()
		g.starvation--
	}

	switch {
	case g.inBounds(newHead) && g.occupied[g.index(newHead)] > 1:
		g.finish(DeathSelf)
	case g.IsWall(newHead):
		g.finish(DeathWall)
	case g.starvation <= 0:
		g.finish(DeathStarved)
	}
	return nil
}

func (g *Game) finish(reason DeathReason) {
	g.state = GameOver
	g.death = reason
}

// placeFood samples interior cells until one is free. The free-cell count is
// checked first so a full board fails instead of spinning.
func (g *Game) placeFood() error {
	interior := (g.cfg.X - 2) * (g.cfg.Y - 2)
	occupiedInterior := 0
	for _, cell := range g.body {
		if !g.IsWall(cell) && g.inBounds(cell) {
			occupiedInterior++
		}
	}
	if interior-occupiedInterior <= 0 {
		return ErrNoFreeCell
	}
	for {
		candidate := Cell{
			Row: 1 + g.rng.Intn(g.cfg.Y-2),
			Col: 1 + g.rng.Intn(g.cfg.X-2),
		}
		if g.occupied[g.index(candidate)] == 0 {
			g.food = candidate
			return nil
		}
	}
}

// SetFood moves the food to cell. It is meant for scripted scenarios and
// rejects walls and body cells.
func (g *Game) SetFood(cell Cell) error {
	if !g.inBounds(cell) || g.IsWall(cell) {
		return fmt.Errorf("food cell %v is not inside the walls", cell)
	}
	if g.occupied[g.index(cell)] > 0 {
		return fmt.Errorf("food cell %v is occupied by the snake", cell)
	}
	g.food = cell
	return nil
}

func (g *Game) pushFront(cell Cell) {
	g.body = append(g.body, Cell{})
	copy(g.body[1:], g.body)
	g.body[0] = cell
	if g.inBounds(cell) {
		g.occupied[g.index(cell)]++
	}
}

func (g *Game) popBack() {
	last := g.body[len(g.body)-1]
	g.body = g.body[:len(g.body)-1]
	if g.inBounds(last) {
		g.occupied[g.index(last)]--
	}
}

func (g *Game) index(c Cell) int {
	return c.Row*g.cfg.X + c.Col
}

func (g *Game) inBounds(c Cell) bool {
	return c.Row >= 0 && c.Row < g.cfg.Y && c.Col >= 0 && c.Col < g.cfg.X
}

// IsWall reports whether c lies on or beyond the border ring.
func (g *Game) IsWall(c Cell) bool {
	return c.Row <= 0 || c.Row >= g.cfg.Y-1 || c.Col <= 0 || c.Col >= g.cfg.X-1
}

// Occupied reports whether any body segment sits on c.
func (g *Game) Occupied(c Cell) bool {
	return g.inBounds(c) && g.occupied[g.index(c)] > 0
}

func (g *Game) Config() GridConfig { return g.cfg }
func (g *Game) Head() Cell { return g.body[0] }
func (g *Game) Food() Cell { return g.food }
func (g *Game) Heading() Direction { return g.heading }
func (g *Game) Starvation() int { return g.starvation }
func (g *Game) Score() int { return g.score }
func (g *Game) Ticks() int { return g.ticks }
func (g *Game) Grew() bool { return g.grew }
func (g *Game) State() State { return g.state }
func (g *Game) Death() DeathReason { return g.death }
func (g *Game) Len() int { return len(g.body) }
func (g *Game) Done() bool { return g.state == GameOver }
func (g *Game) Body() []Cell { return append([]Cell(nil), g.body...) }
