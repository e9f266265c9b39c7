package sensing

import (
	"fmt"

	"snakevo/internal/grid"
)

// View is the read-only game state the extractors look at.
type View interface {
	Config() grid.GridConfig
	Head() grid.Cell
	Food() grid.Cell
	IsWall(grid.Cell) bool
	Occupied(grid.Cell) bool
}

// Extractor turns a game view into the feature vector of one mode.
type Extractor struct {
	mode     Mode
	sentinel Sentinel
}

func NewExtractor(mode Mode, sentinel Sentinel) (*Extractor, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, int(mode))
	}
	if _, ok := sentinelNames[sentinel]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSentinel, int(sentinel))
	}
	return &Extractor{mode: mode, sentinel: sentinel}, nil
}

func (e *Extractor) Mode() Mode         { return e.mode }
func (e *Extractor) Sentinel() Sentinel { return e.sentinel }
func (e *Extractor) Width() int         { return e.mode.Width() }

// Extract writes the feature vector into dst, reusing its capacity, and
// returns it. Layout per direction set (straight first, then diagonal):
// local modes emit obstacle flags then food flags; global modes emit wall,
// body and food distances. Bearing modes end with the food bearing.
func (e *Extractor) Extract(v View, dst []float64) []float64 {
	dst = dst[:0]
	sets := [][]grid.Direction{grid.StraightDirections}
	if e.mode.Diagonal() {
		sets = append(sets, grid.DiagonalDirections)
	}
	for _, dirs := range sets {
		if e.mode.Global() {
			dst = e.appendGlobal(v, dirs, dst)
		} else {
			dst = appendLocal(v, dirs, dst)
		}
	}
	if e.mode.Bearing() {
		dst = appendBearing(v, dst)
	}
	return dst
}

func appendLocal(v View, dirs []grid.Direction, dst []float64) []float64 {
	head := v.Head()
	for _, d := range dirs {
		dst = append(dst, boolFeature(Obstacle(v, head.Add(d.Offset()))))
	}
	food := v.Food()
	for _, d := range dirs {
		dst = append(dst, boolFeature(head.Add(d.Offset()) == food))
	}
	return dst
}

func (e *Extractor) appendGlobal(v View, dirs []grid.Direction, dst []float64) []float64 {
	sentinel := e.sentinel.Value(v.Config())
	walls := make([]float64, len(dirs))
	bodies := make([]float64, len(dirs))
	foods := make([]float64, len(dirs))
	for i, d := range dirs {
		r := Cast(v, d)
		walls[i] = float64(r.Wall)
		bodies[i] = distanceOr(r.Body, sentinel)
		foods[i] = distanceOr(r.Food, sentinel)
	}
	dst = append(dst, walls...)
	dst = append(dst, bodies...)
	return append(dst, foods...)
}

func appendBearing(v View, dst []float64) []float64 {
	head, food := v.Head(), v.Food()
	return append(dst, float64(sign(food.Col-head.Col)), float64(sign(food.Row-head.Row)))
}

// Obstacle reports whether cell is wall or body.
func Obstacle(v View, cell grid.Cell) bool {
	return v.IsWall(cell) || v.Occupied(cell)
}

// Ray holds step counts from the head along one direction, starting at 1
// for the adjacent cell. Body and Food are 0 when the ray hits the wall
// first.
type Ray struct {
	Wall int
	Body int
	Food int
}

func Cast(v View, d grid.Direction) Ray {
	var r Ray
	offset := d.Offset()
	if offset == (grid.Offset{}) {
		return r
	}
	food := v.Food()
	cell := v.Head()
	for step := 1; ; step++ {
		cell = cell.Add(offset)
		if v.IsWall(cell) {
			r.Wall = step
			return r
		}
		if r.Body == 0 && v.Occupied(cell) {
			r.Body = step
		}
		if r.Food == 0 && cell == food {
			r.Food = step
		}
	}
}

func distanceOr(steps int, sentinel float64) float64 {
	if steps == 0 {
		return sentinel
	}
	return float64(steps)
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
