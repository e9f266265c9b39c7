package evo

import (
	"fmt"
	"math/rand"

	"snakevo/internal/model"
)

// Selector picks n population indices, with repeats, to seed the offspring
// pool.
type Selector interface {
	Name() string
	Select(rng *rand.Rand, population []Individual, n int) ([]int, error)
}

// TournamentSelector runs one tournament per pick. Aspirants are Size
// distinct individuals; the highest fitness wins and ties go to the lowest
// population index. With Size equal to the population every pick is the
// single best individual.
type TournamentSelector struct {
	Size int
}

func (TournamentSelector) Name() string {
	return "tournament"
}

func (s TournamentSelector) Select(rng *rand.Rand, population []Individual, n int) ([]int, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if len(population) == 0 {
		return nil, fmt.Errorf("population is empty")
	}
	size := s.Size
	if size <= 0 || size > len(population) {
		return nil, fmt.Errorf("%w: tournament size %d for population %d", model.ErrConfiguration, size, len(population))
	}
	fitness := make([]float64, len(population))
	for i := range population {
		f, err := population[i].MustFitness()
		if err != nil {
			return nil, fmt.Errorf("select individual %d: %w", i, err)
		}
		fitness[i] = f
	}

	order := make([]int, len(population))
	for i := range order {
		order[i] = i
	}
	picks := make([]int, n)
	for p := range picks {
		best := -1
		for a := 0; a < size; a++ {
			j := a + rng.Intn(len(order)-a)
			order[a], order[j] = order[j], order[a]
			candidate := order[a]
			if best < 0 || fitness[candidate] > fitness[best] ||
				(fitness[candidate] == fitness[best] && candidate < best) {
				best = candidate
			}
		}
		picks[p] = best
	}
	return picks, nil
}
