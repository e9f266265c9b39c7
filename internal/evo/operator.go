package evo

import (
	"math/rand"

	"snakevo/internal/model"
)

// Crossover recombines two genomes in place and reports whether either
// changed.
type Crossover interface {
	Name() string
	Mate(rng *rand.Rand, a, b model.Genome) bool
}

// Mutation perturbs a genome in place and returns the number of genes it
// touched.
type Mutation interface {
	Name() string
	Mutate(rng *rand.Rand, genome model.Genome) int
}

// OnePointCrossover swaps the suffixes after a cut drawn uniformly from
// [1, len-1]. Genomes shorter than two genes are left alone.
type OnePointCrossover struct{}

func (OnePointCrossover) Name() string {
	return "one_point"
}

func (OnePointCrossover) Mate(rng *rand.Rand, a, b model.Genome) bool {
	size := min(len(a), len(b))
	if size < 2 {
		return false
	}
	cut := 1 + rng.Intn(size-1)
	for i := cut; i < size; i++ {
		a[i], b[i] = b[i], a[i]
	}
	return true
}

// GaussianMutation adds N(Mu, Sigma) noise to each gene with probability
// IndPB.
type GaussianMutation struct {
	Mu    float64
	Sigma float64
	IndPB float64
}

func (GaussianMutation) Name() string {
	return "gaussian"
}

func (m GaussianMutation) Mutate(rng *rand.Rand, genome model.Genome) int {
	changed := 0
	for i := range genome {
		if rng.Float64() < m.IndPB {
			genome[i] += m.Mu + rng.NormFloat64()*m.Sigma
			changed++
		}
	}
	return changed
}
