package model

import "errors"

var ErrStaleFitness = errors.New("individual fitness is not valid")

// Numeric constrains fitness values.
type Numeric interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Genotype is any genome encoding that can deep-copy itself.
type Genotype[G any] interface {
	Clone() G
	Len() int
}

// Individual pairs a genome with its cached fitness. The fitness is only
// meaningful while Valid reports true; any genome edit must be followed by
// Invalidate.
type Individual[G Genotype[G], F Numeric] struct {
	Genome  G
	fitness F
	valid   bool
}

func NewIndividual[G Genotype[G], F Numeric](genome G) Individual[G, F] {
	return Individual[G, F]{Genome: genome}
}

func (i *Individual[G, F]) Fitness() (F, bool) {
	return i.fitness, i.valid
}

// MustFitness returns the cached fitness or ErrStaleFitness.
func (i *Individual[G, F]) MustFitness() (F, error) {
	if !i.valid {
		var zero F
		return zero, ErrStaleFitness
	}
	return i.fitness, nil
}

func (i *Individual[G, F]) SetFitness(f F) {
	i.fitness = f
	i.valid = true
}

func (i *Individual[G, F]) Invalidate() {
	var zero F
	i.fitness = zero
	i.valid = false
}

func (i *Individual[G, F]) Valid() bool {
	return i.valid
}

// Clone copies the genome and keeps the cached fitness, which stays valid
// because the copy is identical.
func (i Individual[G, F]) Clone() Individual[G, F] {
	return Individual[G, F]{
		Genome:  i.Genome.Clone(),
		fitness: i.fitness,
		valid:   i.valid,
	}
}
