package evo

import (
	"fmt"

	"snakevo/internal/model"
)

const (
	DefaultPopulationSize = 1500
	DefaultGenerations    = 150
	DefaultCrossoverProb  = 0.15
	DefaultMutationProb   = 0.021
	DefaultMutationSigma  = 0.2
	DefaultTournamentSize = 10
)

// Config holds the numeric parameters of one run.
type Config struct {
	PopulationSize int     `json:"population_size"`
	Generations    int     `json:"generations"`
	CrossoverProb  float64 `json:"crossover_prob"`

	// MutationProb is the per-gene perturbation probability.
	MutationProb   float64 `json:"mutation_prob"`
	MutationMu     float64 `json:"mutation_mu"`
	MutationSigma  float64 `json:"mutation_sigma"`
	TournamentSize int     `json:"tournament_size"`
	InitLow        float64 `json:"init_low"`
	InitHigh       float64 `json:"init_high"`
	GenomeLength   int     `json:"genome_length"`

	// Workers bounds concurrent evaluations; 0 means one per CPU.
	Workers int   `json:"workers"`
	Seed    int64 `json:"seed"`

	// AlwaysInvalidate drops every offspring's fitness after mutation even
	// when no gene changed.
	AlwaysInvalidate bool `json:"always_invalidate,omitempty"`
}

func DefaultConfig(genomeLength int) Config {
	return Config{
		PopulationSize: DefaultPopulationSize,
		Generations:    DefaultGenerations,
		CrossoverProb:  DefaultCrossoverProb,
		MutationProb:   DefaultMutationProb,
		MutationSigma:  DefaultMutationSigma,
		TournamentSize: DefaultTournamentSize,
		InitLow:        -1,
		InitHigh:       1,
		GenomeLength:   genomeLength,
		Seed:           1,
	}
}

func (c Config) Validate() error {
	switch {
	case c.PopulationSize <= 0:
		return configErrorf("population size must be > 0, got %d", c.PopulationSize)
	case c.Generations <= 0:
		return configErrorf("generations must be > 0, got %d", c.Generations)
	case c.CrossoverProb < 0 || c.CrossoverProb > 1:
		return configErrorf("crossover probability must be in [0, 1], got %v", c.CrossoverProb)
	case c.MutationProb < 0 || c.MutationProb > 1:
		return configErrorf("mutation probability must be in [0, 1], got %v", c.MutationProb)
	case c.MutationSigma < 0:
		return configErrorf("mutation sigma must be >= 0, got %v", c.MutationSigma)
	case c.TournamentSize <= 0 || c.TournamentSize > c.PopulationSize:
		return configErrorf("tournament size must be in [1, %d], got %d", c.PopulationSize, c.TournamentSize)
	case c.InitLow > c.InitHigh:
		return configErrorf("init range is empty: [%v, %v]", c.InitLow, c.InitHigh)
	case c.GenomeLength <= 0:
		return configErrorf("genome length must be > 0, got %d", c.GenomeLength)
	case c.Workers < 0:
		return configErrorf("workers must be >= 0, got %d", c.Workers)
	}
	return nil
}

func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", model.ErrConfiguration, fmt.Sprintf(format, args...))
}
