package model

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrConfiguration is wrapped by every error that rejects a run before any
// evaluation happens.
var ErrConfiguration = errors.New("configuration error")

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Genome is the flat weight vector of one controller network.
type Genome []float64

func (g Genome) Len() int {
	return len(g)
}

// Clone returns a deep copy; offspring never share backing arrays with
// their parents.
func (g Genome) Clone() Genome {
	if g == nil {
		return nil
	}
	out := make(Genome, len(g))
	copy(out, g)
	return out
}

// GenerationRecord is one row of the run logbook.
type GenerationRecord struct {
	Generation  int     `json:"gen"`
	Evaluations int     `json:"nevals"`
	Mean        float64 `json:"mean"`
	Std         float64 `json:"std"`
	Median      float64 `json:"median"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
}

type ScoredGenome struct {
	Genome  Genome  `json:"genome"`
	Fitness float64 `json:"fitness"`
	Valid   bool    `json:"valid"`
}

// PopulationSnapshot is the final population handed to persistence.
type PopulationSnapshot struct {
	VersionedRecord
	RunID      string         `json:"run_id"`
	Generation int            `json:"generation"`
	Members    []ScoredGenome `json:"members"`
}

// Best returns the index of the fittest valid member, ties to the lowest
// index, or -1 when none is valid.
func (p PopulationSnapshot) Best() int {
	best := -1
	for i, member := range p.Members {
		if !member.Valid {
			continue
		}
		if best < 0 || member.Fitness > p.Members[best].Fitness {
			best = i
		}
	}
	return best
}

type RunRecord struct {
	VersionedRecord
	ID               string          `json:"id"`
	Label            string          `json:"label"`
	Experiment       string          `json:"experiment"`
	Phase            string          `json:"phase,omitempty"`
	Mode             string          `json:"mode"`
	PopulationSize   int             `json:"population_size"`
	Generations      int             `json:"generations"`
	MutationProb     float64         `json:"mutation_prob"`
	CrossoverProb    float64         `json:"crossover_prob"`
	Seed             int64           `json:"seed"`
	Evaluations      int             `json:"evaluations"`
	FinalBestFitness float64         `json:"final_best_fitness"`
	CreatedAt        time.Time       `json:"created_at"`
	Config           json.RawMessage `json:"config,omitempty"`
}
