package stats

import (
	"fmt"
	"strings"

	"snakevo/internal/model"
)

// Experiment names the study a run belongs to. It decides the run label
// and therefore how runs group when aggregated.
type Experiment string

const (
	ExperimentTest           Experiment = "test"
	ExperimentCXIndPB        Experiment = "cx-indpb"
	ExperimentInput          Experiment = "input"
	ExperimentFinalAlgorithm Experiment = "final-algorithm"
)

var ErrUnknownExperiment = fmt.Errorf("%w: unknown experiment", model.ErrConfiguration)

func Experiments() []Experiment {
	return []Experiment{ExperimentTest, ExperimentCXIndPB, ExperimentInput, ExperimentFinalAlgorithm}
}

// ParseExperiment resolves a name; empty means test.
func ParseExperiment(value string) (Experiment, error) {
	lookup := Experiment(strings.ToLower(strings.TrimSpace(value)))
	if lookup == "" {
		return ExperimentTest, nil
	}
	for _, exp := range Experiments() {
		if lookup == exp {
			return exp, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownExperiment, value)
}

// Phase separates exploratory sweeps from the final repeated runs of the
// same study, so the two never share an aggregate.
type Phase string

const (
	PhaseExploration Phase = "exploration"
	PhaseFinal       Phase = "final"
)

var ErrUnknownPhase = fmt.Errorf("%w: unknown experiment phase", model.ErrConfiguration)

func Phases() []Phase {
	return []Phase{PhaseExploration, PhaseFinal}
}

// ParsePhase resolves a phase name; empty means final.
func ParsePhase(value string) (Phase, error) {
	lookup := Phase(strings.ToLower(strings.TrimSpace(value)))
	if lookup == "" {
		return PhaseFinal, nil
	}
	for _, phase := range Phases() {
		if lookup == phase {
			return phase, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPhase, value)
}

// GroupKey is the aggregation key of a run: the label, prefixed by its
// phase when the run has one.
func GroupKey(phase, label string) string {
	if phase == "" {
		return label
	}
	return phase + "/" + label
}

// Label names a run for grouping. mode is the one-letter sensing mode id.
func Label(exp Experiment, mode string, mutationProb, crossoverProb float64) string {
	switch exp {
	case ExperimentCXIndPB:
		return fmt.Sprintf("indpb-%.3f-cxprob-%.3f", mutationProb, crossoverProb)
	case ExperimentInput, ExperimentFinalAlgorithm:
		return "algorithm-" + mode
	default:
		return fmt.Sprintf("algorithm-%s-indpb-%.3f-cxprob-%.3f", mode, mutationProb, crossoverProb)
	}
}
