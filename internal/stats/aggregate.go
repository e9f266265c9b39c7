package stats

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"snakevo/internal/model"
)

var ErrLogbookLength = errors.New("runs under one label have different logbook lengths")

// LabeledLogbook is one run's logbook with the label it groups under.
type LabeledLogbook struct {
	Label   string
	Logbook []model.GenerationRecord
}

// Aggregate averages the logbooks of every run sharing a label.
type Aggregate struct {
	Label       string    `json:"label"`
	Runs        int       `json:"runs"`
	Generations []float64 `json:"generations"`
	Mean        []float64 `json:"mean"`
	Max         []float64 `json:"max"`
	Std         []float64 `json:"std"`
	// FinalMeans holds each run's mean fitness in its last generation.
	FinalMeans []float64 `json:"final_means"`
}

// AggregateRuns groups runs by label, in label order, and averages mean,
// max and std per generation across the group.
func AggregateRuns(runs []LabeledLogbook) ([]Aggregate, error) {
	groups := make(map[string][][]model.GenerationRecord)
	for _, run := range runs {
		if len(run.Logbook) == 0 {
			continue
		}
		groups[run.Label] = append(groups[run.Label], run.Logbook)
	}
	labels := make([]string, 0, len(groups))
	for label := range groups {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	out := make([]Aggregate, 0, len(labels))
	for _, label := range labels {
		agg, err := aggregateGroup(label, groups[label])
		if err != nil {
			return nil, err
		}
		out = append(out, agg)
	}
	return out, nil
}

func aggregateGroup(label string, logbooks [][]model.GenerationRecord) (Aggregate, error) {
	length := len(logbooks[0])
	for _, logbook := range logbooks[1:] {
		if len(logbook) != length {
			return Aggregate{}, fmt.Errorf("%w: label %s has %d and %d", ErrLogbookLength, label, length, len(logbook))
		}
	}

	agg := Aggregate{
		Label:       label,
		Runs:        len(logbooks),
		Generations: make([]float64, length),
		Mean:        make([]float64, length),
		Max:         make([]float64, length),
		Std:         make([]float64, length),
		FinalMeans:  make([]float64, len(logbooks)),
	}
	column := make([]float64, len(logbooks))
	pick := func(gen int, field func(model.GenerationRecord) float64) float64 {
		for i, logbook := range logbooks {
			column[i] = field(logbook[gen])
		}
		return stat.Mean(column, nil)
	}
	for gen := 0; gen < length; gen++ {
		agg.Generations[gen] = float64(logbooks[0][gen].Generation)
		agg.Mean[gen] = pick(gen, func(r model.GenerationRecord) float64 { return r.Mean })
		agg.Max[gen] = pick(gen, func(r model.GenerationRecord) float64 { return r.Max })
		agg.Std[gen] = pick(gen, func(r model.GenerationRecord) float64 { return r.Std })
	}
	for i, logbook := range logbooks {
		agg.FinalMeans[i] = logbook[length-1].Mean
	}
	return agg, nil
}
