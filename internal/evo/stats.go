package evo

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"snakevo/internal/model"
)

// Summarize builds the logbook row for one generation. Std is the
// population standard deviation; the median of an even count averages the
// two middle values.
func Summarize(generation, evaluations int, fitness []float64) model.GenerationRecord {
	record := model.GenerationRecord{Generation: generation, Evaluations: evaluations}
	if len(fitness) == 0 {
		return record
	}
	sorted := append([]float64(nil), fitness...)
	sort.Float64s(sorted)

	record.Mean, record.Std = stat.PopMeanStdDev(sorted, nil)
	record.Median = median(sorted)
	record.Min = floats.Min(sorted)
	record.Max = floats.Max(sorted)
	return record
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
