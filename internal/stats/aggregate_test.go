package stats

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"snakevo/internal/model"
)

func logbookOf(means, maxes []float64) []model.GenerationRecord {
	logbook := make([]model.GenerationRecord, len(means))
	for i := range means {
		logbook[i] = model.GenerationRecord{Generation: i, Mean: means[i], Max: maxes[i], Std: 1}
	}
	return logbook
}

func TestAggregateRunsAveragesPerGeneration(t *testing.T) {
	aggs, err := AggregateRuns([]LabeledLogbook{
		{Label: "algorithm-h", Logbook: logbookOf([]float64{1, 2}, []float64{3, 4})},
		{Label: "algorithm-b", Logbook: logbookOf([]float64{0, 1}, []float64{1, 2})},
		{Label: "algorithm-b", Logbook: logbookOf([]float64{2, 5}, []float64{3, 8})},
		{Label: "empty"},
	})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(aggs) != 2 || aggs[0].Label != "algorithm-b" || aggs[1].Label != "algorithm-h" {
		t.Fatalf("unexpected groups: %+v", aggs)
	}
	b := aggs[0]
	if b.Runs != 2 {
		t.Fatalf("unexpected run count: got=%d want=2", b.Runs)
	}
	if !reflect.DeepEqual(b.Mean, []float64{1, 3}) || !reflect.DeepEqual(b.Max, []float64{2, 5}) {
		t.Fatalf("unexpected averages: mean=%v max=%v", b.Mean, b.Max)
	}
	if !reflect.DeepEqual(b.FinalMeans, []float64{1, 5}) || !reflect.DeepEqual(b.Generations, []float64{0, 1}) {
		t.Fatalf("unexpected final means or generations: %v %v", b.FinalMeans, b.Generations)
	}
	if math.Abs(b.Std[1]-1) > 1e-12 {
		t.Fatalf("unexpected std average: %v", b.Std)
	}
}

func TestAggregateRunsRejectsRaggedLogbooks(t *testing.T) {
	_, err := AggregateRuns([]LabeledLogbook{
		{Label: "x", Logbook: logbookOf([]float64{1, 2}, []float64{1, 2})},
		{Label: "x", Logbook: logbookOf([]float64{1}, []float64{1})},
	})
	if !errors.Is(err, ErrLogbookLength) {
		t.Fatalf("expected logbook length error, got %v", err)
	}
}

func TestPlotsWritePNGFiles(t *testing.T) {
	aggs, err := AggregateRuns([]LabeledLogbook{
		{Label: "algorithm-a", Logbook: logbookOf([]float64{0, 1, 2}, []float64{1, 2, 4})},
		{Label: "algorithm-a", Logbook: logbookOf([]float64{1, 1, 3}, []float64{2, 3, 5})},
		{Label: "algorithm-g", Logbook: logbookOf([]float64{0, 0, 1}, []float64{0, 1, 1})},
	})
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	dir := t.TempDir()
	fitness := filepath.Join(dir, "fitness.png")
	final := filepath.Join(dir, "final.png")
	if err := PlotFitness(aggs, fitness, true); err != nil {
		t.Fatalf("plot fitness: %v", err)
	}
	if err := PlotFinal(aggs, final); err != nil {
		t.Fatalf("plot final: %v", err)
	}
	for _, path := range []string{fitness, final} {
		info, err := os.Stat(path)
		if err != nil || info.Size() == 0 {
			t.Fatalf("expected non-empty %s: err=%v", path, err)
		}
	}
	if err := PlotFinal(nil, final); err == nil {
		t.Fatal("expected error with nothing to plot")
	}
}
