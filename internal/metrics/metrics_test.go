package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"snakevo/internal/model"
)

func TestOnGenerationRecordsLogbookRows(t *testing.T) {
	recorder := NewRecorder()
	hook := recorder.OnGeneration("run-1")
	hook(model.GenerationRecord{Generation: 0, Evaluations: 10, Mean: 1.5, Max: 4})
	hook(model.GenerationRecord{Generation: 1, Evaluations: 3, Mean: 2, Max: 5})

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{name: "evaluations", got: testutil.ToFloat64(recorder.evaluations.WithLabelValues("run-1")), want: 13},
		{name: "generation", got: testutil.ToFloat64(recorder.generation.WithLabelValues("run-1")), want: 1},
		{name: "best", got: testutil.ToFloat64(recorder.bestFitness.WithLabelValues("run-1")), want: 5},
		{name: "mean", got: testutil.ToFloat64(recorder.meanFitness.WithLabelValues("run-1")), want: 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Fatalf("unexpected %s: got=%v want=%v", tc.name, tc.got, tc.want)
			}
		})
	}
}

func TestRunFinishedCountsOutcomes(t *testing.T) {
	recorder := NewRecorder()
	recorder.RunFinished(nil)
	recorder.RunFinished(nil)
	recorder.RunFinished(errors.New("boom"))

	if got := testutil.ToFloat64(recorder.runsDone.WithLabelValues("ok")); got != 2 {
		t.Fatalf("unexpected ok count: got=%v want=2", got)
	}
	if got := testutil.ToFloat64(recorder.runsDone.WithLabelValues("failed")); got != 1 {
		t.Fatalf("unexpected failed count: got=%v want=1", got)
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	recorder := NewRecorder()
	recorder.OnGeneration("run-7")(model.GenerationRecord{Evaluations: 2, Max: 3})

	server := httptest.NewServer(recorder.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	for _, want := range []string{
		`snakevo_evaluations_total{run_id="run-7"} 2`,
		`snakevo_best_fitness{run_id="run-7"} 3`,
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("expected %q in metrics output", want)
		}
	}
}
