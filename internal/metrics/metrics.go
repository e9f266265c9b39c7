// Package metrics exposes run progress as Prometheus collectors.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"snakevo/internal/model"
)

const namespace = "snakevo"

// Recorder owns a private registry so several recorders (and tests) never
// collide on the default one.
type Recorder struct {
	registry    *prometheus.Registry
	evaluations *prometheus.CounterVec
	generation  *prometheus.GaugeVec
	bestFitness *prometheus.GaugeVec
	meanFitness *prometheus.GaugeVec
	runsDone    *prometheus.CounterVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Genome evaluations performed.",
		}, []string{"run_id"}),
		generation: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "generation",
			Help:      "Last completed generation.",
		}, []string{"run_id"}),
		bestFitness: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_fitness",
			Help:      "Maximum fitness in the last completed generation.",
		}, []string{"run_id"}),
		meanFitness: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mean_fitness",
			Help:      "Mean fitness in the last completed generation.",
		}, []string{"run_id"}),
		runsDone: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished runs by outcome.",
		}, []string{"outcome"}),
	}
	r.registry.MustRegister(
		r.evaluations,
		r.generation,
		r.bestFitness,
		r.meanFitness,
		r.runsDone,
		collectors.NewGoCollector(),
	)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// OnGeneration returns an engine hook that records each logbook row.
func (r *Recorder) OnGeneration(runID string) func(model.GenerationRecord) {
	evaluations := r.evaluations.WithLabelValues(runID)
	generation := r.generation.WithLabelValues(runID)
	best := r.bestFitness.WithLabelValues(runID)
	mean := r.meanFitness.WithLabelValues(runID)
	return func(record model.GenerationRecord) {
		evaluations.Add(float64(record.Evaluations))
		generation.Set(float64(record.Generation))
		best.Set(record.Max)
		mean.Set(record.Mean)
	}
}

// RunFinished counts a run as ok or failed.
func (r *Recorder) RunFinished(err error) {
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	r.runsDone.WithLabelValues(outcome).Inc()
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, recorder *Recorder, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", recorder.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	logger.Info("metrics endpoint listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
