package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"slices"

	"snakevo/internal/model"
	"snakevo/internal/stats"
	"snakevo/internal/storage"
)

// runSource reads finished runs back from the sqlite store when one is
// selected, and from the artifact directory otherwise. The memory store
// does not outlive the process that wrote it.
type runSource struct {
	store   storage.Store
	baseDir string
}

type sourceFlags struct {
	store  *string
	dbPath *string
	out    *string
}

func defineSourceFlags(fs *flag.FlagSet) sourceFlags {
	return sourceFlags{
		store:  fs.String("store", "", "read from store backend: sqlite (default: artifact directory)"),
		dbPath: fs.String("db-path", "snakevo.db", "sqlite database path"),
		out:    fs.String("out", "runs", "artifact directory"),
	}
}

func openSource(ctx context.Context, f sourceFlags) (*runSource, error) {
	src := &runSource{baseDir: *f.out}
	switch *f.store {
	case "", "memory":
		return src, nil
	}
	store, err := storage.NewStore(*f.store, *f.dbPath)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		_ = storage.CloseIfSupported(store)
		return nil, err
	}
	src.store = store
	return src, nil
}

func (s *runSource) Close() error {
	if s.store == nil {
		return nil
	}
	return storage.CloseIfSupported(s.store)
}

// list returns runs newest first.
func (s *runSource) list(ctx context.Context) ([]stats.RunIndexEntry, error) {
	if s.store == nil {
		return stats.ListRunIndex(s.baseDir)
	}
	runs, err := s.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]stats.RunIndexEntry, 0, len(runs))
	for _, run := range runs {
		entries = append(entries, stats.IndexEntry(run))
	}
	slices.Reverse(entries)
	return entries, nil
}

func (s *runSource) resolveRunID(ctx context.Context, runID string, latest bool) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either --run-id or --latest, not both")
	}
	if runID != "" {
		return runID, nil
	}
	if !latest {
		return "", errors.New("--run-id or --latest is required")
	}
	entries, err := s.list(ctx)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", errors.New("no runs available")
	}
	return entries[0].RunID, nil
}

func (s *runSource) artifacts(ctx context.Context, runID string) (stats.RunArtifacts, error) {
	if s.store == nil {
		artifacts, ok, err := stats.ReadRunArtifacts(s.baseDir, runID)
		if err != nil {
			return stats.RunArtifacts{}, err
		}
		if !ok {
			return stats.RunArtifacts{}, fmt.Errorf("run not found: %s", runID)
		}
		return artifacts, nil
	}

	run, ok, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return stats.RunArtifacts{}, err
	}
	if !ok {
		return stats.RunArtifacts{}, fmt.Errorf("run not found: %s", runID)
	}
	logbook, _, err := s.store.GetLogbook(ctx, runID)
	if err != nil {
		return stats.RunArtifacts{}, err
	}
	population, ok, err := s.store.GetPopulation(ctx, runID)
	if err != nil {
		return stats.RunArtifacts{}, err
	}
	if !ok {
		population = model.PopulationSnapshot{RunID: runID}
	}
	return stats.RunArtifacts{Run: run, Logbook: logbook, Population: population}, nil
}
