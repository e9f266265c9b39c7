package storage

import (
	"context"
	"fmt"

	"snakevo/internal/model"
)

// Store persists finished runs: the run record, its logbook and the final
// population. Getters report (value, found, error).
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	DeleteRun(ctx context.Context, id string) error
	SaveLogbook(ctx context.Context, runID string, logbook []model.GenerationRecord) error
	GetLogbook(ctx context.Context, runID string) ([]model.GenerationRecord, bool, error)
	SavePopulation(ctx context.Context, snapshot model.PopulationSnapshot) error
	GetPopulation(ctx context.Context, runID string) (model.PopulationSnapshot, bool, error)
}

// SaveResult writes all three parts of a run.
func SaveResult(ctx context.Context, store Store, run model.RunRecord, logbook []model.GenerationRecord, snapshot model.PopulationSnapshot) error {
	if err := store.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	if err := store.SaveLogbook(ctx, run.ID, logbook); err != nil {
		return fmt.Errorf("save logbook %s: %w", run.ID, err)
	}
	if err := store.SavePopulation(ctx, snapshot); err != nil {
		return fmt.Errorf("save population %s: %w", run.ID, err)
	}
	return nil
}
