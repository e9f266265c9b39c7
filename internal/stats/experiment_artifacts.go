package stats

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const experimentsDir = "experiments"

// ExperimentRecord groups the repeated runs launched by one invocation.
type ExperimentRecord struct {
	ID             string   `json:"id"`
	Experiment     string   `json:"experiment"`
	Phase          string   `json:"phase,omitempty"`
	Label          string   `json:"label"`
	Notes          string   `json:"notes,omitempty"`
	ProgressFlag   string   `json:"progress_flag"`
	TotalRuns      int      `json:"total_runs"`
	StartedAtUTC   string   `json:"started_at_utc,omitempty"`
	CompletedAtUTC string   `json:"completed_at_utc,omitempty"`
	Interruptions  []string `json:"interruptions,omitempty"`
	RunIDs         []string `json:"run_ids,omitempty"`
}

const (
	ProgressInProgress = "in_progress"
	ProgressCompleted  = "completed"
	ProgressFailed     = "failed"
)

func WriteExperiment(baseDir string, exp ExperimentRecord) error {
	if exp.ID == "" {
		return fmt.Errorf("experiment id is required")
	}
	path := experimentPath(baseDir, exp.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return writeJSON(path, exp)
}

func ReadExperiment(baseDir, id string) (ExperimentRecord, bool, error) {
	if id == "" {
		return ExperimentRecord{}, false, fmt.Errorf("experiment id is required")
	}
	var exp ExperimentRecord
	ok, err := readJSON(experimentPath(baseDir, id), &exp)
	if err != nil || !ok {
		return ExperimentRecord{}, ok, err
	}
	return exp, true, nil
}

// ListExperiments returns experiments newest first; unstarted ones last.
func ListExperiments(baseDir string) ([]ExperimentRecord, error) {
	root := filepath.Join(baseDir, experimentsDir)
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return []ExperimentRecord{}, nil
		}
		return nil, err
	}

	exps := make([]ExperimentRecord, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		exp, ok, err := ReadExperiment(baseDir, entry.Name())
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		exps = append(exps, exp)
	}
	sort.Slice(exps, func(i, j int) bool {
		switch {
		case exps[i].StartedAtUTC == exps[j].StartedAtUTC:
			return exps[i].ID < exps[j].ID
		case exps[i].StartedAtUTC == "":
			return false
		case exps[j].StartedAtUTC == "":
			return true
		default:
			return exps[i].StartedAtUTC > exps[j].StartedAtUTC
		}
	})
	return exps, nil
}

func experimentPath(baseDir, id string) string {
	return filepath.Join(baseDir, experimentsDir, id, "experiment.json")
}
