package stats

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"snakevo/internal/model"
)

const runIndexFile = "run_index.json"

var runArtifactFiles = []string{"config.json", "label.json", "logbook.json", "final_population.json"}

// RunArtifacts is everything a finished run leaves on disk.
type RunArtifacts struct {
	Run        model.RunRecord
	Logbook    []model.GenerationRecord
	Population model.PopulationSnapshot
}

type labelFile struct {
	Label      string `json:"label"`
	Experiment string `json:"experiment"`
	Phase      string `json:"phase,omitempty"`
}

type RunIndexEntry struct {
	RunID            string  `json:"run_id"`
	Label            string  `json:"label"`
	Experiment       string  `json:"experiment"`
	Phase            string  `json:"phase,omitempty"`
	Mode             string  `json:"mode"`
	PopulationSize   int     `json:"population_size"`
	Generations      int     `json:"generations"`
	Seed             int64   `json:"seed"`
	Evaluations      int     `json:"evaluations"`
	FinalBestFitness float64 `json:"final_best_fitness"`
	CreatedAtUTC     string  `json:"created_at_utc"`
}

// IndexEntry projects a run record into the run index.
func IndexEntry(run model.RunRecord) RunIndexEntry {
	return RunIndexEntry{
		RunID:            run.ID,
		Label:            run.Label,
		Experiment:       run.Experiment,
		Phase:            run.Phase,
		Mode:             run.Mode,
		PopulationSize:   run.PopulationSize,
		Generations:      run.Generations,
		Seed:             run.Seed,
		Evaluations:      run.Evaluations,
		FinalBestFitness: run.FinalBestFitness,
		CreatedAtUTC:     run.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// WriteRunArtifacts writes baseDir/<run id>/ and returns that directory.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Run.ID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Run.ID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	logbook := artifacts.Logbook
	if logbook == nil {
		logbook = []model.GenerationRecord{}
	}
	files := map[string]any{
		"config.json":           artifacts.Run,
		"label.json":            labelFile{Label: artifacts.Run.Label, Experiment: artifacts.Run.Experiment, Phase: artifacts.Run.Phase},
		"logbook.json":          logbook,
		"final_population.json": artifacts.Population,
	}
	for _, name := range runArtifactFiles {
		if err := writeJSON(filepath.Join(runDir, name), files[name]); err != nil {
			return "", err
		}
	}
	return runDir, nil
}

func ReadRunArtifacts(baseDir, runID string) (RunArtifacts, bool, error) {
	var artifacts RunArtifacts
	ok, err := readJSON(filepath.Join(baseDir, runID, "config.json"), &artifacts.Run)
	if err != nil || !ok {
		return RunArtifacts{}, ok, err
	}
	if _, err := readJSON(filepath.Join(baseDir, runID, "logbook.json"), &artifacts.Logbook); err != nil {
		return RunArtifacts{}, false, err
	}
	if _, err := readJSON(filepath.Join(baseDir, runID, "final_population.json"), &artifacts.Population); err != nil {
		return RunArtifacts{}, false, err
	}
	return artifacts, true, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := readRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns the index newest first; equal timestamps put the
// later append first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	entries, err := readRunIndex(baseDir)
	if err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

func readRunIndex(baseDir string) ([]RunIndexEntry, error) {
	var entries []RunIndexEntry
	ok, err := readJSON(filepath.Join(baseDir, runIndexFile), &entries)
	if err != nil {
		return nil, err
	}
	if !ok || entries == nil {
		return []RunIndexEntry{}, nil
	}
	return entries, nil
}

// ExportRunArtifacts copies a run directory to outDir/<run id>/.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	for _, file := range runArtifactFiles {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	return dst, nil
}

// WriteLogbookCSV writes one row per generation with a header.
func WriteLogbookCSV(w io.Writer, logbook []model.GenerationRecord) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"gen", "nevals", "mean", "std", "median", "min", "max"}); err != nil {
		return err
	}
	format := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	for _, record := range logbook {
		if err := writer.Write([]string{
			strconv.Itoa(record.Generation),
			strconv.Itoa(record.Evaluations),
			format(record.Mean),
			format(record.Std),
			format(record.Median),
			format(record.Min),
			format(record.Max),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadLogbookCSV parses the WriteLogbookCSV format.
func ReadLogbookCSV(r io.Reader) ([]model.GenerationRecord, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []model.GenerationRecord{}, nil
		}
		return nil, err
	}
	if len(header) != 7 {
		return nil, fmt.Errorf("logbook header must have 7 columns, got %d", len(header))
	}

	logbook := make([]model.GenerationRecord, 0, 128)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		var record model.GenerationRecord
		if record.Generation, err = strconv.Atoi(row[0]); err != nil {
			return nil, err
		}
		if record.Evaluations, err = strconv.Atoi(row[1]); err != nil {
			return nil, err
		}
		values := []*float64{&record.Mean, &record.Std, &record.Median, &record.Min, &record.Max}
		for i, dst := range values {
			if *dst, err = strconv.ParseFloat(row[i+2], 64); err != nil {
				return nil, err
			}
		}
		logbook = append(logbook, record)
	}
	return logbook, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

// readJSON reports false without error when the file does not exist.
func readJSON(path string, dst any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
