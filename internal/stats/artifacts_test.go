package stats

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"snakevo/internal/model"
)

func sampleArtifacts(runID string) RunArtifacts {
	return RunArtifacts{
		Run: model.RunRecord{
			VersionedRecord:  model.VersionedRecord{SchemaVersion: 1, CodecVersion: 1},
			ID:               runID,
			Label:            "algorithm-b",
			Experiment:       string(ExperimentInput),
			Phase:            string(PhaseExploration),
			Mode:             "local4-bearing",
			PopulationSize:   4,
			Generations:      2,
			Seed:             1,
			Evaluations:      6,
			FinalBestFitness: 3,
			CreatedAt:        time.Date(2026, 2, 10, 10, 0, 0, 0, time.UTC),
		},
		Logbook: []model.GenerationRecord{
			{Generation: 0, Evaluations: 4, Mean: 1, Std: 0.5, Median: 1, Min: 0, Max: 2},
			{Generation: 1, Evaluations: 2, Mean: 1.5, Std: 0.5, Median: 1.5, Min: 1, Max: 3},
		},
		Population: model.PopulationSnapshot{
			VersionedRecord: model.VersionedRecord{SchemaVersion: 1, CodecVersion: 1},
			RunID:           runID,
			Generation:      2,
			Members:         []model.ScoredGenome{{Genome: model.Genome{0.5}, Fitness: 3, Valid: true}},
		},
	}
}

func TestWriteReadAndExportRunArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "exports")

	want := sampleArtifacts("run-123")
	runDir, err := WriteRunArtifacts(baseDir, want)
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}
	for _, file := range []string{"config.json", "label.json", "logbook.json", "final_population.json"} {
		if _, err := os.Stat(filepath.Join(runDir, file)); err != nil {
			t.Fatalf("expected file %s: %v", file, err)
		}
	}

	got, ok, err := ReadRunArtifacts(baseDir, "run-123")
	if err != nil || !ok {
		t.Fatalf("read artifacts: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(got.Logbook, want.Logbook) || got.Run.Label != want.Run.Label || got.Population.Best() != 0 {
		t.Fatalf("unexpected artifacts: got=%+v", got)
	}

	if _, ok, err := ReadRunArtifacts(baseDir, "missing"); err != nil || ok {
		t.Fatalf("expected missing run: ok=%v err=%v", ok, err)
	}

	exportedDir, err := ExportRunArtifacts(baseDir, "run-123", outDir)
	if err != nil {
		t.Fatalf("export artifacts: %v", err)
	}
	for _, file := range []string{"config.json", "label.json", "logbook.json", "final_population.json"} {
		if _, err := os.Stat(filepath.Join(exportedDir, file)); err != nil {
			t.Fatalf("expected exported file %s: %v", file, err)
		}
	}
	if _, err := ExportRunArtifacts(baseDir, "missing", outDir); err == nil {
		t.Fatal("expected export of missing run to fail")
	}
}

func TestWriteRunArtifactsRequiresRunID(t *testing.T) {
	if _, err := WriteRunArtifacts(t.TempDir(), RunArtifacts{}); err == nil {
		t.Fatal("expected run id error")
	}
}

func TestRunIndexAppendListAndUpsert(t *testing.T) {
	baseDir := t.TempDir()

	first := sampleArtifacts("run-1").Run
	second := sampleArtifacts("run-2").Run
	second.CreatedAt = first.CreatedAt.Add(time.Hour)
	for _, run := range []model.RunRecord{first, second} {
		if err := AppendRunIndex(baseDir, IndexEntry(run)); err != nil {
			t.Fatalf("append %s: %v", run.ID, err)
		}
	}

	entries, err := ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 || entries[0].RunID != "run-2" || entries[1].RunID != "run-1" {
		t.Fatalf("unexpected order: %+v", entries)
	}

	first.FinalBestFitness = 9
	first.CreatedAt = second.CreatedAt.Add(time.Hour)
	if err := AppendRunIndex(baseDir, IndexEntry(first)); err != nil {
		t.Fatalf("upsert run-1: %v", err)
	}
	entries, err = ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list after upsert: %v", err)
	}
	if len(entries) != 2 || entries[0].RunID != "run-1" || entries[0].FinalBestFitness != 9 {
		t.Fatalf("unexpected upsert result: %+v", entries)
	}
}

func TestRunIndexEqualTimestampPrefersLaterAppend(t *testing.T) {
	baseDir := t.TempDir()
	ts := "2026-02-10T12:00:00Z"

	if err := AppendRunIndex(baseDir, RunIndexEntry{RunID: "run-a", CreatedAtUTC: ts}); err != nil {
		t.Fatalf("append run-a: %v", err)
	}
	if err := AppendRunIndex(baseDir, RunIndexEntry{RunID: "run-b", CreatedAtUTC: ts}); err != nil {
		t.Fatalf("append run-b: %v", err)
	}

	entries, err := ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 || entries[0].RunID != "run-b" {
		t.Fatalf("expected latest appended run-b first, got %+v", entries)
	}
}

func TestListRunIndexEmpty(t *testing.T) {
	entries, err := ListRunIndex(t.TempDir())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Fatalf("expected empty non-nil index, got %+v", entries)
	}
}

func TestLogbookCSVRoundTrip(t *testing.T) {
	want := sampleArtifacts("run-1").Logbook
	var buf bytes.Buffer
	if err := WriteLogbookCSV(&buf, want); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if lines := bytes.Count(buf.Bytes(), []byte("\n")); lines != 3 {
		t.Fatalf("unexpected line count: got=%d want=3", lines)
	}
	got, err := ReadLogbookCSV(&buf)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected logbook: got=%+v want=%+v", got, want)
	}
}

func TestIndexEntryCarriesPhase(t *testing.T) {
	entry := IndexEntry(sampleArtifacts("run-phase").Run)
	if entry.Phase != string(PhaseExploration) || entry.Experiment != string(ExperimentInput) {
		t.Fatalf("unexpected index entry: %+v", entry)
	}
	if entry.CreatedAtUTC != "2026-02-10T10:00:00Z" {
		t.Fatalf("unexpected created at: got=%s want=2026-02-10T10:00:00Z", entry.CreatedAtUTC)
	}
}
