package storage

import (
	"encoding/json"
	"errors"
	"sort"

	"snakevo/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// Stamp sets the current schema and codec versions.
func Stamp() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func EncodeRun(run model.RunRecord) ([]byte, error) {
	return json.Marshal(run)
}

func DecodeRun(data []byte) (model.RunRecord, error) {
	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunRecord{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.RunRecord{}, err
	}
	return run, nil
}

func EncodePopulation(p model.PopulationSnapshot) ([]byte, error) {
	return json.Marshal(p)
}

func DecodePopulation(data []byte) (model.PopulationSnapshot, error) {
	var snapshot model.PopulationSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return model.PopulationSnapshot{}, err
	}
	if err := checkVersion(snapshot.VersionedRecord); err != nil {
		return model.PopulationSnapshot{}, err
	}
	return snapshot, nil
}

func EncodeLogbook(logbook []model.GenerationRecord) ([]byte, error) {
	if logbook == nil {
		logbook = []model.GenerationRecord{}
	}
	return json.Marshal(logbook)
}

func DecodeLogbook(data []byte) ([]model.GenerationRecord, error) {
	var logbook []model.GenerationRecord
	if err := json.Unmarshal(data, &logbook); err != nil {
		return nil, err
	}
	return logbook, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}

// sortRuns orders runs oldest first, then by id.
func sortRuns(runs []model.RunRecord) {
	sort.SliceStable(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.Before(runs[j].CreatedAt)
		}
		return runs[i].ID < runs[j].ID
	})
}

func cloneRun(run model.RunRecord) model.RunRecord {
	run.Config = append([]byte(nil), run.Config...)
	if len(run.Config) == 0 {
		run.Config = nil
	}
	return run
}

func cloneSnapshot(snapshot model.PopulationSnapshot) model.PopulationSnapshot {
	members := make([]model.ScoredGenome, len(snapshot.Members))
	for i, member := range snapshot.Members {
		members[i] = model.ScoredGenome{Genome: member.Genome.Clone(), Fitness: member.Fitness, Valid: member.Valid}
	}
	snapshot.Members = members
	return snapshot
}
