package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"snakevo/internal/config"
	"snakevo/internal/evo"
	"snakevo/internal/metrics"
	"snakevo/internal/model"
	"snakevo/internal/scape"
	"snakevo/internal/sensing"
	"snakevo/internal/stats"
	"snakevo/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "run":
		return runRun(ctx, args[1:])
	case "replay":
		return runReplay(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "logbook":
		return runLogbook(ctx, args[1:])
	case "plot":
		return runPlot(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	case "modes":
		return runModes(ctx, args[1:])
	case "config":
		return runConfig(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional config file (.yaml, .yml or .ini)")
	runID := fs.String("run-id", "", "explicit run id (single run only)")
	repeats := fs.Int("runs", 1, "independent runs with consecutive seeds")
	logLevel := fs.String("log-level", "info", "log level: debug|info|warn|error")
	overrides := defineConfigFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *repeats <= 0 {
		return errors.New("runs must be > 0")
	}
	if *runID != "" && *repeats > 1 {
		return errors.New("--run-id cannot be combined with --runs > 1")
	}
	logger, err := newLogger(*logLevel)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(fs, *configPath, overrides)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	store, err := storage.NewStore(cfg.Run.Store, cfg.Run.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()
	if err := store.Init(ctx); err != nil {
		return err
	}

	recorder := metrics.NewRecorder()
	if cfg.Run.MetricsAddr != "" {
		metricsCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := metrics.Serve(metricsCtx, cfg.Run.MetricsAddr, recorder, logger); err != nil {
				logger.Error("metrics endpoint failed", "err", err)
			}
		}()
	}

	var exp *stats.ExperimentRecord
	if *repeats > 1 {
		exp = &stats.ExperimentRecord{
			ID:           uuid.NewString(),
			Experiment:   cfg.Run.Experiment,
			Phase:        runPhase(cfg),
			Label:        runLabel(cfg),
			ProgressFlag: stats.ProgressInProgress,
			TotalRuns:    *repeats,
			StartedAtUTC: time.Now().UTC().Format(time.RFC3339),
		}
		if err := stats.WriteExperiment(cfg.Run.OutputDir, *exp); err != nil {
			return err
		}
	}

	for i := 0; i < *repeats; i++ {
		id := *runID
		if id == "" {
			id = uuid.NewString()
		}
		runCfg := *cfg
		runCfg.Evolution.Seed = cfg.Evolution.Seed + int64(i)

		record, err := executeRun(ctx, &runCfg, id, store, recorder, logger)
		recorder.RunFinished(err)
		if err != nil {
			if exp != nil {
				exp.ProgressFlag = stats.ProgressFailed
				exp.Interruptions = append(exp.Interruptions, err.Error())
				_ = stats.WriteExperiment(cfg.Run.OutputDir, *exp)
			}
			return fmt.Errorf("run %d/%d: %w", i+1, *repeats, err)
		}
		if exp != nil {
			exp.RunIDs = append(exp.RunIDs, record.ID)
			if err := stats.WriteExperiment(cfg.Run.OutputDir, *exp); err != nil {
				return err
			}
		}

		fmt.Printf("run_id=%s label=%s seed=%d best=%g evaluations=%s\n",
			record.ID,
			record.Label,
			record.Seed,
			record.FinalBestFitness,
			humanize.Comma(int64(record.Evaluations)),
		)
	}

	if exp != nil {
		exp.ProgressFlag = stats.ProgressCompleted
		exp.CompletedAtUTC = time.Now().UTC().Format(time.RFC3339)
		if err := stats.WriteExperiment(cfg.Run.OutputDir, *exp); err != nil {
			return err
		}
		fmt.Printf("experiment_id=%s runs=%d\n", exp.ID, len(exp.RunIDs))
	}
	return nil
}

// executeRun evolves one population and persists the result to the store
// and the artifact directory.
func executeRun(ctx context.Context, cfg *config.Config, runID string, store storage.Store, recorder *metrics.Recorder, logger *slog.Logger) (model.RunRecord, error) {
	snakeCfg, err := cfg.SnakeConfig()
	if err != nil {
		return model.RunRecord{}, err
	}
	snake, err := scape.NewSnakeScape(snakeCfg)
	if err != nil {
		return model.RunRecord{}, err
	}
	runLogger := logger.With("run_id", runID)
	engine, err := evo.NewEngine(evo.EngineConfig{
		Config:       cfg.EngineConfig(snake.GenomeLength()),
		Evaluator:    snake,
		Logger:       runLogger,
		OnGeneration: recorder.OnGeneration(runID),
	})
	if err != nil {
		return model.RunRecord{}, err
	}

	started := time.Now()
	runLogger.Info("run started",
		"mode", snakeCfg.Mode.String(),
		"pop", cfg.Evolution.PopulationSize,
		"gens", cfg.Evolution.Generations,
		"genome_length", snake.GenomeLength(),
		"seed", cfg.Evolution.Seed,
	)
	result, err := engine.Run(ctx)
	if err != nil {
		return model.RunRecord{}, err
	}
	bestIndividual := result.Best()
	best, _ := bestIndividual.Fitness()
	runLogger.Info("run finished", "best", best, "evaluations", result.Evaluations, "elapsed", time.Since(started).Round(time.Millisecond))

	snapshotJSON, err := json.Marshal(cfg)
	if err != nil {
		return model.RunRecord{}, fmt.Errorf("encode config snapshot: %w", err)
	}
	record := model.RunRecord{
		VersionedRecord:  storage.Stamp(),
		ID:               runID,
		Label:            runLabel(cfg),
		Experiment:       cfg.Run.Experiment,
		Phase:            runPhase(cfg),
		Mode:             snakeCfg.Mode.String(),
		PopulationSize:   cfg.Evolution.PopulationSize,
		Generations:      cfg.Evolution.Generations,
		MutationProb:     cfg.Evolution.MutationProb,
		CrossoverProb:    cfg.Evolution.CrossoverProb,
		Seed:             cfg.Evolution.Seed,
		Evaluations:      result.Evaluations,
		FinalBestFitness: best,
		CreatedAt:        time.Now().UTC(),
		Config:           snapshotJSON,
	}
	snapshot := result.Snapshot(runID)
	snapshot.VersionedRecord = storage.Stamp()

	if err := storage.SaveResult(ctx, store, record, result.Logbook, snapshot); err != nil {
		return model.RunRecord{}, err
	}
	if _, err := stats.WriteRunArtifacts(cfg.Run.OutputDir, stats.RunArtifacts{
		Run:        record,
		Logbook:    result.Logbook,
		Population: snapshot,
	}); err != nil {
		return model.RunRecord{}, err
	}
	if err := stats.AppendRunIndex(cfg.Run.OutputDir, stats.IndexEntry(record)); err != nil {
		return model.RunRecord{}, err
	}
	return record, nil
}

func runLabel(cfg *config.Config) string {
	if cfg.Run.Label != "" {
		return cfg.Run.Label
	}
	exp, err := stats.ParseExperiment(cfg.Run.Experiment)
	if err != nil {
		exp = stats.ExperimentTest
	}
	mode, err := sensing.ParseMode(cfg.Network.Mode)
	if err != nil {
		return string(exp)
	}
	return stats.Label(exp, mode.ID(), cfg.Evolution.MutationProb, cfg.Evolution.CrossoverProb)
}

func runPhase(cfg *config.Config) string {
	phase, err := stats.ParsePhase(cfg.Run.Phase)
	if err != nil {
		return string(stats.PhaseFinal)
	}
	return string(phase)
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: snakevoctl <run|replay|runs|logbook|plot|export|modes|config> [flags]", msg)
}
