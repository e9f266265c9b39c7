package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"snakevo/internal/config"
	"snakevo/internal/nn"
	"snakevo/internal/sensing"
	"snakevo/internal/stats"
)

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 0, "max runs to show (0 = all)")
	jsonOut := fs.Bool("json", false, "print JSON")
	src := defineSourceFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit < 0 {
		return errors.New("limit must be >= 0")
	}

	source, err := openSource(ctx, src)
	if err != nil {
		return err
	}
	defer func() {
		_ = source.Close()
	}()
	entries, err := source.list(ctx)
	if err != nil {
		return err
	}
	if *limit > 0 && len(entries) > *limit {
		entries = entries[:*limit]
	}
	if *jsonOut {
		return printJSON(entries)
	}
	for _, entry := range entries {
		fmt.Printf("run_id=%s label=%s mode=%s pop=%d gens=%d seed=%d best=%g evaluations=%s created=%s\n",
			entry.RunID,
			entry.Label,
			entry.Mode,
			entry.PopulationSize,
			entry.Generations,
			entry.Seed,
			entry.FinalBestFitness,
			humanize.Comma(int64(entry.Evaluations)),
			createdAge(entry.CreatedAtUTC),
		)
	}
	return nil
}

func createdAge(value string) string {
	created, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return value
	}
	return humanize.Time(created)
}

func runLogbook(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("logbook", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "use the newest run")
	format := fs.String("format", "table", "output format: table|csv|json")
	src := defineSourceFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	source, err := openSource(ctx, src)
	if err != nil {
		return err
	}
	defer func() {
		_ = source.Close()
	}()
	id, err := source.resolveRunID(ctx, *runID, *latest)
	if err != nil {
		return err
	}
	artifacts, err := source.artifacts(ctx, id)
	if err != nil {
		return err
	}

	switch *format {
	case "table":
		fmt.Printf("%-5s %-7s %-10s %-10s %-10s %-10s %-10s\n", "gen", "nevals", "mean", "std", "median", "min", "max")
		for _, row := range artifacts.Logbook {
			fmt.Printf("%-5d %-7d %-10.4f %-10.4f %-10.4f %-10.4f %-10.4f\n",
				row.Generation, row.Evaluations, row.Mean, row.Std, row.Median, row.Min, row.Max)
		}
		return nil
	case "csv":
		return stats.WriteLogbookCSV(os.Stdout, artifacts.Logbook)
	case "json":
		return printJSON(artifacts.Logbook)
	default:
		return fmt.Errorf("unsupported logbook format: %s", *format)
	}
}

func runPlot(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("plot", flag.ContinueOnError)
	experiment := fs.String("experiment", "", "only runs of this experiment kind")
	phase := fs.String("phase", "", "only runs of this phase: exploration|final")
	label := fs.String("label", "", "only runs with this label")
	withStd := fs.Bool("std", false, "shade one standard deviation around the mean")
	plotDir := fs.String("plot-dir", "plots", "directory for the figures")
	src := defineSourceFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *experiment != "" {
		if _, err := stats.ParseExperiment(*experiment); err != nil {
			return err
		}
	}
	if *phase != "" {
		if _, err := stats.ParsePhase(*phase); err != nil {
			return err
		}
	}

	source, err := openSource(ctx, src)
	if err != nil {
		return err
	}
	defer func() {
		_ = source.Close()
	}()
	entries, err := source.list(ctx)
	if err != nil {
		return err
	}

	var runs []stats.LabeledLogbook
	for _, entry := range entries {
		if *experiment != "" && entry.Experiment != *experiment {
			continue
		}
		if *label != "" && entry.Label != *label {
			continue
		}
		if *phase != "" && entry.Phase != *phase {
			continue
		}
		artifacts, err := source.artifacts(ctx, entry.RunID)
		if err != nil {
			return err
		}
		// Exploration and final runs of one label never share an aggregate.
		groupLabel := stats.GroupKey(entry.Phase, entry.Label)
		if *phase != "" {
			groupLabel = entry.Label
		}
		runs = append(runs, stats.LabeledLogbook{Label: groupLabel, Logbook: artifacts.Logbook})
	}
	aggs, err := stats.AggregateRuns(runs)
	if err != nil {
		return err
	}
	if len(aggs) == 0 {
		return errors.New("no runs match the filter")
	}

	if err := os.MkdirAll(*plotDir, 0o755); err != nil {
		return err
	}
	fitnessPath := filepath.Join(*plotDir, "fitness.png")
	finalPath := filepath.Join(*plotDir, "final.png")
	if err := stats.PlotFitness(aggs, fitnessPath, *withStd); err != nil {
		return err
	}
	if err := stats.PlotFinal(aggs, finalPath); err != nil {
		return err
	}
	aggData, err := json.MarshalIndent(aggs, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(*plotDir, "aggregates.json"), aggData, 0o644); err != nil {
		return err
	}
	for _, agg := range aggs {
		fmt.Printf("label=%s runs=%d generations=%d\n", agg.Label, agg.Runs, len(agg.Generations))
	}
	fmt.Printf("fitness=%s final=%s\n", fitnessPath, finalPath)
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id to export")
	latest := fs.Bool("latest", false, "export the newest run")
	exportDir := fs.String("to", "exports", "export directory")
	src := defineSourceFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	source, err := openSource(ctx, src)
	if err != nil {
		return err
	}
	defer func() {
		_ = source.Close()
	}()
	id, err := source.resolveRunID(ctx, *runID, *latest)
	if err != nil {
		return err
	}

	if source.store != nil {
		// The store holds the run; write it out as artifacts first.
		artifacts, err := source.artifacts(ctx, id)
		if err != nil {
			return err
		}
		dir, err := stats.WriteRunArtifacts(*exportDir, artifacts)
		if err != nil {
			return err
		}
		fmt.Printf("exported run_id=%s dir=%s\n", id, dir)
		return nil
	}
	dir, err := stats.ExportRunArtifacts(source.baseDir, id, *exportDir)
	if err != nil {
		return err
	}
	fmt.Printf("exported run_id=%s dir=%s\n", id, dir)
	return nil
}

func runModes(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("modes", flag.ContinueOnError)
	diagonal := fs.Bool("diagonal", false, "size networks for diagonal moves")
	if err := fs.Parse(args); err != nil {
		return err
	}
	for _, mode := range sensing.Modes() {
		topology := nn.DefaultTopology(mode.Width(), *diagonal)
		fmt.Printf("id=%s name=%s inputs=%d outputs=%d genome=%d\n",
			mode.ID(), mode.String(), mode.Width(), topology.Outputs, topology.GenomeLength())
	}
	return nil
}

func runConfig(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional config file (.yaml, .yml or .ini)")
	writePath := fs.String("write", "", "write the effective config to this YAML file")
	overrides := defineConfigFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := loadConfig(fs, *configPath, overrides)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if *writePath != "" {
		if err := cfg.WriteYAML(*writePath); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", *writePath)
		return nil
	}
	return printYAML(cfg)
}

func printYAML(cfg *config.Config) error {
	data, err := cfg.YAML()
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

func printJSON(value any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
