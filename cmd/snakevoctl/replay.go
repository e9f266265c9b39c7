package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"time"

	"github.com/gdamore/tcell/v2"

	"snakevo/internal/config"
	"snakevo/internal/model"
	"snakevo/internal/render"
	"snakevo/internal/scape"
)

func runReplay(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id to replay")
	latest := fs.Bool("latest", false, "replay the newest run")
	member := fs.Int("member", -1, "population member index (default: best)")
	seed := fs.Int64("seed", 1, "food placement seed")
	delay := fs.Duration("delay", 80*time.Millisecond, "pause between ticks")
	headless := fs.Bool("headless", false, "print the final status line instead of drawing")
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
	genome, index, err := pickMember(artifacts.Population, *member)
	if err != nil {
		return err
	}
	cfg, err := configFromRun(artifacts.Run)
	if err != nil {
		return err
	}
	snakeCfg, err := cfg.SnakeConfig()
	if err != nil {
		return err
	}
	snake, err := scape.NewSnakeScape(snakeCfg)
	if err != nil {
		return err
	}
	if len(genome) != snake.GenomeLength() {
		return fmt.Errorf("%w: member %d has %d genes, network needs %d",
			model.ErrConfiguration, index, len(genome), snake.GenomeLength())
	}

	var last scape.Frame
	var observer scape.Observer = scape.ObserverFunc(func(_ context.Context, frame scape.Frame) error {
		last = frame
		return nil
	})
	if !*headless {
		screen, err := tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("open terminal: %w", err)
		}
		if err := screen.Init(); err != nil {
			return fmt.Errorf("init terminal: %w", err)
		}
		defer screen.Fini()

		playCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		ctx = playCtx
		go render.WatchKeys(screen, cancel)

		terminal := render.NewTerminal(screen, *delay)
		terminal.Title = fmt.Sprintf("run %s member %d", id, index)
		observer = scape.ObserverFunc(func(ctx context.Context, frame scape.Frame) error {
			last = frame
			return terminal.Observe(ctx, frame)
		})
	}

	fitness, trace, err := snake.Play(ctx, genome, rand.New(rand.NewSource(*seed)), observer)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if err != nil {
		fmt.Printf("run_id=%s member=%d interrupted %s\n", id, index, render.StatusLine(last))
		return nil
	}
	fmt.Printf("run_id=%s member=%d fitness=%g ticks=%v length=%v death=%v\n",
		id, index, float64(fitness), trace["ticks"], trace["length"], trace["death"])
	return nil
}

// pickMember returns the requested genome, or the best valid one when
// member is negative.
func pickMember(population model.PopulationSnapshot, member int) (model.Genome, int, error) {
	if len(population.Members) == 0 {
		return nil, 0, fmt.Errorf("run %s has no saved population", population.RunID)
	}
	if member < 0 {
		member = population.Best()
		if member < 0 {
			return nil, 0, fmt.Errorf("run %s has no evaluated member", population.RunID)
		}
	}
	if member >= len(population.Members) {
		return nil, 0, fmt.Errorf("member %d out of range: population has %d", member, len(population.Members))
	}
	return population.Members[member].Genome, member, nil
}

// configFromRun rebuilds the config a run was evolved with. Runs without a
// saved config fall back to the defaults with the recorded mode.
func configFromRun(run model.RunRecord) (*config.Config, error) {
	cfg, err := config.Default()
	if err != nil {
		return nil, err
	}
	if len(run.Config) == 0 {
		if run.Mode != "" {
			cfg.Network.Mode = run.Mode
		}
		return cfg, nil
	}
	if err := json.Unmarshal(run.Config, cfg); err != nil {
		return nil, fmt.Errorf("decode config of run %s: %w", run.ID, err)
	}
	return cfg, nil
}
