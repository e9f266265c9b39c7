package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"snakevo/internal/config"
)

// configFlags holds the command-line overrides for config fields.
type configFlags struct {
	x, y, length          *int
	pop, gens, tournament *int
	workers               *int
	cx, mut, sigma, mu    *float64
	seed                  *int64
	mode, sentinel        *string
	activation            *string
	diagonal              *bool
	alwaysInvalidate      *bool
	experiment, label     *string
	phase                 *string
	store, dbPath, out    *string
	metricsAddr           *string
}

func defineConfigFlags(fs *flag.FlagSet) configFlags {
	return configFlags{
		x:                fs.Int("x", 0, "grid columns including walls"),
		y:                fs.Int("y", 0, "grid rows including walls"),
		length:           fs.Int("length", 0, "initial snake length"),
		pop:              fs.Int("pop", 0, "population size"),
		gens:             fs.Int("gens", 0, "generations"),
		tournament:       fs.Int("tournament", 0, "tournament size"),
		workers:          fs.Int("workers", 0, "evaluation workers (0 = NumCPU)"),
		cx:               fs.Float64("cx", 0, "crossover probability per pair"),
		mut:              fs.Float64("mut", 0, "mutation probability per gene"),
		sigma:            fs.Float64("sigma", 0, "mutation standard deviation"),
		mu:               fs.Float64("mu", 0, "mutation mean"),
		seed:             fs.Int64("seed", 0, "random seed"),
		mode:             fs.String("mode", "", "sensing mode name or a..h alias"),
		sentinel:         fs.String("sentinel", "", "distance sentinel: span|inf|minus-one"),
		activation:       fs.String("activation", "", "hidden activation: sigmoid|tanh|relu"),
		diagonal:         fs.Bool("diagonal", false, "allow diagonal moves"),
		alwaysInvalidate: fs.Bool("always-invalidate", false, "re-evaluate every offspring"),
		experiment:       fs.String("experiment", "", "experiment kind: test|cx-indpb|input|final-algorithm"),
		label:            fs.String("label", "", "explicit run label"),
		phase:            fs.String("phase", "", "experiment phase: exploration|final"),
		store:            fs.String("store", "", "store backend: memory|sqlite"),
		dbPath:           fs.String("db-path", "", "sqlite database path"),
		out:              fs.String("out", "", "artifact output directory"),
		metricsAddr:      fs.String("metrics-addr", "", "serve prometheus metrics on this address"),
	}
}

// loadConfig reads the config file, then applies only the flags the user
// actually set.
func loadConfig(fs *flag.FlagSet, path string, f configFlags) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	setFlags := map[string]bool{}
	fs.Visit(func(fl *flag.Flag) {
		setFlags[fl.Name] = true
	})
	err = overrideFromFlags(cfg, setFlags, map[string]any{
		"x":                 *f.x,
		"y":                 *f.y,
		"length":            *f.length,
		"pop":               *f.pop,
		"gens":              *f.gens,
		"tournament":        *f.tournament,
		"workers":           *f.workers,
		"cx":                *f.cx,
		"mut":               *f.mut,
		"sigma":             *f.sigma,
		"mu":                *f.mu,
		"seed":              *f.seed,
		"mode":              *f.mode,
		"sentinel":          *f.sentinel,
		"activation":        *f.activation,
		"diagonal":          *f.diagonal,
		"always-invalidate": *f.alwaysInvalidate,
		"experiment":        *f.experiment,
		"label":             *f.label,
		"phase":             *f.phase,
		"store":             *f.store,
		"db-path":           *f.dbPath,
		"out":               *f.out,
		"metrics-addr":      *f.metricsAddr,
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func overrideFromFlags(cfg *config.Config, set map[string]bool, flagValue map[string]any) error {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "x":
			cfg.Grid.X = v.(int)
		case "y":
			cfg.Grid.Y = v.(int)
		case "length":
			cfg.Grid.InitialLength = v.(int)
		case "pop":
			cfg.Evolution.PopulationSize = v.(int)
		case "gens":
			cfg.Evolution.Generations = v.(int)
		case "tournament":
			cfg.Evolution.TournamentSize = v.(int)
		case "workers":
			cfg.Evolution.Workers = v.(int)
		case "cx":
			cfg.Evolution.CrossoverProb = v.(float64)
		case "mut":
			cfg.Evolution.MutationProb = v.(float64)
		case "sigma":
			cfg.Evolution.MutationSigma = v.(float64)
		case "mu":
			cfg.Evolution.MutationMu = v.(float64)
		case "seed":
			cfg.Evolution.Seed = v.(int64)
		case "always-invalidate":
			cfg.Evolution.AlwaysInvalidate = v.(bool)
		case "mode":
			cfg.Network.Mode = v.(string)
		case "sentinel":
			cfg.Network.Sentinel = v.(string)
		case "activation":
			cfg.Network.Activation = v.(string)
		case "diagonal":
			cfg.Network.DiagonalMoves = v.(bool)
		case "experiment":
			cfg.Run.Experiment = v.(string)
		case "label":
			cfg.Run.Label = v.(string)
		case "phase":
			cfg.Run.Phase = v.(string)
		case "store":
			cfg.Run.Store = v.(string)
		case "db-path":
			cfg.Run.DBPath = v.(string)
		case "out":
			cfg.Run.OutputDir = v.(string)
		case "metrics-addr":
			cfg.Run.MetricsAddr = v.(string)
		default:
			return fmt.Errorf("unsupported override flag: %s", name)
		}
	}
	return nil
}

func newLogger(level string) (*slog.Logger, error) {
	return newLoggerTo(os.Stderr, level)
}

func newLoggerTo(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("unsupported log level: %s", level)
		}
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}
