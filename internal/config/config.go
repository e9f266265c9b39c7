// Package config loads run configuration from embedded defaults overlaid by
// a YAML or INI file.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"

	"snakevo/internal/evo"
	"snakevo/internal/grid"
	"snakevo/internal/model"
	"snakevo/internal/nn"
	"snakevo/internal/scape"
	"snakevo/internal/sensing"
	"snakevo/internal/stats"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Grid      GridConfig      `yaml:"grid"`
	Network   NetworkConfig   `yaml:"network"`
	Evolution EvolutionConfig `yaml:"evolution"`
	Run       RunConfig       `yaml:"run"`
}

type GridConfig struct {
	X             int `yaml:"x" ini:"x"`
	Y             int `yaml:"y" ini:"y"`
	InitialLength int `yaml:"initial_length" ini:"initial_length"`
}

type NetworkConfig struct {
	Mode          string `yaml:"mode" ini:"mode"`         // name or a..h alias
	Sentinel      string `yaml:"sentinel" ini:"sentinel"` // span|inf|minus-one
	DiagonalMoves bool   `yaml:"diagonal_moves" ini:"diagonal_moves"`
	Hidden1       int    `yaml:"hidden1" ini:"hidden1"`
	Hidden2       int    `yaml:"hidden2" ini:"hidden2"`
	Activation    string `yaml:"activation" ini:"activation"`
}

type EvolutionConfig struct {
	PopulationSize   int     `yaml:"population_size" ini:"population_size"`
	Generations      int     `yaml:"generations" ini:"generations"`
	CrossoverProb    float64 `yaml:"crossover_prob" ini:"crossover_prob"`
	MutationProb     float64 `yaml:"mutation_prob" ini:"mutation_prob"`
	MutationMu       float64 `yaml:"mutation_mu" ini:"mutation_mu"`
	MutationSigma    float64 `yaml:"mutation_sigma" ini:"mutation_sigma"`
	TournamentSize   int     `yaml:"tournament_size" ini:"tournament_size"`
	InitLow          float64 `yaml:"init_low" ini:"init_low"`
	InitHigh         float64 `yaml:"init_high" ini:"init_high"`
	Workers          int     `yaml:"workers" ini:"workers"`
	Seed             int64   `yaml:"seed" ini:"seed"`
	AlwaysInvalidate bool    `yaml:"always_invalidate" ini:"always_invalidate"`
}

type RunConfig struct {
	Experiment  string `yaml:"experiment" ini:"experiment"`
	Phase       string `yaml:"phase" ini:"phase"` // exploration|final
	Label       string `yaml:"label" ini:"label"`
	Store       string `yaml:"store" ini:"store"`
	DBPath      string `yaml:"db_path" ini:"db_path"`
	OutputDir   string `yaml:"output_dir" ini:"output_dir"`
	MetricsAddr string `yaml:"metrics_addr" ini:"metrics_addr"`
}

// Default returns the embedded defaults.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	return cfg, nil
}

// Load merges the file at path over the embedded defaults. Keys missing
// from the file keep their default. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return cfg, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".ini":
		if err := cfg.overlayINI(path); err != nil {
			return nil, err
		}
	case ".yaml", ".yml", "":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported config format %q", model.ErrConfiguration, filepath.Ext(path))
	}
	return cfg, nil
}

func (c *Config) overlayINI(path string) error {
	file, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:         true,
		UnescapeValueCommentSymbols: true,
	}, path)
	if err != nil {
		return fmt.Errorf("failed to load config file '%s': %w", path, err)
	}
	sections := []struct {
		name   string
		target any
	}{
		{name: "grid", target: &c.Grid},
		{name: "network", target: &c.Network},
		{name: "evolution", target: &c.Evolution},
		{name: "run", target: &c.Run},
	}
	for _, section := range sections {
		if !file.HasSection(section.name) {
			continue
		}
		if err := file.Section(section.name).MapTo(section.target); err != nil {
			return fmt.Errorf("failed to map [%s] section: %w", section.name, err)
		}
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := c.YAML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return data, nil
}

// Validate rejects any configuration that would fail before the first
// evaluation.
func (c *Config) Validate() error {
	snake, err := c.SnakeConfig()
	if err != nil {
		return err
	}
	if err := snake.Validate(); err != nil {
		return err
	}
	if err := c.EngineConfig(snake.Topology.GenomeLength()).Validate(); err != nil {
		return err
	}
	if _, err := stats.ParseExperiment(c.Run.Experiment); err != nil {
		return err
	}
	if _, err := stats.ParsePhase(c.Run.Phase); err != nil {
		return err
	}
	return nil
}

// SnakeConfig resolves the grid and network sections into an evaluator
// config.
func (c *Config) SnakeConfig() (scape.SnakeConfig, error) {
	mode, err := sensing.ParseMode(c.Network.Mode)
	if err != nil {
		return scape.SnakeConfig{}, err
	}
	sentinel, err := sensing.ParseSentinel(c.Network.Sentinel)
	if err != nil {
		return scape.SnakeConfig{}, err
	}
	topology := nn.DefaultTopology(mode.Width(), c.Network.DiagonalMoves)
	if c.Network.Hidden1 > 0 {
		topology.Hidden1 = c.Network.Hidden1
	}
	if c.Network.Hidden2 > 0 {
		topology.Hidden2 = c.Network.Hidden2
	}
	if c.Network.Activation != "" {
		topology.Activation = c.Network.Activation
	}
	return scape.SnakeConfig{
		Grid: grid.GridConfig{
			X:             c.Grid.X,
			Y:             c.Grid.Y,
			InitialLength: c.Grid.InitialLength,
		},
		Mode:          mode,
		Sentinel:      sentinel,
		DiagonalMoves: c.Network.DiagonalMoves,
		Topology:      topology,
	}, nil
}

func (c *Config) EngineConfig(genomeLength int) evo.Config {
	e := c.Evolution
	return evo.Config{
		PopulationSize:   e.PopulationSize,
		Generations:      e.Generations,
		CrossoverProb:    e.CrossoverProb,
		MutationProb:     e.MutationProb,
		MutationMu:       e.MutationMu,
		MutationSigma:    e.MutationSigma,
		TournamentSize:   e.TournamentSize,
		InitLow:          e.InitLow,
		InitHigh:         e.InitHigh,
		GenomeLength:     genomeLength,
		Workers:          e.Workers,
		Seed:             e.Seed,
		AlwaysInvalidate: e.AlwaysInvalidate,
	}
}
