package evo

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"runtime"
	"sync"

	"snakevo/internal/model"
	"snakevo/internal/scape"
)

// Individual is the one concrete individual type the engine evolves.
type Individual = model.Individual[model.Genome, float64]

// Evaluator scores one genome. Calls run concurrently, each with its own
// rng.
type Evaluator interface {
	Evaluate(ctx context.Context, genome model.Genome, rng *rand.Rand) (scape.Fitness, scape.Trace, error)
}

type EngineConfig struct {
	Config    Config
	Evaluator Evaluator
	Selector  Selector
	Crossover Crossover
	Mutation  Mutation
	Logger    *slog.Logger
	// OnGeneration is called on the run goroutine after each logbook row.
	OnGeneration func(model.GenerationRecord)
}

type Result struct {
	Logbook     []model.GenerationRecord
	Population  []Individual
	BestIndex   int
	Evaluations int
}

func (r Result) Best() Individual {
	return r.Population[r.BestIndex]
}

// Snapshot converts the final population for persistence.
func (r Result) Snapshot(runID string) model.PopulationSnapshot {
	members := make([]model.ScoredGenome, len(r.Population))
	for i := range r.Population {
		fitness, valid := r.Population[i].Fitness()
		members[i] = model.ScoredGenome{Genome: r.Population[i].Genome.Clone(), Fitness: fitness, Valid: valid}
	}
	return model.PopulationSnapshot{
		RunID:      runID,
		Generation: len(r.Logbook),
		Members:    members,
	}
}

// Engine runs a fully generational algorithm: tournament selection, clone,
// one-point crossover on consecutive pairs, per-gene Gaussian mutation,
// evaluation of invalid individuals, wholesale replacement. There is no
// elitism.
type Engine struct {
	cfg EngineConfig
	rng *rand.Rand
}

func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Evaluator == nil {
		return nil, fmt.Errorf("evaluator is required")
	}
	if err := cfg.Config.Validate(); err != nil {
		return nil, err
	}
	if sized, ok := cfg.Evaluator.(interface{ GenomeLength() int }); ok && sized.GenomeLength() != cfg.Config.GenomeLength {
		return nil, configErrorf("genome length %d does not match evaluator length %d",
			cfg.Config.GenomeLength, sized.GenomeLength())
	}
	if cfg.Config.Workers == 0 {
		cfg.Config.Workers = runtime.NumCPU()
	}
	if cfg.Selector == nil {
		cfg.Selector = TournamentSelector{Size: cfg.Config.TournamentSize}
	}
	if cfg.Crossover == nil {
		cfg.Crossover = OnePointCrossover{}
	}
	if cfg.Mutation == nil {
		cfg.Mutation = GaussianMutation{
			Mu:    cfg.Config.MutationMu,
			Sigma: cfg.Config.MutationSigma,
			IndPB: cfg.Config.MutationProb,
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Config.Seed)),
	}, nil
}

func (e *Engine) Config() Config {
	return e.cfg.Config
}

// Run evolves a fresh uniform population for Config.Generations
// generations. Logbook row g counts the evaluations made in generation g;
// row 0 includes the initial population.
func (e *Engine) Run(ctx context.Context) (Result, error) {
	population := e.initialPopulation()
	return e.run(ctx, population)
}

// RunFrom evolves the given genomes instead of a random population.
func (e *Engine) RunFrom(ctx context.Context, genomes []model.Genome) (Result, error) {
	if len(genomes) != e.cfg.Config.PopulationSize {
		return Result{}, configErrorf("initial population mismatch: got=%d want=%d", len(genomes), e.cfg.Config.PopulationSize)
	}
	population := make([]Individual, len(genomes))
	for i, genome := range genomes {
		if len(genome) != e.cfg.Config.GenomeLength {
			return Result{}, configErrorf("genome %d length %d, want %d", i, len(genome), e.cfg.Config.GenomeLength)
		}
		population[i] = model.NewIndividual[model.Genome, float64](genome.Clone())
	}
	return e.run(ctx, population)
}

func (e *Engine) run(ctx context.Context, population []Individual) (Result, error) {
	cfg := e.cfg.Config
	logbook := make([]model.GenerationRecord, 0, cfg.Generations)
	total := 0

	pending, err := e.evaluate(ctx, population)
	if err != nil {
		return Result{}, err
	}
	total += pending

	for gen := 0; gen < cfg.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		offspring, err := e.vary(population)
		if err != nil {
			return Result{}, fmt.Errorf("generation %d: %w", gen, err)
		}
		evaluated, err := e.evaluate(ctx, offspring)
		if err != nil {
			return Result{}, fmt.Errorf("generation %d: %w", gen, err)
		}
		total += evaluated
		population = offspring

		record := Summarize(gen, pending+evaluated, fitnessValues(population))
		pending = 0
		logbook = append(logbook, record)
		e.cfg.Logger.Debug("generation complete",
			"gen", record.Generation,
			"nevals", record.Evaluations,
			"mean", record.Mean,
			"max", record.Max,
		)
		if e.cfg.OnGeneration != nil {
			e.cfg.OnGeneration(record)
		}
	}

	return Result{
		Logbook:     logbook,
		Population:  population,
		BestIndex:   bestIndex(population),
		Evaluations: total,
	}, nil
}

func (e *Engine) initialPopulation() []Individual {
	cfg := e.cfg.Config
	population := make([]Individual, cfg.PopulationSize)
	for i := range population {
		genome := make(model.Genome, cfg.GenomeLength)
		for j := range genome {
			genome[j] = cfg.InitLow + e.rng.Float64()*(cfg.InitHigh-cfg.InitLow)
		}
		population[i] = model.NewIndividual[model.Genome, float64](genome)
	}
	return population
}

// vary builds the offspring pool: select, clone, mate consecutive pairs,
// mutate. Fitness survives only on individuals whose genome is unchanged.
func (e *Engine) vary(population []Individual) ([]Individual, error) {
	cfg := e.cfg.Config
	picks, err := e.cfg.Selector.Select(e.rng, population, len(population))
	if err != nil {
		return nil, err
	}
	offspring := make([]Individual, len(picks))
	for i, idx := range picks {
		offspring[i] = population[idx].Clone()
	}

	for i := 1; i < len(offspring); i += 2 {
		if e.rng.Float64() < cfg.CrossoverProb {
			if e.cfg.Crossover.Mate(e.rng, offspring[i-1].Genome, offspring[i].Genome) {
				offspring[i-1].Invalidate()
				offspring[i].Invalidate()
			}
		}
	}

	for i := range offspring {
		changed := e.cfg.Mutation.Mutate(e.rng, offspring[i].Genome)
		if changed > 0 || cfg.AlwaysInvalidate {
			offspring[i].Invalidate()
		}
	}
	return offspring, nil
}

// evaluate scores every invalid individual on the worker pool and returns
// how many it evaluated. Seeds are drawn in population order before any
// work starts, so results do not depend on the worker count.
func (e *Engine) evaluate(ctx context.Context, population []Individual) (int, error) {
	type job struct {
		idx  int
		seed int64
	}
	type result struct {
		idx     int
		fitness float64
		err     error
	}

	var jobsToRun []job
	for i := range population {
		if !population[i].Valid() {
			jobsToRun = append(jobsToRun, job{idx: i, seed: e.rng.Int63()})
		}
	}
	if len(jobsToRun) == 0 {
		return 0, nil
	}

	jobs := make(chan job)
	results := make(chan result, len(jobsToRun))

	workerCount := min(e.cfg.Config.Workers, len(jobsToRun))
	var wg sync.WaitGroup
	wg.Add(workerCount)
	for w := 0; w < workerCount; w++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				if err := ctx.Err(); err != nil {
					results <- result{idx: j.idx, err: err}
					continue
				}
				fitness, _, err := e.cfg.Evaluator.Evaluate(ctx, population[j.idx].Genome, rand.New(rand.NewSource(j.seed)))
				results <- result{idx: j.idx, fitness: float64(fitness), err: err}
			}
		}()
	}

	for _, j := range jobsToRun {
		jobs <- j
	}
	close(jobs)

	wg.Wait()
	close(results)

	var firstErr error
	for res := range results {
		if res.err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("evaluate individual %d: %w", res.idx, res.err)
			}
			continue
		}
		population[res.idx].SetFitness(res.fitness)
	}
	if firstErr != nil {
		return 0, firstErr
	}
	return len(jobsToRun), nil
}

func fitnessValues(population []Individual) []float64 {
	values := make([]float64, len(population))
	for i := range population {
		values[i], _ = population[i].Fitness()
	}
	return values
}

func bestIndex(population []Individual) int {
	best := 0
	for i := range population {
		fi, _ := population[i].Fitness()
		fb, _ := population[best].Fitness()
		if fi > fb {
			best = i
		}
	}
	return best
}
