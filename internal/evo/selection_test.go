package evo

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"snakevo/internal/model"
)

func scoredPopulation(fitness ...float64) []Individual {
	population := make([]Individual, len(fitness))
	for i, f := range fitness {
		population[i] = model.NewIndividual[model.Genome, float64](model.Genome{float64(i)})
		population[i].SetFitness(f)
	}
	return population
}

func TestTournamentFullSizeAlwaysPicksBest(t *testing.T) {
	population := scoredPopulation(3, 9, 1, 9, 4, 2)
	selector := TournamentSelector{Size: len(population)}
	for seed := int64(0); seed < 20; seed++ {
		picks, err := selector.Select(rand.New(rand.NewSource(seed)), population, len(population))
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		for _, idx := range picks {
			if idx != 1 {
				t.Fatalf("seed %d: unexpected pick %d, want first best index 1", seed, idx)
			}
		}
	}
}

func TestTournamentSizeOneIsUniform(t *testing.T) {
	population := scoredPopulation(0, 1, 2, 3)
	picks, err := TournamentSelector{Size: 1}.Select(rand.New(rand.NewSource(5)), population, 4000)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	counts := make([]int, len(population))
	for _, idx := range picks {
		counts[idx]++
	}
	for i, c := range counts {
		if math.Abs(float64(c)-1000) > 150 {
			t.Fatalf("index %d picked %d times, expected about 1000", i, c)
		}
	}
}

func TestTournamentNeverPicksWorstWithSizeTwo(t *testing.T) {
	population := scoredPopulation(5, 0, 7)
	picks, err := TournamentSelector{Size: 2}.Select(rand.New(rand.NewSource(8)), population, 500)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	for _, idx := range picks {
		if idx == 1 {
			t.Fatal("two distinct aspirants can never both be the worst individual")
		}
	}
}

func TestTournamentRejectsStaleFitnessAndBadSize(t *testing.T) {
	population := scoredPopulation(1, 2, 3)
	population[2].Invalidate()
	_, err := TournamentSelector{Size: 2}.Select(rand.New(rand.NewSource(1)), population, 3)
	if !errors.Is(err, model.ErrStaleFitness) {
		t.Fatalf("expected stale fitness error, got %v", err)
	}

	_, err = TournamentSelector{Size: 4}.Select(rand.New(rand.NewSource(1)), scoredPopulation(1, 2, 3), 3)
	if !errors.Is(err, model.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestOnePointCrossoverCutInsideGenome(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	cuts := make(map[int]bool)
	for i := 0; i < 200; i++ {
		a := model.Genome{0, 0, 0, 0}
		b := model.Genome{1, 1, 1, 1}
		if !(OnePointCrossover{}).Mate(rng, a, b) {
			t.Fatal("expected crossover to apply")
		}
		cut := 0
		for cut < len(a) && a[cut] == 0 {
			cut++
		}
		if cut < 1 || cut > 3 {
			t.Fatalf("cut %d outside [1, 3]: a=%v b=%v", cut, a, b)
		}
		for j := range a {
			if a[j]+b[j] != 1 {
				t.Fatalf("genes lost in swap: a=%v b=%v", a, b)
			}
		}
		cuts[cut] = true
	}
	if len(cuts) != 3 {
		t.Fatalf("expected every cut in [1, 3], saw %v", cuts)
	}

	single := model.Genome{5}
	other := model.Genome{6}
	if (OnePointCrossover{}).Mate(rng, single, other) || single[0] != 5 {
		t.Fatal("expected single-gene genomes to be left alone")
	}
}

func TestGaussianMutation(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	genome := model.Genome{0, 0, 0}
	if changed := (GaussianMutation{Sigma: 0.2, IndPB: 0}).Mutate(rng, genome); changed != 0 || genome[0] != 0 {
		t.Fatalf("unexpected mutation with zero probability: changed=%d genome=%v", changed, genome)
	}
	if changed := (GaussianMutation{Mu: 5, Sigma: 0, IndPB: 1}).Mutate(rng, genome); changed != 3 {
		t.Fatalf("unexpected changed count: %d", changed)
	}
	for _, v := range genome {
		if v != 5 {
			t.Fatalf("expected shift by mu with zero sigma, got %v", genome)
		}
	}
}

func TestSummarize(t *testing.T) {
	record := Summarize(3, 7, []float64{4, 1, 3, 2})
	if record.Generation != 3 || record.Evaluations != 7 {
		t.Fatalf("unexpected counters: %+v", record)
	}
	if record.Mean != 2.5 || record.Median != 2.5 || record.Min != 1 || record.Max != 4 {
		t.Fatalf("unexpected statistics: %+v", record)
	}
	if math.Abs(record.Std-math.Sqrt(1.25)) > 1e-12 {
		t.Fatalf("unexpected std: got=%v want=%v", record.Std, math.Sqrt(1.25))
	}
	if odd := Summarize(0, 0, []float64{5, 1, 3}); odd.Median != 3 {
		t.Fatalf("unexpected odd median: %v", odd.Median)
	}
	if empty := Summarize(1, 0, nil); empty.Max != 0 || empty.Generation != 1 {
		t.Fatalf("unexpected empty summary: %+v", empty)
	}
}
