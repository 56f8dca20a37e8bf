package tune

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/focsim/internal/config"
	"github.com/san-kum/focsim/internal/rig"
)

func TestEnsembleRunsEachLoad(t *testing.T) {
	base := shortStep()
	results, err := NewEnsemble(base, []float64{0, 0.02}).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for i, r := range results {
		if r.StepsTaken != base.Steps() {
			t.Errorf("run %d: expected %d steps, got %d", i, base.Steps(), r.StepsTaken)
		}
	}
	if results[1].Metrics["control_effort"] <= results[0].Metrics["control_effort"] {
		t.Errorf("loaded run should need more voltage: %v vs %v",
			results[1].Metrics["control_effort"], results[0].Metrics["control_effort"])
	}
	if base.Motor.Load != 0 {
		t.Errorf("ensemble modified the base config load: %v", base.Motor.Load)
	}
}

func TestEnsembleReportsFailure(t *testing.T) {
	base := shortStep()
	base.PID = config.PIDConfig{P: -1}

	results, err := NewEnsemble(base, []float64{0, 0.01}).Run(context.Background())
	if !errors.Is(err, rig.ErrUnstable) {
		t.Fatalf("expected ErrUnstable, got %v", err)
	}
	if len(results) != 2 || results[0] == nil {
		t.Fatalf("expected partial results, got %v", results)
	}
}

func TestGridSearchScoresWorstLoad(t *testing.T) {
	g, err := NewGridSearch([]string{"P"}, [][]float64{{0.1}})
	if err != nil {
		t.Fatal(err)
	}
	loads := []float64{0, 0.02}
	g.SetLoads(loads)

	base := shortStep()
	out, err := g.Search(context.Background(), base, "control_effort")
	if err != nil {
		t.Fatal(err)
	}

	results, err := NewEnsemble(base, loads).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	worst := math.Max(results[0].Metrics["control_effort"], results[1].Metrics["control_effort"])
	if out.Score != worst {
		t.Errorf("expected worst-case score %v, got %v", worst, out.Score)
	}
}
