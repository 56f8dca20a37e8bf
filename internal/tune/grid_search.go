// Package tune searches PID and filter settings by running the rig.
package tune

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/san-kum/focsim/internal/config"
)

// Trial is one evaluated parameter combination.
type Trial struct {
	Params map[string]float64
	Score  float64
	Err    error
}

type Outcome struct {
	Best   map[string]float64
	Score  float64
	Metric string
	Trials []Trial
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	loads      []float64
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("tune: %d params but %d ranges", len(params), len(ranges))
	}
	for i, name := range params {
		if err := Apply(config.DefaultConfig(), name, 0); err != nil {
			return nil, err
		}
		if len(ranges[i]) == 0 {
			return nil, fmt.Errorf("tune: empty range for %s", name)
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// SetLoads makes every trial run once per load torque and score the worst
// of them. An empty list runs the base configuration's own load.
func (g *GridSearch) SetLoads(loads []float64) { g.loads = loads }

// Size is the number of combinations Search will run.
func (g *GridSearch) Size() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Search runs the rig once per combination and keeps the one with the
// lowest value of metric. Runs that fail, unstable loops included, are
// recorded with an infinite score.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, metric string) (*Outcome, error) {
	out := &Outcome{
		Score:  math.Inf(1),
		Metric: metric,
		Trials: make([]Trial, 0, g.Size()),
	}
	if err := g.searchRecursive(ctx, 0, make(map[string]float64), base, out); err != nil {
		return out, err
	}
	if out.Best == nil {
		return out, fmt.Errorf("tune: no stable combination among %d trials", len(out.Trials))
	}
	return out, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	base *config.Config,
	out *Outcome,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth == len(g.paramNames) {
		trial := g.evaluate(ctx, current, base, out.Metric)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		out.Trials = append(out.Trials, trial)
		if trial.Err == nil && trial.Score < out.Score {
			out.Score = trial.Score
			out.Best = trial.Params
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, base, out); err != nil {
			return err
		}
	}
	return nil
}

func (g *GridSearch) evaluate(ctx context.Context, params map[string]float64, base *config.Config, metric string) Trial {
	trial := Trial{Params: params, Score: math.Inf(1)}

	cfg := base.Clone()
	for name, v := range params {
		if err := Apply(cfg, name, v); err != nil {
			trial.Err = err
			return trial
		}
	}

	loads := g.loads
	if len(loads) == 0 {
		loads = []float64{cfg.Motor.Load}
	}
	results, err := NewEnsemble(cfg, loads).Run(ctx)
	if err != nil {
		trial.Err = err
		return trial
	}

	score := math.Inf(-1)
	for _, result := range results {
		v, ok := result.Metrics[metric]
		if !ok {
			trial.Err = fmt.Errorf("tune: unknown metric %q", metric)
			return trial
		}
		score = math.Max(score, v)
	}
	trial.Score = score
	return trial
}

// Apply sets a tunable parameter on cfg by the name the commander uses.
func Apply(cfg *config.Config, name string, v float64) error {
	switch name {
	case "P":
		cfg.PID.P = v
	case "I":
		cfg.PID.I = v
	case "D":
		cfg.PID.D = v
	case "ramp":
		cfg.PID.Ramp = v
	case "limit":
		cfg.PID.Limit = v
	case "Tf":
		cfg.Filter.Tf = v
	default:
		return fmt.Errorf("tune: unknown parameter %q", name)
	}
	return nil
}

// ParseRange parses "min:max:n" into n evenly spaced values, or a comma
// separated list of values.
func ParseRange(s string) ([]float64, error) {
	if strings.Contains(s, ":") {
		parts := strings.Split(s, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("tune: range %q: want min:max:n", s)
		}
		lo, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, fmt.Errorf("tune: range %q: %w", s, err)
		}
		hi, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("tune: range %q: %w", s, err)
		}
		n, err := strconv.Atoi(parts[2])
		if err != nil || n < 1 {
			return nil, fmt.Errorf("tune: range %q: count must be a positive integer", s)
		}
		return Linspace(lo, hi, n), nil
	}

	var values []float64
	for _, f := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("tune: value %q: %w", f, err)
		}
		values = append(values, v)
	}
	return values, nil
}

func Linspace(lo, hi float64, n int) []float64 {
	if n == 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}

// Ranked returns the successful trials, best first.
func (o *Outcome) Ranked() []Trial {
	ranked := make([]Trial, 0, len(o.Trials))
	for _, t := range o.Trials {
		if t.Err == nil {
			ranked = append(ranked, t)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score < ranked[j].Score })
	return ranked
}
