package tune

import (
	"context"
	"sync"

	"github.com/san-kum/focsim/internal/config"
	"github.com/san-kum/focsim/internal/rig"
)

// Ensemble runs one configuration against several constant load torques,
// each on its own goroutine.
type Ensemble struct {
	base  *config.Config
	loads []float64
}

func NewEnsemble(base *config.Config, loads []float64) *Ensemble {
	return &Ensemble{base: base, loads: loads}
}

// Run returns one result per load, in load order. The first error wins;
// partial results are still returned for the runs that got that far.
func (e *Ensemble) Run(ctx context.Context) ([]*rig.Result, error) {
	results := make([]*rig.Result, len(e.loads))
	errs := make([]error, len(e.loads))

	var wg sync.WaitGroup
	for i, load := range e.loads {
		wg.Add(1)
		go func(idx int, load float64) {
			defer wg.Done()

			cfg := e.base.Clone()
			cfg.Motor.Load = load

			r, err := rig.New(cfg)
			if err != nil {
				errs[idx] = err
				return
			}
			results[idx], errs[idx] = r.Run(ctx)
		}(i, load)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}
	return results, nil
}
