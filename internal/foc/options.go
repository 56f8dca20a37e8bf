package foc

// Option configures a component at construction.
type Option func(*options)

type options struct {
	clock Clock
}

// WithClock selects the time source used by the self-timed entry points.
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{clock: MonotonicClock()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
