//go:build linux

package hw

import (
	"fmt"
	"log"

	"github.com/warthog618/go-gpiocdev"
)

// Encoder decodes a quadrature encoder wired to two GPIO lines of a Linux
// GPIO character device. Edges arrive on gpiocdev's event goroutine.
type Encoder struct {
	*Decoder
	cfg   Config
	lines *gpiocdev.Lines
}

func Open(cfg Config) (*Encoder, error) {
	if cfg.Chip == "" {
		return nil, fmt.Errorf("hw: gpio chip required")
	}
	if cfg.LineA == cfg.LineB {
		return nil, fmt.Errorf("hw: encoder lines must differ, got %d twice", cfg.LineA)
	}

	e := &Encoder{Decoder: newUnseededDecoder(), cfg: cfg}

	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithBothEdges,
		gpiocdev.WithConsumer("focsim-encoder"),
		gpiocdev.WithEventHandler(e.handle),
	}
	if cfg.PullUp {
		opts = append(opts, gpiocdev.WithPullUp)
	}
	if cfg.Debounce > 0 {
		opts = append(opts, gpiocdev.WithDebounce(cfg.Debounce))
	}

	lines, err := gpiocdev.RequestLines(cfg.Chip, []int{cfg.LineA, cfg.LineB}, opts...)
	if err != nil {
		return nil, fmt.Errorf("hw: request %s lines %d,%d: %w", cfg.Chip, cfg.LineA, cfg.LineB, err)
	}
	e.lines = lines

	values := make([]int, 2)
	if err := lines.Values(values); err != nil {
		_ = lines.Close()
		return nil, fmt.Errorf("hw: read initial levels: %w", err)
	}
	e.Seed(values[0], values[1])

	log.Printf("hw: quadrature encoder on %s lines A=%d B=%d", cfg.Chip, cfg.LineA, cfg.LineB)
	return e, nil
}

func (e *Encoder) handle(evt gpiocdev.LineEvent) {
	line := 0
	if evt.Offset == e.cfg.LineB {
		line = 1
	}
	level := 0
	if evt.Type == gpiocdev.LineEventRisingEdge {
		level = 1
	}
	e.Edge(line, level)
}

func (e *Encoder) Close() error {
	if e == nil || e.lines == nil {
		return nil
	}
	err := e.lines.Close()
	e.lines = nil
	if n := e.Errors(); n > 0 {
		log.Printf("hw: encoder closed after %d missed edges", n)
	}
	return err
}
