//go:build !linux

package hw

import "fmt"

// Encoder is unavailable off Linux.
type Encoder struct {
	*Decoder
}

func Open(cfg Config) (*Encoder, error) {
	return nil, fmt.Errorf("hw: gpio encoder unsupported on this platform")
}

func (e *Encoder) Close() error { return nil }
