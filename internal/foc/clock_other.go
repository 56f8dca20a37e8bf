//go:build !linux

package foc

type monotonicClock struct{}

func (monotonicClock) Micros() uint64 { return sinceEpochMicros() }
