//go:build linux

package foc

import "golang.org/x/sys/unix"

type monotonicClock struct{}

func (monotonicClock) Micros() uint64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return sinceEpochMicros()
	}
	return uint64(ts.Nano() / 1000)
}
