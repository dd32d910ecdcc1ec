// Copyright 2016 by Thorsten von Eicken, see LICENSE file
// Modified 2022 by Dan Crank, danno@danno.org

package cc2500

import (
	"time"

	"periph.io/x/conn/v3/gpio"
)

// tick is one period of a 32768Hz watch crystal. The chip delays below are
// counted in ticks.
const tick = time.Second / 32768

const (
	csSettleDelay  = 5 * tick  // CSn low to SO ready when waking from SLEEP
	rxSettleDelay  = 3 * tick  // IDLE to RX, > 88.4us
	calDelay       = 24 * tick // SCAL, > 721us
	resetPulseHold = 45 * time.Microsecond

	defaultReadyTimeout = 10 * time.Millisecond
	defaultTxTimeout    = 50 * time.Millisecond
	pollInterval        = 100 * time.Millisecond
)

// spin busy-waits for d. time.Sleep is far too coarse for the sub-millisecond
// delays the chip needs.
func spin(d time.Duration) {
	for start := time.Now(); time.Since(start) < d; {
	}
}

// waitLevel busy-waits until pin reads level, giving up after timeout.
func waitLevel(pin gpio.PinIn, level gpio.Level, timeout time.Duration, op, line string) error {
	start := time.Now()
	for pin.Read() != level {
		if time.Since(start) >= timeout {
			return &TimeoutError{Op: op, Line: line, After: timeout}
		}
	}
	return nil
}
