// Copyright 2016 by Thorsten von Eicken, see LICENSE file
// Modified 2022 by Dan Crank, danno@danno.org

package cc2500

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/spi"
)

// bus issues addressed transactions to the chip. Its mutex is held for the
// whole of each transaction, from CSn low to CSn high, and is shared with the
// receive handler's FIFO drain.
type bus struct {
	mu           sync.Mutex
	conn         spi.Conn
	cs           gpio.PinOut // nil when the SPI controller drives CSn itself
	so           gpio.PinIn  // nil when SO cannot be sensed as a GPIO
	state        *stateCell
	readyTimeout time.Duration
	delay        func(time.Duration)
}

// strobe sends a single command byte and returns the status byte clocked out
// with it.
func (b *bus) strobe(cmd byte) (Status, error) {
	var w, r [1]byte
	w[0] = cmd
	if err := b.tx("strobe", w[:], r[:]); err != nil {
		return 0, errors.Wrapf(err, "strobe %#02x", cmd)
	}
	return Status(r[0]), nil
}

// readBlock reads n bytes starting at header, which carries the read (and
// usually burst) flags.
func (b *bus) readBlock(header byte, n int) (Status, []byte, error) {
	data := make([]byte, n)
	st, err := b.readInto(header, data)
	return st, data, err
}

// readInto reads len(dst) bytes starting at header into dst.
func (b *bus) readInto(header byte, dst []byte) (Status, error) {
	w := make([]byte, len(dst)+1)
	r := make([]byte, len(dst)+1)
	w[0] = header
	if err := b.tx("read", w, r); err != nil {
		return 0, errors.Wrapf(err, "read %#02x", header)
	}
	copy(dst, r[1:])
	return Status(r[0]), nil
}

// writeBlock writes data starting at header, which carries the write (and
// usually burst) flags.
func (b *bus) writeBlock(header byte, data []byte) (Status, error) {
	w := make([]byte, len(data)+1)
	r := make([]byte, len(data)+1)
	w[0] = header
	copy(w[1:], data)
	if err := b.tx("write", w, r); err != nil {
		return 0, errors.Wrapf(err, "write %#02x", header)
	}
	return Status(r[0]), nil
}

// tx runs one transaction: select, settle, transfer header and data, deselect.
func (b *bus) tx(op string, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var settle time.Duration
	if b.state.load() == StateSleep {
		settle = csSettleDelay
	}
	if err := b.selectChip(op, settle); err != nil {
		b.deselect()
		return err
	}
	err := b.conn.Tx(w, r)
	b.deselect()
	return err
}

// selectChip pulls CSn low and waits for the chip to answer on SO, then waits
// out the extra settle time a sleeping chip needs.
func (b *bus) selectChip(op string, settle time.Duration) error {
	if b.cs == nil {
		if settle > 0 {
			// The controller's own CSn assertion is what wakes the chip, so
			// burn one NOP transaction on it before the real one.
			var w, r [1]byte
			w[0] = SNOP
			if err := b.conn.Tx(w[:], r[:]); err != nil {
				return err
			}
			b.delay(settle)
		}
		return nil
	}
	if err := b.cs.Out(gpio.Low); err != nil {
		return err
	}
	if b.so != nil {
		if err := waitLevel(b.so, gpio.Low, b.readyTimeout, op, "SO"); err != nil {
			return err
		}
	}
	if settle > 0 {
		b.delay(settle)
	}
	return nil
}

func (b *bus) deselect() {
	if b.cs != nil {
		_ = b.cs.Out(gpio.High)
	}
}

// reset runs the manual power-on reset sequence and leaves the chip in IDLE.
func (b *bus) reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	defer b.deselect()

	if b.cs != nil {
		// Strobe CSn low/high, then hold it high for more than 40us.
		if err := b.cs.Out(gpio.Low); err != nil {
			return err
		}
		b.delay(resetPulseHold)
		if err := b.cs.Out(gpio.High); err != nil {
			return err
		}
		b.delay(resetPulseHold)
		if err := b.cs.Out(gpio.Low); err != nil {
			return err
		}
	}
	if b.so != nil {
		if err := waitLevel(b.so, gpio.Low, b.readyTimeout, "reset", "SO"); err != nil {
			return err
		}
	}
	var w, r [1]byte
	w[0] = SRES
	if err := b.conn.Tx(w[:], r[:]); err != nil {
		return errors.Wrap(err, "strobe SRES")
	}
	// SO goes high while the chip resets and low again when it is in IDLE.
	if b.so != nil {
		if err := waitLevel(b.so, gpio.Low, b.readyTimeout, "reset", "SO"); err != nil {
			return err
		}
	}
	return nil
}
