// Copyright 2016 by Thorsten von Eicken, see LICENSE file
// Modified 2022 by Dan Crank, danno@danno.org

package cc2500

import (
	"sync"
	"testing"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/spi"
)

// fakeChip simulates enough of a CC2500 behind an spi.Conn for the driver:
// registers, PATABLE, both FIFOs and the command strobes.
type fakeChip struct {
	mu       sync.Mutex
	regs     [0x40]byte
	patable  byte
	txFIFO   []byte
	rxFIFO   []byte
	state    ChipState
	strobes  []byte   // every strobe received, in order
	sent     [][]byte // TX FIFO contents at each STX
	gdo2     *gpiotest.Pin
	noTxDone bool  // STX does not pulse GDO2
	fail     error // returned by every Tx
}

func newFakeChip(gdo2 *gpiotest.Pin) *fakeChip {
	c := &fakeChip{gdo2: gdo2}
	c.powerOn()
	return c
}

func (c *fakeChip) powerOn() {
	c.regs = [0x40]byte{}
	c.regs[REG_PARTNUM] = partnumCC2500
	c.regs[REG_VERSION] = versionCC2500
	c.patable = 0xC6
	c.txFIFO, c.rxFIFO = nil, nil
	c.state = ChipIdle
}

func (c *fakeChip) String() string      { return "fakeChip" }
func (c *fakeChip) Duplex() conn.Duplex { return conn.Full }

func (c *fakeChip) TxPackets(p []spi.Packet) error {
	for _, pk := range p {
		if err := c.Tx(pk.W, pk.R); err != nil {
			return err
		}
	}
	return nil
}

func (c *fakeChip) Tx(w, r []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fail != nil {
		return c.fail
	}
	header := w[0]
	addr := header & 0x3F
	read := header&readSingle != 0
	r[0] = byte(c.state) << 4
	if read {
		r[0] |= byte(min(len(c.rxFIFO), 15))
	}
	switch {
	case len(w) == 1 && addr >= SRES && addr <= SNOP:
		c.strobe(addr)
	case addr == REG_PATABLE:
		if read {
			r[1] = c.patable
		} else {
			c.patable = w[1]
		}
	case addr == REG_FIFO:
		if read {
			n := copy(r[1:], c.rxFIFO)
			c.rxFIFO = c.rxFIFO[n:]
		} else {
			c.txFIFO = append(c.txFIFO, w[1:]...)
		}
	default:
		for i := 1; i < len(w); i++ {
			a := int(addr) + i - 1
			if read {
				r[i] = c.regs[a]
			} else if a < configBlockLen {
				c.regs[a] = w[i]
			}
		}
	}
	return nil
}

func (c *fakeChip) strobe(cmd byte) {
	c.strobes = append(c.strobes, cmd)
	switch cmd {
	case SRES:
		c.powerOn()
	case SRX:
		c.state = ChipRX
	case STX:
		c.sent = append(c.sent, append([]byte(nil), c.txFIFO...))
		c.txFIFO = nil
		c.state = ChipIdle // MCSM1 TXOFF_MODE
		if !c.noTxDone {
			select {
			case c.gdo2.EdgesChan <- gpio.Low:
			default:
			}
		}
	case SFTX:
		c.txFIFO = nil
	case SFRX:
		c.rxFIFO = nil
	case SIDLE, SCAL, SPWD:
		c.state = ChipIdle
	}
}

// load places frame in the RX FIFO.
func (c *fakeChip) load(frame []byte) {
	c.mu.Lock()
	c.rxFIFO = append([]byte(nil), frame...)
	c.mu.Unlock()
}

func (c *fakeChip) strobeLog() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.strobes...)
}

func (c *fakeChip) lastSent() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sent) == 0 {
		return nil
	}
	return c.sent[len(c.sent)-1]
}

// testRig is a Radio wired to a fakeChip and gpiotest pins.
type testRig struct {
	radio  *Radio
	chip   *fakeChip
	cs     *gpiotest.Pin
	so     *gpiotest.Pin
	gdo0   *gpiotest.Pin
	gdo2   *gpiotest.Pin
	delays []time.Duration
}

func newRig(t *testing.T, opts RadioOpts) *testRig {
	t.Helper()
	rig := &testRig{
		cs:   &gpiotest.Pin{N: "CS"},
		so:   &gpiotest.Pin{N: "SO"},
		gdo0: &gpiotest.Pin{N: "GDO0", EdgesChan: make(chan gpio.Level, 4)},
		gdo2: &gpiotest.Pin{N: "GDO2", EdgesChan: make(chan gpio.Level, 4)},
	}
	rig.chip = newFakeChip(rig.gdo2)
	if opts.Logger == nil {
		opts.Logger = t.Logf
	}
	r, err := NewConn(rig.chip, Pins{CS: rig.cs, SO: rig.so, GDO0: rig.gdo0, GDO2: rig.gdo2}, opts)
	if err != nil {
		t.Fatalf("NewConn: %v", err)
	}
	var mu sync.Mutex
	r.bus.delay = func(d time.Duration) {
		mu.Lock()
		rig.delays = append(rig.delays, d)
		mu.Unlock()
	}
	rig.radio = r
	t.Cleanup(func() { r.Close() })
	return rig
}

// newInitRig is newRig followed by a successful Init.
func newInitRig(t *testing.T, opts RadioOpts) *testRig {
	t.Helper()
	rig := newRig(t, opts)
	if err := rig.radio.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	rig.delays = nil
	return rig
}

// receive feeds frame to the radio as if it had come over the air and waits
// for the notification.
func (rig *testRig) receive(t *testing.T, frame []byte) {
	t.Helper()
	rig.chip.load(frame)
	rig.gdo0.EdgesChan <- gpio.Low
	select {
	case <-rig.radio.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for receive notification")
	}
}
