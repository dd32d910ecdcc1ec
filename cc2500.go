// Copyright 2016 by Thorsten von Eicken, see LICENSE file
// Modified 2022 by Dan Crank, danno@danno.org

// The CC2500 package drives a TI CC2500 2.4GHz transceiver connected to an SPI
// bus with GDO0 and GDO2 wired to GPIO inputs.
//
// The driver keeps its own idea of the chip's state and checks every operation
// against a fixed transition table. Packets are fixed length and carry a two
// byte network/device header. Reception is interrupt driven: a falling edge on
// GDO0 drains the RX FIFO into a single-slot buffer, and Listen or Ready hand
// the notification to the application.
package cc2500

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// Radio represents a TI CC2500 transceiver.
type Radio struct {
	// configuration
	bus           *bus
	gdo0          gpio.PinIn // falls at the end of a received packet
	gdo2          gpio.PinIn // falls at the end of a transmitted packet
	framer        Framer
	config        ConfigBlock
	txTimeout     time.Duration
	resetAttempts int
	// state
	sync.Mutex                // serializes the state machine operations
	state       stateCell     // current State, see transitions
	initialized bool          // Init ran to completion
	txPower     byte          // last PATABLE value written
	part        byte          // PARTNUM read during Init
	version     byte          // VERSION read during Init
	box         *mailbox      // receive buffer
	rx          *rxHandler    // nil until SetupReceive
	callback    func()        // run by Listen after each frame
	closed      chan struct{} // closed by Close
	closeOnce   sync.Once
	log         LogPrintf // function to use for logging
}

// RadioOpts contains options used when initializing a Radio.
type RadioOpts struct {
	NetworkID     byte             // first header byte of every frame
	DeviceID      byte             // second header byte of every frame
	PayloadLen    int              // fixed payload length, header excluded
	FEC           bool             // forward error correction with interleaving
	CRC           bool             // CRC generation and check by the chip
	TxPower       byte             // PATABLE value written during Init
	Frequency     physic.Frequency // carrier, 0 keeps 2433MHz
	Registers     ConfigBlock      // overrides the block built from the fields above
	TxTimeout     time.Duration    // how long Transmit waits for GDO2
	ReadyTimeout  time.Duration    // how long a transaction waits for SO low
	ResetAttempts int              // Init retries the reset sequence on timeouts
	Logger        LogPrintf        // function to use for logging
}

// DefaultOpts returns the options of the sensor network the driver was
// written for.
func DefaultOpts() RadioOpts {
	return RadioOpts{
		NetworkID:     0x88,
		DeviceID:      0x77,
		PayloadLen:    6,
		FEC:           true,
		CRC:           false,
		TxPower:       0xFF,
		TxTimeout:     defaultTxTimeout,
		ReadyTimeout:  defaultReadyTimeout,
		ResetAttempts: 3,
	}
}

// Pins are the GPIO lines wired to the chip besides the SPI bus itself.
type Pins struct {
	CS   gpio.PinOut // CSn driven by the driver, nil if the SPI controller drives it
	SO   gpio.PinIn  // the MISO line read back as a GPIO, nil to skip ready waits
	GDO0 gpio.PinIn
	GDO2 gpio.PinIn
}

// LogPrintf is a function used by the driver to print logging info.
type LogPrintf func(format string, v ...interface{})

// New opens a connection on port and returns an uninitialized Radio. Call
// Init before anything else.
//
// The SPI bus runs at 5MHz in mode 0. When pins.CS is set the controller's own
// chip select is disabled and the driver toggles CSn itself.
func New(port spi.Port, pins Pins, opts RadioOpts) (*Radio, error) {
	mode := spi.Mode0
	if pins.CS != nil {
		mode |= spi.NoCS
	}
	conn, err := port.Connect(5*physic.MegaHertz, mode, 8)
	if err != nil {
		return nil, errors.Wrap(err, "cc2500: cannot set device params")
	}
	return NewConn(conn, pins, opts)
}

// NewConn is like New for an already configured connection.
func NewConn(conn spi.Conn, pins Pins, opts RadioOpts) (*Radio, error) {
	if pins.GDO0 == nil || pins.GDO2 == nil {
		return nil, errors.New("cc2500: GDO0 and GDO2 pins are required")
	}
	if opts.PayloadLen < 1 || HeaderLen+opts.PayloadLen > fifoSize {
		return nil, errors.Errorf("cc2500: invalid payload length %d, must be 1..%d",
			opts.PayloadLen, fifoSize-HeaderLen)
	}
	if opts.TxTimeout <= 0 {
		opts.TxTimeout = defaultTxTimeout
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = defaultReadyTimeout
	}
	if opts.ResetAttempts < 1 {
		opts.ResetAttempts = 1
	}
	config := opts.Registers
	if config == nil {
		config = Settings(opts)
	}
	if _, _, err := config.burst(); err != nil {
		return nil, err
	}

	framer := Framer{NetworkID: opts.NetworkID, DeviceID: opts.DeviceID, PayloadLen: opts.PayloadLen}
	r := &Radio{
		gdo0:          pins.GDO0,
		gdo2:          pins.GDO2,
		framer:        framer,
		config:        config,
		txTimeout:     opts.TxTimeout,
		resetAttempts: opts.ResetAttempts,
		txPower:       opts.TxPower,
		box:           newMailbox(framer),
		closed:        make(chan struct{}),
		log:           func(format string, v ...interface{}) {},
	}
	if opts.Logger != nil {
		r.log = func(format string, v ...interface{}) {
			opts.Logger("cc2500: "+format, v...)
		}
	}
	r.bus = &bus{
		conn:         conn,
		cs:           pins.CS,
		so:           pins.SO,
		state:        &r.state,
		readyTimeout: opts.ReadyTimeout,
		delay:        spin,
	}
	if pins.CS != nil {
		if err := pins.CS.Out(gpio.High); err != nil {
			return nil, errors.Wrap(err, "cc2500: CSn")
		}
	}
	return r, nil
}

// Init resets the chip, writes the configuration block in one burst and
// leaves the radio in Idle. It may only be called once.
func (r *Radio) Init() error {
	r.Lock()
	defer r.Unlock()

	if r.isClosed() {
		return ErrClosed
	}
	if r.initialized {
		return ErrAlreadyInitialized
	}
	// The chip comes out of power-on reset in IDLE.
	r.state.store(StateIdle)

	var err error
	for i := 1; i <= r.resetAttempts; i++ {
		if err = r.bus.reset(); err == nil {
			break
		}
		if t, ok := errors.Cause(err).(Temporary); !ok || !t.Temporary() {
			break
		}
		r.log("reset attempt %d: %v", i, err)
	}
	if err != nil {
		return errors.Wrap(err, "cc2500: reset")
	}

	start, values, _ := r.config.burst()
	if _, err := r.bus.writeBlock(start|writeBurst, values); err != nil {
		return errors.Wrap(err, "cc2500: write config")
	}
	if _, err := r.bus.writeBlock(REG_PATABLE|writeSingle, []byte{r.txPower}); err != nil {
		return errors.Wrap(err, "cc2500: write PATABLE")
	}

	// Debug: read the config back and make sure it stuck.
	_, got, err := r.bus.readBlock(start|readBurst, len(values))
	if err != nil {
		return errors.Wrap(err, "cc2500: read config")
	}
	for i := range values {
		if got[i] != values[i] {
			r.log("error writing config reg %#02x: got %#02x expected %#02x",
				start+byte(i), got[i], values[i])
		}
	}

	if r.part, err = r.readStatusReg(REG_PARTNUM); err != nil {
		return err
	}
	if r.version, err = r.readStatusReg(REG_VERSION); err != nil {
		return err
	}
	if r.part != partnumCC2500 || r.version != versionCC2500 {
		r.log("unexpected chip: partnum %#02x version %#02x", r.part, r.version)
	}
	r.log("CC2500 partnum %#02x version %#02x, %v, %d byte frames",
		r.part, r.version, r.config.Frequency(), r.framer.PacketLen())

	r.box.clear()
	r.initialized = true
	return nil
}

// Sleep powers the chip down. Register contents survive, PATABLE does too on
// the CC2500. The next access wakes it.
func (r *Radio) Sleep() error {
	r.Lock()
	defer r.Unlock()

	to, err := r.begin(opSleep)
	if err != nil {
		return err
	}
	if _, err := r.bus.strobe(SPWD); err != nil {
		return errors.Wrap(err, "cc2500: sleep")
	}
	r.enter(opSleep, to)
	return nil
}

// Idle puts the chip in IDLE from any state. It is also the way out of a
// failed Calibrate or Transmit.
func (r *Radio) Idle() error {
	r.Lock()
	defer r.Unlock()

	to, err := r.begin(opIdle)
	if err != nil {
		return err
	}
	if _, err := r.bus.strobe(SIDLE); err != nil {
		return errors.Wrap(err, "cc2500: idle")
	}
	r.enter(opIdle, to)
	return nil
}

// Calibrate runs a manual frequency synthesizer calibration and waits for it
// to finish. Not legal while receive polling; call Idle first.
func (r *Radio) Calibrate() error {
	r.Lock()
	defer r.Unlock()

	to, err := r.begin(opCalibrate)
	if err != nil {
		return err
	}
	if _, err := r.bus.strobe(SCAL); err != nil {
		return errors.Wrap(err, "cc2500: calibrate")
	}
	r.enter(opCalibrate, StateCalibrating)
	r.bus.delay(calDelay)
	r.enter(opCalibrate, to)
	return nil
}

// SetTxPower writes level to the first PATABLE entry. From Sleep the chip is
// left in Idle; otherwise the state does not change.
func (r *Radio) SetTxPower(level byte) error {
	r.Lock()
	defer r.Unlock()

	to, err := r.begin(opSetTxPower)
	if err != nil {
		return err
	}
	if _, err := r.bus.writeBlock(REG_PATABLE|writeSingle, []byte{level}); err != nil {
		return errors.Wrap(err, "cc2500: set tx power")
	}
	r.txPower = level
	r.log("SetTxPower %#02x", level)
	r.enter(opSetTxPower, to)
	return nil
}

// Transmit frames payload, which must be exactly PayloadLen bytes, loads it
// into the TX FIFO and sends it. It blocks until GDO2 falls at the end of the
// packet. On timeout the radio stays in Transmitting until Idle is called.
func (r *Radio) Transmit(payload []byte) error {
	r.Lock()
	defer r.Unlock()

	to, err := r.begin(opTransmit)
	if err != nil {
		return err
	}
	frame, err := r.framer.Frame(payload)
	if err != nil {
		return err
	}

	if r.state.load() == StateReceivePolling {
		// SFTX is only accepted in IDLE.
		if _, err := r.bus.strobe(SIDLE); err != nil {
			return errors.Wrap(err, "cc2500: transmit")
		}
		r.enter(opTransmit, StateIdle)
	}
	if _, err := r.bus.strobe(SFTX); err != nil {
		return errors.Wrap(err, "cc2500: flush TX FIFO")
	}
	r.woke()
	if _, err := r.bus.writeBlock(REG_FIFO|writeBurst, frame); err != nil {
		return errors.Wrap(err, "cc2500: load TX FIFO")
	}

	if err := r.gdo2.In(gpio.PullDown, gpio.FallingEdge); err != nil {
		return errors.Wrap(err, "cc2500: arm GDO2")
	}
	defer func() {
		if err := r.gdo2.In(gpio.PullDown, gpio.NoEdge); err != nil {
			r.log("transmit: disarm GDO2: %v", err)
		}
	}()
	if _, err := r.bus.strobe(STX); err != nil {
		return errors.Wrap(err, "cc2500: transmit")
	}
	r.enter(opTransmit, StateTransmitting)
	if !r.gdo2.WaitForEdge(r.txTimeout) {
		return &TimeoutError{Op: "transmit", Line: "GDO2", After: r.txTimeout}
	}
	r.enter(opTransmit, to)
	return nil
}

// SetupReceive registers cb, starts the GDO0 handler if needed and enters RX.
// cb runs from Listen, never from the handler itself. Calling SetupReceive
// again replaces cb.
func (r *Radio) SetupReceive(cb func()) error {
	r.Lock()
	defer r.Unlock()

	to, err := r.begin(opSetupReceive)
	if err != nil {
		return err
	}
	r.callback = cb
	if r.rx == nil {
		h := &rxHandler{
			bus:     r.bus,
			box:     r.box,
			pin:     r.gdo0,
			state:   &r.state,
			log:     r.log,
			scratch: make([]byte, r.framer.PacketLen()),
			stop:    make(chan struct{}),
			done:    make(chan struct{}),
		}
		if err := h.arm(); err != nil {
			return errors.Wrap(err, "cc2500: arm GDO0")
		}
		r.rx = h
		go h.run()
	}
	if _, err := r.bus.strobe(SRX); err != nil {
		return errors.Wrap(err, "cc2500: receive")
	}
	r.woke()
	r.bus.delay(rxSettleDelay)
	r.enter(opSetupReceive, to)
	return nil
}

// ReceivePollRestart re-enters RX after a prior SetupReceive, typically after
// a calibration.
func (r *Radio) ReceivePollRestart() error {
	r.Lock()
	defer r.Unlock()

	to, err := r.begin(opReceivePollRestart)
	if err != nil {
		return err
	}
	if r.rx == nil {
		return ErrReceiveNotConfigured
	}
	if _, err := r.bus.strobe(SRX); err != nil {
		return errors.Wrap(err, "cc2500: receive")
	}
	r.enter(opReceivePollRestart, to)
	return nil
}

// Status returns the chip status byte.
func (r *Radio) Status() (Status, error) {
	r.Lock()
	defer r.Unlock()

	if _, err := r.begin(opStatus); err != nil {
		return 0, err
	}
	st, err := r.bus.strobe(SNOP)
	if err != nil {
		return 0, errors.Wrap(err, "cc2500: status")
	}
	return st, nil
}

// State returns the driver's current belief about the chip's state.
func (r *Radio) State() State { return r.state.load() }

// ChipInfo returns the part number and version read during Init.
func (r *Radio) ChipInfo() (part, version byte) {
	r.Lock()
	defer r.Unlock()
	return r.part, r.version
}

// TxPower returns the last PATABLE value written.
func (r *Radio) TxPower() byte {
	r.Lock()
	defer r.Unlock()
	return r.txPower
}

// Framer returns the framer matching the radio's packet format.
func (r *Radio) Framer() Framer { return r.framer }

// Close stops the receive handler and disables the GDO0 edge. The chip is
// not touched. Close is safe to call more than once.
func (r *Radio) Close() error {
	var err error
	r.closeOnce.Do(func() {
		close(r.closed)
		r.Lock()
		h := r.rx
		r.Unlock()
		if h == nil {
			return
		}
		close(h.stop)
		<-h.done
		err = h.disarm()
	})
	return err
}

// DumpRegisters reads the configuration registers and logs them, 16 per line.
func (r *Radio) DumpRegisters() ([]byte, error) {
	r.Lock()
	defer r.Unlock()

	if !r.initialized {
		return nil, ErrNotInitialized
	}
	_, regs, err := r.bus.readBlock(REG_IOCFG2|readBurst, configBlockLen)
	if err != nil {
		return nil, errors.Wrap(err, "cc2500: dump registers")
	}
	r.log("     0  1  2  3  4  5  6  7  8  9  A  B  C  D  E  F")
	for i := 0; i < len(regs); i += 16 {
		line := fmt.Sprintf("%02x:", i)
		for j := 0; j < 16 && i+j < len(regs); j++ {
			line += fmt.Sprintf(" %02x", regs[i+j])
		}
		r.log(line)
	}
	return regs, nil
}

// begin checks that o may run now and returns the state it leads to.
func (r *Radio) begin(o op) (State, error) {
	if r.isClosed() {
		return 0, ErrClosed
	}
	if !r.initialized {
		return 0, ErrNotInitialized
	}
	return next(r.state.load(), o)
}

// enter records the new state.
func (r *Radio) enter(o op, s State) {
	if from := r.state.load(); from != s {
		r.log("%v: %v -> %v", o, from, s)
	}
	r.state.store(s)
}

// woke notes that a transaction brought the chip out of SLEEP, so later
// transactions in the same operation skip the wake-up delay.
func (r *Radio) woke() {
	if r.state.load() == StateSleep {
		r.state.store(StateIdle)
	}
}

func (r *Radio) isClosed() bool {
	select {
	case <-r.closed:
		return true
	default:
		return false
	}
}

func (r *Radio) readStatusReg(addr byte) (byte, error) {
	_, v, err := r.bus.readBlock(addr|readBurst, 1)
	if err != nil {
		return 0, errors.Wrapf(err, "cc2500: read status reg %#02x", addr)
	}
	return v[0], nil
}
