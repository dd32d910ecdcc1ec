// Copyright 2016 by Thorsten von Eicken, see LICENSE file
// Modified 2022 by Dan Crank, danno@danno.org

package cc2500

import (
	"context"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// RxPacket is a received frame.
type RxPacket struct {
	Header
	Payload []byte    // PayloadLen bytes, header stripped
	At      time.Time // time of the GDO0 edge that completed the frame
}

// mailbox is the single-slot receive buffer shared between the receive
// handler and the foreground. buf and fresh are only touched under mu.
type mailbox struct {
	mu     sync.Mutex
	framer Framer
	buf    []byte
	fresh  bool
	at     time.Time
	notify chan struct{}
}

func newMailbox(f Framer) *mailbox {
	return &mailbox{
		framer: f,
		buf:    make([]byte, f.PacketLen()),
		notify: make(chan struct{}, 1),
	}
}

// put overwrites the slot with frame and raises the new-data flag.
func (m *mailbox) put(frame []byte, at time.Time) {
	m.mu.Lock()
	copy(m.buf, frame)
	m.fresh = true
	m.at = at
	m.mu.Unlock()
}

// signal wakes a waiting Listen. At most one wakeup is pending.
func (m *mailbox) signal() {
	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// take copies the payload into dest and clears the flag. It returns false if
// nothing arrived since the last take.
func (m *mailbox) take(dest []byte) (Header, int, time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.fresh {
		return Header{}, 0, time.Time{}, false
	}
	hdr, payload, _ := m.framer.Parse(m.buf)
	n := copy(dest, payload)
	m.fresh = false
	return hdr, n, m.at, true
}

func (m *mailbox) clear() {
	m.mu.Lock()
	m.fresh = false
	m.mu.Unlock()
}

// rxHandler stands in for the GDO0 interrupt. It only sees the bus, the
// mailbox and the driver state (read only), and never calls back into the
// state machine.
type rxHandler struct {
	bus     *bus
	box     *mailbox
	pin     gpio.PinIn
	state   *stateCell
	log     LogPrintf
	scratch []byte
	stop    chan struct{}
	done    chan struct{}
}

func (h *rxHandler) arm() error    { return h.pin.In(gpio.PullDown, gpio.FallingEdge) }
func (h *rxHandler) disarm() error { return h.pin.In(gpio.PullDown, gpio.NoEdge) }

func (h *rxHandler) run() {
	defer close(h.done)
	for {
		select {
		case <-h.stop:
			return
		default:
		}
		if h.pin.WaitForEdge(pollInterval) {
			h.service(time.Now())
		}
	}
}

// service handles one falling edge on GDO0.
func (h *rxHandler) service(at time.Time) {
	if err := h.disarm(); err != nil {
		h.log("rx: disarm GDO0: %v", err)
	}
	delivered := false
	// GDO0 also signals the end of our own transmissions; only a listening
	// radio has a frame in its RX FIFO.
	if h.state.load() == StateReceivePolling {
		st, err := h.bus.readInto(REG_FIFO|readBurst, h.scratch)
		switch {
		case err != nil:
			h.log("rx: drain FIFO: %v", err)
		case st.FIFOBytes() < min(len(h.scratch), 15):
			// Aborted reception or a stray edge: the FIFO held no full frame.
			h.log("rx: short FIFO (%v), frame dropped", st)
		default:
			h.box.put(h.scratch, at)
			delivered = true
		}
	}
	// Re-arming also discards edges that came in while we were busy.
	if err := h.arm(); err != nil {
		h.log("rx: re-arm GDO0: %v", err)
	}
	if delivered {
		h.box.signal()
	}
}

// Receive copies the most recent frame's payload into dest and returns its
// header and the number of bytes copied. It returns false when no frame has
// arrived since the previous call. Identifiers are not checked.
func (r *Radio) Receive(dest []byte) (Header, int, bool) {
	hdr, n, _, ok := r.box.take(dest)
	return hdr, n, ok
}

// ReceivePacket is like Receive but allocates the payload and reports when
// the frame arrived.
func (r *Radio) ReceivePacket() (*RxPacket, bool) {
	payload := make([]byte, r.framer.PayloadLen)
	hdr, n, at, ok := r.box.take(payload)
	if !ok {
		return nil, false
	}
	return &RxPacket{Header: hdr, Payload: payload[:n], At: at}, true
}

// Ready returns a channel that receives a value after a frame lands in the
// receive buffer. Use either Ready or Listen, not both.
func (r *Radio) Ready() <-chan struct{} {
	return r.box.notify
}

// Listen runs the receive callback registered with SetupReceive on the
// calling goroutine, once per notification, until ctx is done or the radio is
// closed. The callback may call any Radio method.
func (r *Radio) Listen(ctx context.Context) error {
	r.Lock()
	configured := r.rx != nil
	r.Unlock()
	if !configured {
		return ErrReceiveNotConfigured
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.closed:
			return ErrClosed
		case <-r.box.notify:
			r.Lock()
			cb := r.callback
			r.Unlock()
			if cb != nil {
				cb()
			}
		}
	}
}
