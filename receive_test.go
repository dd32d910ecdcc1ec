// Copyright 2016 by Thorsten von Eicken, see LICENSE file
// Modified 2022 by Dan Crank, danno@danno.org

package cc2500

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

func TestReceive(t *testing.T) {
	rig := newInitRig(t, DefaultOpts())
	r := rig.radio
	if err := r.SetupReceive(nil); err != nil {
		t.Fatal(err)
	}

	dest := make([]byte, 6)
	if _, _, ok := r.Receive(dest); ok {
		t.Fatal("Receive reported data before any frame arrived")
	}

	rig.receive(t, []byte{0x88, 0x77, 0x00, 0x12, 0x34, 0x02, 0x56, 0x78})
	hdr, n, ok := r.Receive(dest)
	if !ok {
		t.Fatal("no data after notification")
	}
	if !hdr.Matches(0x88, 0x77) || n != 6 {
		t.Errorf("header %+v, n %d", hdr, n)
	}
	if want := []byte{0x00, 0x12, 0x34, 0x02, 0x56, 0x78}; !bytes.Equal(dest, want) {
		t.Errorf("payload: got % x, want % x", dest, want)
	}
	if _, _, ok := r.Receive(dest); ok {
		t.Error("second Receive reported the same frame again")
	}
}

func TestReceiveForeignNetwork(t *testing.T) {
	rig := newInitRig(t, DefaultOpts())
	r := rig.radio
	if err := r.SetupReceive(nil); err != nil {
		t.Fatal(err)
	}

	// Identifiers are reported, not filtered.
	rig.receive(t, []byte{0x99, 0x77, 1, 2, 3, 4, 5, 6})
	pkt, ok := r.ReceivePacket()
	if !ok {
		t.Fatal("no packet")
	}
	if pkt.Matches(0x88, 0x77) || pkt.NetworkID != 0x99 {
		t.Errorf("header: %+v", pkt.Header)
	}
	if pkt.At.IsZero() {
		t.Error("packet has no timestamp")
	}
}

func TestReceiveOverwrites(t *testing.T) {
	rig := newInitRig(t, DefaultOpts())
	r := rig.radio
	if err := r.SetupReceive(nil); err != nil {
		t.Fatal(err)
	}

	rig.receive(t, []byte{0x88, 0x77, 1, 1, 1, 1, 1, 1})
	rig.receive(t, []byte{0x88, 0x77, 2, 2, 2, 2, 2, 2})
	dest := make([]byte, 6)
	if _, _, ok := r.Receive(dest); !ok || dest[0] != 2 {
		t.Errorf("got % x, want the second frame", dest)
	}
}

func TestReceiveShortDest(t *testing.T) {
	rig := newInitRig(t, DefaultOpts())
	r := rig.radio
	if err := r.SetupReceive(nil); err != nil {
		t.Fatal(err)
	}
	rig.receive(t, []byte{0x88, 0x77, 1, 2, 3, 4, 5, 6})
	dest := make([]byte, 3)
	if _, n, ok := r.Receive(dest); !ok || n != 3 || dest[2] != 3 {
		t.Errorf("n %d, dest % x", n, dest)
	}
}

func TestHandlerIgnoresEdgeWhenNotPolling(t *testing.T) {
	chip := newFakeChip(nil)
	pin := &gpiotest.Pin{N: "GDO0", EdgesChan: make(chan gpio.Level, 1)}
	f := Framer{NetworkID: 0x88, DeviceID: 0x77, PayloadLen: 6}
	var state stateCell
	h := &rxHandler{
		bus:     &bus{conn: chip, state: &state, delay: func(time.Duration) {}},
		box:     newMailbox(f),
		pin:     pin,
		state:   &state,
		log:     t.Logf,
		scratch: make([]byte, f.PacketLen()),
	}

	for _, s := range []State{StateIdle, StateTransmitting, StateCalibrating} {
		state.store(s)
		chip.load([]byte{0x88, 0x77, 1, 2, 3, 4, 5, 6})
		h.service(time.Now())
		if _, _, _, ok := h.box.take(make([]byte, 6)); ok {
			t.Errorf("%v: edge delivered a frame", s)
		}
	}

	state.store(StateReceivePolling)
	h.service(time.Now())
	if _, _, _, ok := h.box.take(make([]byte, 6)); !ok {
		t.Error("ReceivePolling: edge delivered nothing")
	}
	select {
	case <-h.box.notify:
	default:
		t.Error("no notification")
	}
}

func TestHandlerDropsShortFIFO(t *testing.T) {
	chip := newFakeChip(nil)
	pin := &gpiotest.Pin{N: "GDO0", EdgesChan: make(chan gpio.Level, 1)}
	f := Framer{NetworkID: 0x88, DeviceID: 0x77, PayloadLen: 6}
	var state stateCell
	state.store(StateReceivePolling)
	h := &rxHandler{
		bus:     &bus{conn: chip, state: &state, delay: func(time.Duration) {}},
		box:     newMailbox(f),
		pin:     pin,
		state:   &state,
		log:     t.Logf,
		scratch: make([]byte, f.PacketLen()),
	}

	// An edge with an empty FIFO, then one with a truncated frame.
	for _, fifo := range [][]byte{nil, {0x88, 0x77, 1, 2}} {
		chip.load(fifo)
		h.service(time.Now())
		if hdr, _, _, ok := h.box.take(make([]byte, 6)); ok {
			t.Errorf("%d byte FIFO delivered a frame: %+v", len(fifo), hdr)
		}
		select {
		case <-h.box.notify:
			t.Errorf("%d byte FIFO raised a notification", len(fifo))
		default:
		}
	}

	chip.load([]byte{0x88, 0x77, 1, 2, 3, 4, 5, 6})
	h.service(time.Now())
	if hdr, n, _, ok := h.box.take(make([]byte, 6)); !ok || !hdr.Matches(0x88, 0x77) || n != 6 {
		t.Errorf("full frame: ok %t header %+v n %d", ok, hdr, n)
	}
}

func TestListen(t *testing.T) {
	rig := newInitRig(t, DefaultOpts())
	r := rig.radio

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := r.Listen(ctx); !errors.Is(err, ErrReceiveNotConfigured) {
		t.Fatalf("Listen before SetupReceive: got %v", err)
	}

	got := make(chan []byte, 1)
	cb := func() {
		// The callback may drive the state machine, the way the receiver
		// loop recalibrates after every frame.
		dest := make([]byte, 6)
		if _, _, ok := r.Receive(dest); ok {
			got <- dest
		}
		if err := r.Idle(); err != nil {
			t.Error(err)
		}
		if err := r.Calibrate(); err != nil {
			t.Error(err)
		}
		if err := r.ReceivePollRestart(); err != nil {
			t.Error(err)
		}
	}
	if err := r.SetupReceive(cb); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- r.Listen(ctx) }()

	rig.chip.load([]byte{0x88, 0x77, 9, 8, 7, 6, 5, 4})
	rig.gdo0.EdgesChan <- gpio.Low
	select {
	case p := <-got:
		if p[0] != 9 {
			t.Errorf("payload % x", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("callback never ran")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Listen: got %v, want context.Canceled", err)
	}
	if s := r.State(); s != StateReceivePolling {
		t.Errorf("state after callback: %v", s)
	}
}
