// Copyright 2016 by Thorsten von Eicken, see LICENSE file
// Modified 2022 by Dan Crank, danno@danno.org

package main

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	cc2500 "github.com/DanCrank/cc2500-rpi"
)

type fakeRadio struct {
	pending *cc2500.RxPacket
	calls   []string
}

func (f *fakeRadio) ReceivePacket() (*cc2500.RxPacket, bool) {
	p := f.pending
	f.pending = nil
	return p, p != nil
}

func (f *fakeRadio) Idle() error               { f.calls = append(f.calls, "idle"); return nil }
func (f *fakeRadio) Calibrate() error          { f.calls = append(f.calls, "cal"); return nil }
func (f *fakeRadio) ReceivePollRestart() error { f.calls = append(f.calls, "rx"); return nil }

func (f *fakeRadio) State() cc2500.State           { return cc2500.StateReceivePolling }
func (f *fakeRadio) Status() (cc2500.Status, error) { return cc2500.Status(0x10), nil }
func (f *fakeRadio) ChipInfo() (byte, byte)        { return 0x80, 0x03 }

func packet(network, device byte, payload ...byte) *cc2500.RxPacket {
	return &cc2500.RxPacket{
		Header:  cc2500.Header{NetworkID: network, DeviceID: device},
		Payload: payload,
		At:      time.Now(),
	}
}

func TestStationHandle(t *testing.T) {
	radio := &fakeRadio{}
	var uart bytes.Buffer
	st := &station{radio: radio, networkID: 0x88, deviceID: 0x77, uart: &uart, frames: newFrameLog(4)}

	radio.pending = packet(0x88, 0x77, 0x00, 0x12, 0x34, 0x02, 0x56, 0x78)
	st.handle()
	radio.pending = packet(0x99, 0x77, 1, 2, 3, 4, 5, 6)
	st.handle()
	radio.pending = packet(0x88, 0x55, 1, 2, 3, 4, 5, 6)
	st.handle()
	st.handle() // no frame pending

	if want := []byte{0x00, 0x12, 0x34, 0x02, 0x56, 0x78}; !bytes.Equal(uart.Bytes(), want) {
		t.Errorf("uart: got % x, want % x", uart.Bytes(), want)
	}
	if got, want := strings.Join(radio.calls, " "), strings.TrimSpace(strings.Repeat("idle cal rx ", 4)); got != want {
		t.Errorf("calls: %s", got)
	}
	if received, accepted := st.frames.counts(); received != 3 || accepted != 1 {
		t.Errorf("counts: %d/%d", received, accepted)
	}
}

func TestFrameLogWraps(t *testing.T) {
	l := newFrameLog(2)
	for i := byte(1); i <= 3; i++ {
		l.add(packet(0x88, i), true)
	}
	got := l.recent()
	if len(got) != 2 || got[0].DeviceID != 2 || got[1].DeviceID != 3 {
		t.Errorf("recent: %+v", got)
	}
}

func TestAPI(t *testing.T) {
	frames := newFrameLog(4)
	frames.add(packet(0x88, 0x77, 0xAB, 0xCD), true)
	app := newAPI(&fakeRadio{}, frames, false)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/radio/status", nil))
	if err != nil {
		t.Fatal(err)
	}
	var status struct {
		Success bool           `json:"success"`
		Data    statusResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if !status.Success || status.Data.State != "ReceivePolling" || status.Data.ChipState != "RX" ||
		status.Data.Part != "0x80" || status.Data.Version != "0x03" || status.Data.Received != 1 {
		t.Errorf("status: %+v", status)
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/api/radio/frames", nil))
	if err != nil {
		t.Fatal(err)
	}
	var list struct {
		Data []frameRecord `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if len(list.Data) != 1 || list.Data[0].Payload != "abcd" || !list.Data[0].Accepted {
		t.Errorf("frames: %+v", list.Data)
	}
}
