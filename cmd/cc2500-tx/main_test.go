// Copyright 2016 by Thorsten von Eicken, see LICENSE file
// Modified 2022 by Dan Crank, danno@danno.org

package main

import (
	"context"
	"strings"
	"testing"

	cc2500 "github.com/DanCrank/cc2500-rpi"
)

type recorder struct {
	calls    []string
	payloads [][]byte
	txErr    error
}

func (r *recorder) Calibrate() error { r.calls = append(r.calls, "cal"); return nil }
func (r *recorder) Sleep() error     { r.calls = append(r.calls, "sleep"); return nil }
func (r *recorder) Idle() error      { r.calls = append(r.calls, "idle"); return nil }

func (r *recorder) Transmit(p []byte) error {
	r.calls = append(r.calls, "tx")
	r.payloads = append(r.payloads, p)
	return r.txErr
}

func TestNodeRun(t *testing.T) {
	rec := &recorder{}
	n := &node{
		radio:   rec,
		sched:   cc2500.NewCalSchedule(3),
		sensors: []sampler{&counterSampler{id: SensorTemp}, &counterSampler{id: SensorLight, n: 0x00FF}},
		count:   5,
	}
	if err := n.run(context.Background()); err != nil {
		t.Fatal(err)
	}
	want := "cal tx sleep tx sleep tx sleep tx sleep cal tx sleep"
	if got := strings.Join(rec.calls, " "); got != want {
		t.Errorf("calls:\n got %s\nwant %s", got, want)
	}
	if n.sent != 5 || len(rec.payloads) != 5 {
		t.Fatalf("sent %d", n.sent)
	}
	if p := rec.payloads[0]; len(p) != 6 || p[0] != SensorTemp || p[2] != 1 || p[3] != SensorLight || p[4] != 0x01 || p[5] != 0x00 {
		t.Errorf("first payload % x", p)
	}
}

func TestNodeTransmitTimeout(t *testing.T) {
	rec := &recorder{txErr: &cc2500.TimeoutError{Op: "transmit", Line: "GDO2"}}
	n := &node{
		radio:   rec,
		sched:   cc2500.NewCalSchedule(3),
		sensors: []sampler{&counterSampler{}, &counterSampler{}},
		count:   1,
	}
	if err := n.run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(rec.calls, " "); got != "cal tx idle sleep" {
		t.Errorf("calls: %s", got)
	}
	if n.sent != 0 {
		t.Errorf("sent %d", n.sent)
	}
}
