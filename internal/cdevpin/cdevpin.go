// Copyright 2016 by Thorsten von Eicken, see LICENSE file
// Modified 2022 by Dan Crank, danno@danno.org

// Package cdevpin exposes Linux GPIO character device lines as periph pins,
// for kernels and boards where periph's own GPIO drivers cannot get at the
// lines (e.g. the RP1 on a Raspberry Pi 5).
package cdevpin

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/warthog618/go-gpiocdev"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Pin is a requested gpiochip line. It implements gpio.PinIO.
//
// Input lines are requested with edge detection on both edges; In selects
// which of them WaitForEdge reports.
type Pin struct {
	name   string
	offset int
	line   *gpiocdev.Line
	edges  chan gpio.Level

	mu   sync.Mutex
	pull gpio.Pull
	edge gpio.Edge
}

// Input requests offset on chip as an input.
func Input(chip string, offset int, pull gpio.Pull, consumer string) (*Pin, error) {
	p := &Pin{
		name:   fmt.Sprintf("%s/%d", chip, offset),
		offset: offset,
		edges:  make(chan gpio.Level, 16),
		pull:   pull,
	}
	line, err := gpiocdev.RequestLine(chip, offset,
		gpiocdev.AsInput,
		bias(pull),
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(p.handle),
		gpiocdev.WithConsumer(consumer),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "cdevpin: request %s", p.name)
	}
	p.line = line
	return p, nil
}

// Output requests offset on chip as an output driven to level.
func Output(chip string, offset int, level gpio.Level, consumer string) (*Pin, error) {
	p := &Pin{name: fmt.Sprintf("%s/%d", chip, offset), offset: offset}
	line, err := gpiocdev.RequestLine(chip, offset,
		gpiocdev.AsOutput(value(level)),
		gpiocdev.WithConsumer(consumer),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "cdevpin: request %s", p.name)
	}
	p.line = line
	return p, nil
}

func bias(pull gpio.Pull) gpiocdev.LineBias {
	switch pull {
	case gpio.PullDown:
		return gpiocdev.WithPullDown
	case gpio.PullUp:
		return gpiocdev.WithPullUp
	default:
		return gpiocdev.WithBiasDisabled
	}
}

func value(l gpio.Level) int {
	if l == gpio.High {
		return 1
	}
	return 0
}

// handle runs on gpiocdev's event goroutine.
func (p *Pin) handle(evt gpiocdev.LineEvent) {
	l, e := gpio.Low, gpio.FallingEdge
	if evt.Type == gpiocdev.LineEventRisingEdge {
		l, e = gpio.High, gpio.RisingEdge
	}
	p.mu.Lock()
	want := p.edge
	p.mu.Unlock()
	if want == gpio.NoEdge || (want != gpio.BothEdges && want != e) {
		return
	}
	select {
	case p.edges <- l:
	default:
	}
}

func (p *Pin) String() string   { return p.name }
func (p *Pin) Name() string     { return p.name }
func (p *Pin) Number() int      { return p.offset }
func (p *Pin) Function() string { return "" }

// Halt releases the line.
func (p *Pin) Halt() error {
	if p.line == nil {
		return nil
	}
	return p.line.Close()
}

// In changes the bias if needed and selects the edges WaitForEdge reports.
// Edges that arrived before the call are discarded.
func (p *Pin) In(pull gpio.Pull, edge gpio.Edge) error {
	if p.edges == nil {
		return errors.Errorf("cdevpin: %s is an output", p.name)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if pull != gpio.PullNoChange && pull != p.pull {
		if err := p.line.Reconfigure(gpiocdev.AsInput, bias(pull)); err != nil {
			return errors.Wrapf(err, "cdevpin: bias %s", p.name)
		}
		p.pull = pull
	}
	p.edge = edge
	for {
		select {
		case <-p.edges:
		default:
			return nil
		}
	}
}

func (p *Pin) Read() gpio.Level {
	v, err := p.line.Value()
	if err != nil {
		return gpio.Low
	}
	return v != 0
}

// WaitForEdge waits for an edge selected by In. A negative timeout waits
// forever.
func (p *Pin) WaitForEdge(timeout time.Duration) bool {
	if timeout < 0 {
		_, ok := <-p.edges
		return ok
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-p.edges:
		return true
	case <-t.C:
		return false
	}
}

func (p *Pin) Pull() gpio.Pull {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pull
}

func (p *Pin) DefaultPull() gpio.Pull { return gpio.PullNoChange }

func (p *Pin) Out(l gpio.Level) error {
	if p.edges != nil {
		return errors.Errorf("cdevpin: %s is an input", p.name)
	}
	return p.line.SetValue(value(l))
}

// PWM is not supported on character device lines.
func (p *Pin) PWM(gpio.Duty, physic.Frequency) error {
	return errors.Errorf("cdevpin: %s: PWM not supported", p.name)
}

var _ gpio.PinIO = (*Pin)(nil)
