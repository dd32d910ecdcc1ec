// Copyright 2016 by Thorsten von Eicken, see LICENSE file
// Modified 2022 by Dan Crank, danno@danno.org

// Package board opens the SPI port and GPIO lines a CC2500 is wired to.
package board

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	cc2500 "github.com/DanCrank/cc2500-rpi"
	"github.com/DanCrank/cc2500-rpi/internal/cdevpin"
	"github.com/DanCrank/cc2500-rpi/internal/nodeconfig"
)

const consumer = "cc2500"

// Board is an opened set of hardware resources.
type Board struct {
	Port spi.PortCloser
	Pins cc2500.Pins

	lines []*cdevpin.Pin
}

// Open initializes periph's host drivers, opens the SPI port and resolves the
// pins with the configured backend.
func Open(cfg nodeconfig.Board) (*Board, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "board: host init")
	}
	b := &Board{}
	var err error
	switch cfg.Backend {
	case "gpiocdev":
		err = b.openCdev(cfg)
	default:
		err = b.openPeriph(cfg)
	}
	if err != nil {
		b.Close()
		return nil, err
	}
	if b.Port, err = spireg.Open(cfg.SPI); err != nil {
		b.Close()
		return nil, errors.Wrapf(err, "board: open SPI %s", cfg.SPI)
	}
	return b, nil
}

func (b *Board) openPeriph(cfg nodeconfig.Board) error {
	byName := func(name string) (gpio.PinIO, error) {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, errors.Errorf("board: cannot open pin %s", name)
		}
		return p, nil
	}
	var err error
	if b.Pins.GDO0, err = byName(cfg.GDO0); err != nil {
		return err
	}
	if b.Pins.GDO2, err = byName(cfg.GDO2); err != nil {
		return err
	}
	if cfg.CS != "" {
		if b.Pins.CS, err = byName(cfg.CS); err != nil {
			return err
		}
	}
	if cfg.SO != "" {
		if b.Pins.SO, err = byName(cfg.SO); err != nil {
			return err
		}
	}
	return nil
}

func (b *Board) openCdev(cfg nodeconfig.Board) error {
	in := func(name string) (*cdevpin.Pin, error) {
		offset, err := ParseOffset(name)
		if err != nil {
			return nil, err
		}
		p, err := cdevpin.Input(cfg.Chip, offset, gpio.PullDown, consumer)
		if err != nil {
			return nil, err
		}
		b.lines = append(b.lines, p)
		return p, nil
	}
	gdo0, err := in(cfg.GDO0)
	if err != nil {
		return err
	}
	b.Pins.GDO0 = gdo0
	gdo2, err := in(cfg.GDO2)
	if err != nil {
		return err
	}
	b.Pins.GDO2 = gdo2
	if cfg.SO != "" {
		// SO doubles as MISO; only a pin muxed as plain GPIO can be read here.
		so, err := in(cfg.SO)
		if err != nil {
			return err
		}
		b.Pins.SO = so
	}
	if cfg.CS != "" {
		offset, err := ParseOffset(cfg.CS)
		if err != nil {
			return err
		}
		cs, err := cdevpin.Output(cfg.Chip, offset, gpio.High, consumer)
		if err != nil {
			return err
		}
		b.lines = append(b.lines, cs)
		b.Pins.CS = cs
	}
	return nil
}

// ParseOffset accepts "GPIO25" style names and bare line offsets.
func ParseOffset(name string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(strings.ToUpper(name), "GPIO"))
	if err != nil || n < 0 {
		return 0, errors.Errorf("board: bad line %q", name)
	}
	return n, nil
}

// Close releases the SPI port and any requested lines.
func (b *Board) Close() error {
	var first error
	if b.Port != nil {
		first = b.Port.Close()
	}
	for _, l := range b.lines {
		if err := l.Halt(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
