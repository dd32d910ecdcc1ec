// Copyright 2016 by Thorsten von Eicken, see LICENSE file
// Modified 2022 by Dan Crank, danno@danno.org

// Package nodeconfig loads the YAML configuration shared by the transmitter
// and receiver commands.
package nodeconfig

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"

	cc2500 "github.com/DanCrank/cc2500-rpi"
)

// Config is the node configuration file.
type Config struct {
	Radio       Radio       `yaml:"radio"`
	Board       Board       `yaml:"board"`
	Transmitter Transmitter `yaml:"transmitter"`
	Receiver    Receiver    `yaml:"receiver"`
}

// Radio holds the link parameters. Both ends must agree on all of them.
type Radio struct {
	NetworkID    byte          `yaml:"network_id"`
	DeviceID     byte          `yaml:"device_id"`
	PayloadLen   int           `yaml:"payload_len"`
	FEC          bool          `yaml:"fec"`
	CRC          bool          `yaml:"crc"`
	TxPower      byte          `yaml:"tx_power"`
	FrequencyMHz float64       `yaml:"frequency_mhz"`
	TxTimeout    time.Duration `yaml:"tx_timeout"`
	Debug        bool          `yaml:"debug"`
}

// Board says how the chip is wired.
type Board struct {
	Backend string `yaml:"backend"` // "periph" or "gpiocdev"
	SPI     string `yaml:"spi"`     // spireg port name
	Chip    string `yaml:"chip"`    // gpiochip, gpiocdev backend only
	CS      string `yaml:"cs"`      // empty lets the SPI controller drive CSn
	SO      string `yaml:"so"`      // empty skips the SO ready wait
	GDO0    string `yaml:"gdo0"`
	GDO2    string `yaml:"gdo2"`
}

// Transmitter configures the sensor node loop.
type Transmitter struct {
	CalPeriod int           `yaml:"cal_period"` // cycles between calibrations
	Interval  time.Duration `yaml:"interval"`   // sleep between transmissions
	Count     int           `yaml:"count"`      // 0 runs forever
}

// Receiver configures the base station loop.
type Receiver struct {
	AcceptDevice byte   `yaml:"accept_device"` // transmitter device id to forward
	SerialPort   string `yaml:"serial_port"`   // empty disables UART forwarding
	SerialBaud   int    `yaml:"serial_baud"`
	Listen       string `yaml:"listen"` // empty disables the HTTP status API
	History      int    `yaml:"history"`
}

// Default returns the configuration of the demo sensor network on a
// Raspberry Pi with the chip on SPI0 CE0.
func Default() *Config {
	opts := cc2500.DefaultOpts()
	return &Config{
		Radio: Radio{
			NetworkID:    opts.NetworkID,
			DeviceID:     opts.DeviceID,
			PayloadLen:   opts.PayloadLen,
			FEC:          opts.FEC,
			CRC:          opts.CRC,
			TxPower:      0x81,
			FrequencyMHz: 2433,
			TxTimeout:    opts.TxTimeout,
		},
		Board: Board{
			Backend: "periph",
			SPI:     "/dev/spidev0.0",
			Chip:    "gpiochip0",
			GDO0:    "GPIO25",
			GDO2:    "GPIO24",
		},
		Transmitter: Transmitter{
			CalPeriod: 3,
			Interval:  2 * time.Second,
		},
		Receiver: Receiver{
			AcceptDevice: opts.DeviceID,
			SerialBaud:   115200,
			History:      32,
		},
	}
}

// Load reads path on top of Default. A missing file is not an error when
// optional is set.
func Load(path string, optional bool) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.Wrap(err, "nodeconfig")
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "nodeconfig: parse %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, path)
	}
	return cfg, nil
}

// Validate checks the values a radio cannot work with.
func (c *Config) Validate() error {
	switch {
	case c.Radio.PayloadLen < 1 || c.Radio.PayloadLen > 62:
		return errors.Errorf("nodeconfig: payload_len %d out of range 1..62", c.Radio.PayloadLen)
	case c.Radio.FrequencyMHz != 0 && (c.Radio.FrequencyMHz < 2400 || c.Radio.FrequencyMHz > 2483.5):
		return errors.Errorf("nodeconfig: frequency_mhz %v outside the 2.4GHz band", c.Radio.FrequencyMHz)
	case c.Board.Backend != "periph" && c.Board.Backend != "gpiocdev":
		return errors.Errorf("nodeconfig: unknown board backend %q", c.Board.Backend)
	case c.Board.GDO0 == "" || c.Board.GDO2 == "":
		return errors.New("nodeconfig: gdo0 and gdo2 pins are required")
	case c.Transmitter.CalPeriod < 0:
		return errors.New("nodeconfig: cal_period must not be negative")
	}
	return nil
}

// Opts converts the radio section into driver options.
func (r Radio) Opts(logger cc2500.LogPrintf) cc2500.RadioOpts {
	opts := cc2500.DefaultOpts()
	opts.NetworkID = r.NetworkID
	opts.DeviceID = r.DeviceID
	opts.PayloadLen = r.PayloadLen
	opts.FEC = r.FEC
	opts.CRC = r.CRC
	opts.TxPower = r.TxPower
	opts.Frequency = physic.Frequency(r.FrequencyMHz*1e6) * physic.Hertz
	if r.TxTimeout > 0 {
		opts.TxTimeout = r.TxTimeout
	}
	if r.Debug {
		opts.Logger = logger
	}
	return opts
}
