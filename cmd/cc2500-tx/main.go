// Copyright (c) 2016 by Thorsten von Eicken, see LICENSE file for details

// Command cc2500-tx is a sensor node: it wakes the radio, sends one packet of
// sensor readings and puts the radio back to sleep, forever.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"

	cc2500 "github.com/DanCrank/cc2500-rpi"
	"github.com/DanCrank/cc2500-rpi/internal/board"
	"github.com/DanCrank/cc2500-rpi/internal/nodeconfig"
)

// txSettle is how long the radio stays awake after a packet went out.
const txSettle = 24 * time.Second / 32768

// node is the transmit loop, separated from the hardware for testing.
type node struct {
	radio    transmitter
	sched    *cc2500.CalSchedule
	sensors  []sampler
	interval time.Duration
	count    int
	sent     int
}

// transmitter is the part of *cc2500.Radio the loop uses.
type transmitter interface {
	Calibrate() error
	Transmit(payload []byte) error
	Sleep() error
	Idle() error
}

// cycle runs one calibrate/transmit/sleep cycle.
func (n *node) cycle() error {
	if ran, err := n.sched.Step(n.radio); err != nil {
		return errors.Wrap(err, "calibrate")
	} else if ran {
		log.Printf("calibrated")
	}

	readings := make([]reading, 0, len(n.sensors))
	for _, s := range n.sensors {
		v, err := s.Sample()
		if err != nil {
			log.Printf("sensor %d: %v", s.ID(), err)
		}
		readings = append(readings, reading{id: s.ID(), value: v})
	}
	payload := encode(readings)

	err := n.radio.Transmit(payload)
	if errors.Is(err, cc2500.ErrTimeout) {
		// Idle is the only way out of Transmitting.
		log.Printf("transmit: %v", err)
		if err := n.radio.Idle(); err != nil {
			return err
		}
	} else if err != nil {
		return errors.Wrap(err, "transmit")
	} else {
		n.sent++
		log.Printf("sent % x", payload)
	}
	time.Sleep(txSettle)
	return n.radio.Sleep()
}

func (n *node) run(ctx context.Context) error {
	for i := 0; n.count == 0 || i < n.count; i++ {
		if err := n.cycle(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(n.interval):
		}
	}
	return nil
}

func run(configPath string, sensorSpecs []string, count int, debug bool) error {
	cfg, err := nodeconfig.Load(configPath, true)
	if err != nil {
		return err
	}
	if count >= 0 {
		cfg.Transmitter.Count = count
	}
	cfg.Radio.Debug = cfg.Radio.Debug || debug

	var sensors []sampler
	for _, spec := range sensorSpecs {
		s, err := parseSensor(spec)
		if err != nil {
			return err
		}
		sensors = append(sensors, s)
	}
	if got := 3 * len(sensors); got != cfg.Radio.PayloadLen {
		return errors.Errorf("%d sensors make a %d byte payload, radio expects %d",
			len(sensors), got, cfg.Radio.PayloadLen)
	}

	b, err := board.Open(cfg.Board)
	if err != nil {
		return err
	}
	defer b.Close()

	radio, err := cc2500.New(b.Port, b.Pins, cfg.Radio.Opts(log.Printf))
	if err != nil {
		return err
	}
	defer radio.Close()

	log.Printf("Initializing cc2500...")
	t0 := time.Now()
	if err := radio.Init(); err != nil {
		return err
	}
	log.Printf("Ready (%.1fms)", time.Since(t0).Seconds()*1000)

	if err := radio.SetTxPower(cfg.Radio.TxPower); err != nil {
		return err
	}
	if err := radio.Sleep(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	n := &node{
		radio:    radio,
		sched:    cc2500.NewCalSchedule(cfg.Transmitter.CalPeriod),
		sensors:  sensors,
		interval: cfg.Transmitter.Interval,
		count:    cfg.Transmitter.Count,
	}
	err = n.run(ctx)
	log.Printf("Sent %d packets, bye...", n.sent)
	return err
}

func main() {
	configPath := flag.String("config", "/etc/cc2500/node.yaml", "node configuration file")
	sensors := flag.String("sensors", "temp=/sys/class/thermal/thermal_zone0/temp/100,light",
		"comma separated sensors, name or name=path[/divisor]")
	count := flag.Int("count", -1, "number of packets to send, 0 for no limit (default from config)")
	debug := flag.Bool("debug", false, "enable driver debug output")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s:\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}
	flag.Parse()

	if err := run(*configPath, strings.Split(*sensors, ","), *count, *debug); err != nil {
		fmt.Fprintf(os.Stderr, "Exiting due to error: %s\n", err)
		os.Exit(2)
	}
}
