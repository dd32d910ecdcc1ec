// Copyright (c) 2016 by Thorsten von Eicken, see LICENSE file for details

// Command cc2500-rx is the base station: it listens for sensor packets,
// forwards the payloads from one transmitter to a UART and serves the link
// status over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	cc2500 "github.com/DanCrank/cc2500-rpi"
	"github.com/DanCrank/cc2500-rpi/internal/board"
	"github.com/DanCrank/cc2500-rpi/internal/nodeconfig"
)

// receiver is the part of *cc2500.Radio the frame handler drives.
type receiver interface {
	ReceivePacket() (*cc2500.RxPacket, bool)
	Idle() error
	Calibrate() error
	ReceivePollRestart() error
}

// station handles received frames.
type station struct {
	radio     receiver
	networkID byte
	deviceID  byte // transmitter to forward
	uart      io.Writer
	frames    *frameLog
}

// handle takes the pending frame, forwards it if it comes from our
// transmitter, then recalibrates and goes back to listening.
func (s *station) handle() {
	if pkt, ok := s.radio.ReceivePacket(); ok {
		accepted := pkt.Matches(s.networkID, s.deviceID)
		s.frames.add(pkt, accepted)
		if accepted {
			if _, err := s.uart.Write(pkt.Payload); err != nil {
				log.Printf("uart: %v", err)
			}
		} else {
			log.Printf("dropped frame from %#02x/%#02x", pkt.NetworkID, pkt.DeviceID)
		}
	}
	if err := s.radio.Idle(); err != nil {
		log.Printf("idle: %v", err)
		return
	}
	if err := s.radio.Calibrate(); err != nil {
		log.Printf("calibrate: %v", err)
	}
	if err := s.radio.ReceivePollRestart(); err != nil {
		log.Printf("receive: %v", err)
	}
}

func run(configPath, listen string, debug bool) error {
	cfg, err := nodeconfig.Load(configPath, true)
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Receiver.Listen = listen
	}
	cfg.Radio.Debug = cfg.Radio.Debug || debug

	uart, err := openUART(cfg.Receiver.SerialPort, cfg.Receiver.SerialBaud)
	if err != nil {
		return err
	}
	defer uart.Close()

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

	st := &station{
		radio:     radio,
		networkID: cfg.Radio.NetworkID,
		deviceID:  cfg.Receiver.AcceptDevice,
		uart:      uart,
		frames:    newFrameLog(cfg.Receiver.History),
	}
	if err := radio.Calibrate(); err != nil {
		return err
	}
	if err := radio.SetupReceive(st.handle); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Receiver.Listen != "" {
		app := newAPI(radio, st.frames, debug)
		go func() {
			if err := app.Listen(cfg.Receiver.Listen); err != nil {
				log.Printf("http: %v", err)
			}
		}()
		defer app.ShutdownWithContext(context.Background())
		log.Printf("Status API on %s", cfg.Receiver.Listen)
	}

	log.Printf("Receiving packets ...")
	err = radio.Listen(ctx)
	received, accepted := st.frames.counts()
	log.Printf("Received %d packets, %d accepted, bye...", received, accepted)
	if err == context.Canceled {
		return nil
	}
	return err
}

func main() {
	configPath := flag.String("config", "/etc/cc2500/node.yaml", "node configuration file")
	listen := flag.String("listen", "", "HTTP status address, overrides the config")
	debug := flag.Bool("debug", false, "enable debug output")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s:\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}
	flag.Parse()

	if err := run(*configPath, *listen, *debug); err != nil {
		fmt.Fprintf(os.Stderr, "Exiting due to error: %s\n", err)
		os.Exit(2)
	}
}
