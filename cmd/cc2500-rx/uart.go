// Copyright 2016 by Thorsten von Eicken, see LICENSE file
// Modified 2022 by Dan Crank, danno@danno.org

package main

import (
	"io"

	"github.com/pkg/errors"
	"go.bug.st/serial"
)

// openUART opens the serial port accepted payloads are forwarded to. An empty
// name discards them.
func openUART(name string, baud int) (io.WriteCloser, error) {
	if name == "" {
		return nopWriteCloser{io.Discard}, nil
	}
	port, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", name)
	}
	return port, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
