// Copyright 2016 by Thorsten von Eicken, see LICENSE file
// Modified 2022 by Dan Crank, danno@danno.org

package cc2500

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrTimeout is matched by every *TimeoutError.
	ErrTimeout = errors.New("cc2500: timeout")
	// ErrIllegalState is matched by every *StateError.
	ErrIllegalState = errors.New("cc2500: operation not legal in current state")

	ErrNotInitialized       = errors.New("cc2500: radio not initialized")
	ErrAlreadyInitialized   = errors.New("cc2500: radio already initialized")
	ErrReceiveNotConfigured = errors.New("cc2500: receive not set up")
	ErrPayloadLength        = errors.New("cc2500: payload length does not match configured length")
	ErrClosed               = errors.New("cc2500: radio closed")
)

// Temporary is an interface implemented by errors that are temporary and thus worth retrying.
type Temporary interface {
	Temporary() bool
}

// TimeoutError reports a hardware signal line that never reached the expected
// level.
type TimeoutError struct {
	Op    string        // operation that was waiting
	Line  string        // signal line being watched
	After time.Duration // how long we waited
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("cc2500: %s: timeout after %v waiting for %s", e.Op, e.After, e.Line)
}

func (e *TimeoutError) Timeout() bool   { return true }
func (e *TimeoutError) Temporary() bool { return true }

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// StateError reports an operation rejected by the state transition table.
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cc2500: %s not allowed in state %v", e.Op, e.State)
}

func (e *StateError) Is(target error) bool { return target == ErrIllegalState }
