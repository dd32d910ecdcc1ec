// Copyright 2016 by Thorsten von Eicken, see LICENSE file
// Modified 2022 by Dan Crank, danno@danno.org

package cc2500

import (
	"fmt"
	"sync/atomic"
)

// State is the driver's belief about the transceiver's operating mode. The
// chip is never polled; the belief follows the commands we send it.
type State uint32

const (
	StateSleep State = iota
	StateIdle
	StateReceivePolling
	StateCalibrating
	StateTransmitting
)

func (s State) String() string {
	switch s {
	case StateSleep:
		return "Sleep"
	case StateIdle:
		return "Idle"
	case StateReceivePolling:
		return "ReceivePolling"
	case StateCalibrating:
		return "Calibrating"
	case StateTransmitting:
		return "Transmitting"
	}
	return fmt.Sprintf("State(%d)", uint32(s))
}

// op names a state machine operation in the transition table.
type op uint8

const (
	opSleep op = iota
	opIdle
	opCalibrate
	opSetTxPower
	opTransmit
	opSetupReceive
	opReceivePollRestart
	opStatus
)

var opNames = [...]string{
	opSleep:              "Sleep",
	opIdle:               "Idle",
	opCalibrate:          "Calibrate",
	opSetTxPower:         "SetTxPower",
	opTransmit:           "Transmit",
	opSetupReceive:       "SetupReceive",
	opReceivePollRestart: "ReceivePollRestart",
	opStatus:             "Status",
}

func (o op) String() string { return opNames[o] }

// transitions maps (current state, operation) to the state the operation
// leaves the radio in. Missing entries are illegal.
//
// Calibrating and Transmitting only persist after a failed operation (e.g. a
// transmit timeout); Idle is the way out. SCAL is only accepted by the chip in
// IDLE, so receive polling must be left with Idle before calibrating. Any bus
// access from Sleep wakes the chip, which then sits in IDLE.
var transitions = map[State]map[op]State{
	StateSleep: {
		opSleep:              StateSleep,
		opIdle:               StateIdle,
		opCalibrate:          StateIdle,
		opSetTxPower:         StateIdle,
		opTransmit:           StateIdle,
		opSetupReceive:       StateReceivePolling,
		opReceivePollRestart: StateReceivePolling,
	},
	StateIdle: {
		opSleep:              StateSleep,
		opIdle:               StateIdle,
		opCalibrate:          StateIdle,
		opSetTxPower:         StateIdle,
		opTransmit:           StateIdle,
		opSetupReceive:       StateReceivePolling,
		opReceivePollRestart: StateReceivePolling,
		opStatus:             StateIdle,
	},
	StateReceivePolling: {
		opSleep:              StateSleep,
		opIdle:               StateIdle,
		opSetTxPower:         StateReceivePolling,
		opTransmit:           StateIdle,
		opSetupReceive:       StateReceivePolling,
		opReceivePollRestart: StateReceivePolling,
		opStatus:             StateReceivePolling,
	},
	StateCalibrating: {
		opIdle: StateIdle,
	},
	StateTransmitting: {
		opIdle: StateIdle,
	},
}

// next returns the state o leads to from s, or a *StateError.
func next(s State, o op) (State, error) {
	to, ok := transitions[s][o]
	if !ok {
		return s, &StateError{Op: o.String(), State: s}
	}
	return to, nil
}

// stateCell holds the current State. Only the state machine stores into it;
// the bus and the receive handler load from it.
type stateCell struct {
	v atomic.Uint32
}

func (c *stateCell) load() State   { return State(c.v.Load()) }
func (c *stateCell) store(s State) { c.v.Store(uint32(s)) }
