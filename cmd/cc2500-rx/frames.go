// Copyright 2016 by Thorsten von Eicken, see LICENSE file
// Modified 2022 by Dan Crank, danno@danno.org

package main

import (
	"encoding/hex"
	"sync"
	"time"

	cc2500 "github.com/DanCrank/cc2500-rpi"
)

// frameRecord is a received frame as reported by the status API.
type frameRecord struct {
	At        time.Time `json:"at"`
	NetworkID byte      `json:"network_id"`
	DeviceID  byte      `json:"device_id"`
	Payload   string    `json:"payload"`
	Accepted  bool      `json:"accepted"`
}

// frameLog keeps the most recent frames and counters.
type frameLog struct {
	mu       sync.Mutex
	frames   []frameRecord
	next     int
	full     bool
	received int
	accepted int
}

func newFrameLog(size int) *frameLog {
	if size < 1 {
		size = 1
	}
	return &frameLog{frames: make([]frameRecord, size)}
}

func (l *frameLog) add(pkt *cc2500.RxPacket, accepted bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.frames[l.next] = frameRecord{
		At:        pkt.At,
		NetworkID: pkt.NetworkID,
		DeviceID:  pkt.DeviceID,
		Payload:   hex.EncodeToString(pkt.Payload),
		Accepted:  accepted,
	}
	l.next = (l.next + 1) % len(l.frames)
	if l.next == 0 {
		l.full = true
	}
	l.received++
	if accepted {
		l.accepted++
	}
}

// recent returns the logged frames, oldest first.
func (l *frameLog) recent() []frameRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.full {
		return append([]frameRecord(nil), l.frames[:l.next]...)
	}
	out := make([]frameRecord, 0, len(l.frames))
	out = append(out, l.frames[l.next:]...)
	return append(out, l.frames[:l.next]...)
}

func (l *frameLog) counts() (received, accepted int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.received, l.accepted
}
