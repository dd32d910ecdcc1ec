// Copyright 2016 by Thorsten von Eicken, see LICENSE file
// Modified 2022 by Dan Crank, danno@danno.org

package cc2500

import "math/bits"

// HeaderLen is the length of the static header in front of every payload.
const HeaderLen = 2

// Header identifies the sender of a frame.
type Header struct {
	NetworkID byte
	DeviceID  byte
}

// Matches reports whether h was sent by device on network.
func (h Header) Matches(network, device byte) bool {
	return h.NetworkID == network && h.DeviceID == device
}

// Framer frames and parses fixed-length packets:
//
//	[network id][device id][payload, PayloadLen bytes]
//
// There is no length prefix and no CRC check at this layer.
type Framer struct {
	NetworkID  byte
	DeviceID   byte
	PayloadLen int
}

// PacketLen is the on-air frame length.
func (f Framer) PacketLen() int { return HeaderLen + f.PayloadLen }

// Frame prepends the header to payload.
func (f Framer) Frame(payload []byte) ([]byte, error) {
	if len(payload) != f.PayloadLen {
		return nil, ErrPayloadLength
	}
	buf := make([]byte, f.PacketLen())
	buf[0] = f.NetworkID
	buf[1] = f.DeviceID
	copy(buf[HeaderLen:], payload)
	return buf, nil
}

// Parse splits a received frame into header and payload. The payload aliases
// buf. Identifiers are not checked; that is up to the caller.
func (f Framer) Parse(buf []byte) (Header, []byte, bool) {
	if len(buf) != f.PacketLen() {
		return Header{}, nil, false
	}
	return Header{NetworkID: buf[0], DeviceID: buf[1]}, buf[HeaderLen:], true
}

// CountMismatchedBits returns the number of differing bits in the first n
// bytes of a and b. n is clamped to the shorter buffer. It is meant for
// offline link-quality measurements.
func CountMismatchedBits(a, b []byte, n int) int {
	n = min(n, len(a), len(b))
	count := 0
	for i := 0; i < n; i++ {
		count += bits.OnesCount8(a[i] ^ b[i])
	}
	return count
}
