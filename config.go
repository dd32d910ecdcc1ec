// Copyright 2016 by Thorsten von Eicken, see LICENSE file
// Modified 2022 by Dan Crank, danno@danno.org

package cc2500

import (
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/physic"
)

// Setting is one configuration register value.
type Setting struct {
	Addr  byte
	Value byte
}

// ConfigBlock is an ordered set of register settings written to the chip as a
// single burst during Init. Addresses must be contiguous and ascending.
type ConfigBlock []Setting

// smartRF holds the SmartRF Studio export for the CC2500 at 2433MHz, 250kBaud
// MSK, registers 0x00 through 0x2E. Settings patches the packet handling and
// state machine registers on top of it.
var smartRF = [configBlockLen]byte{
	REG_IOCFG2:   0x29,
	REG_IOCFG1:   0x2E,
	REG_IOCFG0:   0x06,
	REG_FIFOTHR:  0x07,
	REG_SYNC1:    0xD3,
	REG_SYNC0:    0x91,
	REG_PKTLEN:   0xFF,
	REG_PKTCTRL1: 0x04,
	REG_PKTCTRL0: 0x05,
	REG_ADDR:     0x00,
	REG_CHANNR:   0x00,
	REG_FSCTRL1:  0x0C,
	REG_FSCTRL0:  0x00,
	REG_FREQ2:    0x5D,
	REG_FREQ1:    0x93,
	REG_FREQ0:    0xB1,
	REG_MDMCFG4:  0x2D,
	REG_MDMCFG3:  0x3B,
	REG_MDMCFG2:  0x73,
	REG_MDMCFG1:  0x22,
	REG_MDMCFG0:  0xF8,
	REG_DEVIATN:  0x00,
	REG_MCSM2:    0x07,
	REG_MCSM1:    0x30,
	REG_MCSM0:    0x18,
	REG_FOCCFG:   0x1D,
	REG_BSCFG:    0x1C,
	REG_AGCCTRL2: 0xC7,
	REG_AGCCTRL1: 0x00,
	REG_AGCCTRL0: 0xB2,
	REG_WOREVT1:  0x87,
	REG_WOREVT0:  0x6B,
	REG_WORCTRL:  0xF8,
	REG_FREND1:   0xB6,
	REG_FREND0:   0x10,
	REG_FSCAL3:   0xEA,
	REG_FSCAL2:   0x0A,
	REG_FSCAL1:   0x00,
	REG_FSCAL0:   0x11,
	REG_RCCTRL1:  0x41,
	REG_RCCTRL0:  0x00,
	REG_FSTEST:   0x59,
	REG_PTEST:    0x7F,
	REG_AGCTEST:  0x3F,
	REG_TEST2:    0x88,
	REG_TEST1:    0x31,
	REG_TEST0:    0x0B,
}

// Settings builds the configuration block for opts.
func Settings(opts RadioOpts) ConfigBlock {
	regs := smartRF

	regs[REG_IOCFG2] = 0x06 // asserts on sync word sent, deasserts at end of packet
	regs[REG_IOCFG1] = 0x29 // CHIP_RDYn
	regs[REG_IOCFG0] = 0x06 // asserts on sync word received, deasserts at end of packet
	regs[REG_PKTLEN] = byte(HeaderLen + opts.PayloadLen)
	regs[REG_PKTCTRL1] = 0x00 // no status bytes appended, no address check
	regs[REG_PKTCTRL0] = 0x00 // fixed length, FIFO mode, no whitening
	if opts.CRC {
		regs[REG_PKTCTRL0] |= 0x04
	}
	if opts.FEC {
		regs[REG_MDMCFG1] |= 0x80
	}
	regs[REG_MCSM1] = 0x3C // stay in RX after a packet, IDLE after TX
	regs[REG_MCSM0] = 0x08 // no autocal, calibration is manual
	if opts.Frequency != 0 {
		f := freqWord(opts.Frequency)
		regs[REG_FREQ2] = f[0]
		regs[REG_FREQ1] = f[1]
		regs[REG_FREQ0] = f[2]
	}

	block := make(ConfigBlock, len(regs))
	for i, v := range regs {
		block[i] = Setting{Addr: byte(i), Value: v}
	}
	return block
}

// freqWord returns FREQ2, FREQ1, FREQ0 for a carrier frequency. Frequency
// steps are fxosc/2^16, about 397Hz.
func freqWord(freq physic.Frequency) [3]byte {
	f := (uint64(freq/physic.Hertz)<<16 + fxosc/2) / fxosc
	return [3]byte{byte(f >> 16), byte(f >> 8), byte(f)}
}

// Frequency returns the carrier frequency the block programs.
func (b ConfigBlock) Frequency() physic.Frequency {
	var f uint64
	for _, s := range b {
		switch s.Addr {
		case REG_FREQ2:
			f |= uint64(s.Value) << 16
		case REG_FREQ1:
			f |= uint64(s.Value) << 8
		case REG_FREQ0:
			f |= uint64(s.Value)
		}
	}
	return physic.Frequency(f*fxosc>>16) * physic.Hertz
}

// burst returns the start address and values of b after checking that it can
// be written as one burst.
func (b ConfigBlock) burst() (byte, []byte, error) {
	if len(b) == 0 {
		return 0, nil, errors.New("cc2500: empty config block")
	}
	start := b[0].Addr
	if int(start)+len(b) > configBlockLen {
		return 0, nil, errors.Errorf("cc2500: config block %#02x+%d runs past the config registers", start, len(b))
	}
	values := make([]byte, len(b))
	for i, s := range b {
		if s.Addr != start+byte(i) {
			return 0, nil, errors.Errorf("cc2500: config block not contiguous at %#02x", s.Addr)
		}
		values[i] = s.Value
	}
	return start, values, nil
}
