// Copyright 2016 by Thorsten von Eicken, see LICENSE file
// Modified 2022 by Dan Crank, danno@danno.org

package cc2500

import "fmt"

// SPI header flags, OR'ed into the register address.
const (
	writeSingle = 0x00
	writeBurst  = 0x40
	readSingle  = 0x80
	readBurst   = 0xC0
)

// Command strobes.
const (
	SRES    = 0x30 // reset chip
	SFSTXON = 0x31 // enable and calibrate frequency synthesizer
	SXOFF   = 0x32 // turn off crystal oscillator
	SCAL    = 0x33 // calibrate frequency synthesizer and turn it off
	SRX     = 0x34 // enable RX
	STX     = 0x35 // enable TX
	SIDLE   = 0x36 // exit RX/TX, turn off frequency synthesizer
	SWOR    = 0x38 // start wake-on-radio
	SPWD    = 0x39 // enter power down mode when CSn goes high
	SFRX    = 0x3A // flush the RX FIFO
	SFTX    = 0x3B // flush the TX FIFO
	SWORRST = 0x3C // reset real time clock
	SNOP    = 0x3D // no operation, returns status byte
)

// Configuration registers.
const (
	REG_IOCFG2   = 0x00
	REG_IOCFG1   = 0x01
	REG_IOCFG0   = 0x02
	REG_FIFOTHR  = 0x03
	REG_SYNC1    = 0x04
	REG_SYNC0    = 0x05
	REG_PKTLEN   = 0x06
	REG_PKTCTRL1 = 0x07
	REG_PKTCTRL0 = 0x08
	REG_ADDR     = 0x09
	REG_CHANNR   = 0x0A
	REG_FSCTRL1  = 0x0B
	REG_FSCTRL0  = 0x0C
	REG_FREQ2    = 0x0D
	REG_FREQ1    = 0x0E
	REG_FREQ0    = 0x0F
	REG_MDMCFG4  = 0x10
	REG_MDMCFG3  = 0x11
	REG_MDMCFG2  = 0x12
	REG_MDMCFG1  = 0x13
	REG_MDMCFG0  = 0x14
	REG_DEVIATN  = 0x15
	REG_MCSM2    = 0x16
	REG_MCSM1    = 0x17
	REG_MCSM0    = 0x18
	REG_FOCCFG   = 0x19
	REG_BSCFG    = 0x1A
	REG_AGCCTRL2 = 0x1B
	REG_AGCCTRL1 = 0x1C
	REG_AGCCTRL0 = 0x1D
	REG_WOREVT1  = 0x1E
	REG_WOREVT0  = 0x1F
	REG_WORCTRL  = 0x20
	REG_FREND1   = 0x21
	REG_FREND0   = 0x22
	REG_FSCAL3   = 0x23
	REG_FSCAL2   = 0x24
	REG_FSCAL1   = 0x25
	REG_FSCAL0   = 0x26
	REG_RCCTRL1  = 0x27
	REG_RCCTRL0  = 0x28
	REG_FSTEST   = 0x29
	REG_PTEST    = 0x2A
	REG_AGCTEST  = 0x2B
	REG_TEST2    = 0x2C
	REG_TEST1    = 0x2D
	REG_TEST0    = 0x2E
)

// Status registers, only readable with the burst bit set.
const (
	REG_PARTNUM    = 0x30
	REG_VERSION    = 0x31
	REG_FREQEST    = 0x32
	REG_LQI        = 0x33
	REG_RSSI       = 0x34
	REG_MARCSTATE  = 0x35
	REG_PKTSTATUS  = 0x38
	REG_TXBYTES    = 0x3A
	REG_RXBYTES    = 0x3B
	REG_PATABLE    = 0x3E
	REG_FIFO       = 0x3F
	configBlockLen = REG_TEST0 + 1
)

const (
	fxosc    = 26000000 // crystal frequency in Hz
	fifoSize = 64

	// Expected PARTNUM/VERSION for a CC2500.
	partnumCC2500 = 0x80
	versionCC2500 = 0x03
)

// Status is the status byte the chip clocks out on the header byte of every
// transaction.
type Status byte

// ChipState is the main radio control state reported in the status byte.
type ChipState byte

const (
	ChipIdle ChipState = iota
	ChipRX
	ChipTX
	ChipFSTXON
	ChipCalibrate
	ChipSettling
	ChipRXOverflow
	ChipTXUnderflow
)

var chipStateNames = [...]string{
	"IDLE", "RX", "TX", "FSTXON", "CALIBRATE", "SETTLING", "RXFIFO_OVERFLOW", "TXFIFO_UNDERFLOW",
}

func (s ChipState) String() string {
	if int(s) < len(chipStateNames) {
		return chipStateNames[s]
	}
	return fmt.Sprintf("ChipState(%d)", byte(s))
}

// ChipReady reports whether the crystal is running (CHIP_RDYn low).
func (s Status) ChipReady() bool { return s&0x80 == 0 }

// State returns the chip's main state machine mode.
func (s Status) State() ChipState { return ChipState(s>>4) & 0x07 }

// FIFOBytes returns the number of bytes available in the RX FIFO for read
// transactions, or free in the TX FIFO for writes. Saturates at 15.
func (s Status) FIFOBytes() int { return int(s & 0x0F) }

func (s Status) String() string {
	return fmt.Sprintf("ready=%t state=%v fifo=%d", s.ChipReady(), s.State(), s.FIFOBytes())
}
