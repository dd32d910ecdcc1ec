// Copyright 2016 by Thorsten von Eicken, see LICENSE file
// Modified 2022 by Dan Crank, danno@danno.org

package cc2500

// Calibrator is implemented by *Radio.
type Calibrator interface {
	Calibrate() error
}

// CalSchedule counts transmit/receive cycles down to the next manual
// frequency synthesizer calibration. The synthesizer drifts and autocal is
// off, so skipping calibration shows up as lost packets.
type CalSchedule struct {
	Period int // cycles between calibrations, exclusive
	n      int
}

// NewCalSchedule returns a schedule that is due on the first cycle and then
// every period+1 cycles.
func NewCalSchedule(period int) *CalSchedule {
	return &CalSchedule{Period: period}
}

// Due advances the schedule by one cycle and reports whether this cycle
// should calibrate. The counter is reset to Period when it fires.
func (s *CalSchedule) Due() bool {
	if s.n == 0 {
		s.n = s.Period
		return true
	}
	s.n--
	return false
}

// Reset restarts the countdown from Period.
func (s *CalSchedule) Reset() { s.n = s.Period }

// Remaining returns the current counter value.
func (s *CalSchedule) Remaining() int { return s.n }

// Step advances the schedule and calibrates c when due.
func (s *CalSchedule) Step(c Calibrator) (bool, error) {
	if !s.Due() {
		return false, nil
	}
	return true, c.Calibrate()
}
