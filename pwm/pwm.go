// PWM driver for the Microchip XEC block.
//
// The hardware runs one output from either a 48 MHz or a 100 kHz input
// clock through a 16-entry pre-divider and a pair of 16-bit on/off
// counters. Set searches both clock domains for the divider and counter
// pair that best approximates the requested frequency and duty cycle,
// then applies the winner in one glitch-free register sequence.
package pwm

import "goec/core"

// Input clock domains.
const (
	inputFreqHigh = 48000000
	inputFreqLow  = 100000
)

// Minimal on/off are 1 and 1, both incremented by hardware, so 4. A zero
// count cannot be set (it is reserved for the full low/high output
// cases), which also rules out a combined on/off of 2.
const lowestOnOff = 4

// Maximal on/off are 16-bit, both incremented, times the deepest
// divider.
const highestOnOff = 2 * 65536 * 16

const (
	minHighClockFreq = inputFreqHigh / highestOnOff
	maxLowClockFreq  = inputFreqLow / lowestOnOff
)

// Precision factors. Frequencies carry one sub-Hz digit; duty cycles are
// scaled so no digits are lost in the division chain.
const (
	freqPF = 10
	dcPF   = 100000
)

// Lowest reachable frequency: 0.1 Hz in freqPF units.
const freqLimit = 1

const numDivElems = 16

// Highest reachable frequency per divider entry. Read-only.
var maxFreqHighOnDiv = [numDivElems]uint32{
	48000000,
	24000000,
	16000000,
	12000000,
	9600000,
	8000000,
	6857142,
	6000000,
	5333333,
	4800000,
	4363636,
	4000000,
	3692307,
	3428571,
	3200000,
	3000000,
}

var maxFreqLowOnDiv = [numDivElems]uint32{
	100000,
	50000,
	33333,
	25000,
	20000,
	16666,
	14285,
	12500,
	11111,
	10000,
	9090,
	8333,
	7692,
	7142,
	6666,
	6250,
}

// params is one register candidate. A div of 0xFF marks the candidate
// unusable (its clock domain cannot represent the target).
type params struct {
	on  uint32
	off uint32
	div uint8
}

// PWM drives one XEC PWM block.
type PWM struct {
	regs RegFile
}

// New returns a driver over the given register window.
func New(regs RegFile) (*PWM, error) {
	if regs == nil {
		return nil, core.ErrInvalidArgument
	}
	return &PWM{regs: regs}, nil
}

func computeFrequency(clk, on, off uint32) uint32 {
	return (clk * freqPF) / ((on + 1) + (off + 1))
}

func computeDC(on, off uint32) uint32 {
	total := (on + 1) + (off + 1)
	return uint32(uint64(on+1) * dcPF / uint64(total))
}

func computeOnOff(freq, dc, clk uint32) (on, off uint32) {
	onOff := uint64(clk) * freqPF / uint64(freq)
	on = uint32(onOff*uint64(dc)/dcPF) - 1
	off = uint32(onOff) - on - 2
	return on, off
}

// selectDiv picks the initial divider: the shallowest entry whose top
// frequency is still reachable with the minimum combined on/off count.
func selectDiv(freq uint32, maxFreq *[numDivElems]uint32) uint8 {
	if freq >= maxFreq[3] {
		return 0
	}
	freq *= lowestOnOff
	var i uint8
	for i = 0; i < numDivElems-1; i++ {
		if freq >= maxFreq[i] {
			break
		}
	}
	return i
}

// compareDivOnOff evaluates two neighboring dividers and keeps the one
// with smaller frequency error whose counters fit in 16 bits. The
// subtraction is deliberately unsigned: a candidate overshooting the
// target wraps to a huge distance and loses.
func compareDivOnOff(targetFreq, dc uint32, maxFreq *[numDivElems]uint32,
	divA, divB uint8, onA, offA *uint32) uint8 {

	*onA, *offA = computeOnOff(targetFreq, dc, maxFreq[divA])
	freqA := computeFrequency(maxFreq[divA], *onA, *offA)

	onB, offB := computeOnOff(targetFreq, dc, maxFreq[divB])
	freqB := computeFrequency(maxFreq[divB], onB, offB)

	if targetFreq-freqA < targetFreq-freqB {
		if *onA <= 0xFFFF && *offA <= 0xFFFF {
			return divA
		}
	}

	if onB <= 0xFFFF && offB <= 0xFFFF {
		*onA = onB
		*offA = offB
		return divB
	}

	return divA
}

// selectBestDivOnOff walks the dividers downward from the initial guess,
// keeping the best fitting candidate at each step.
func selectBestDivOnOff(targetFreq, dc uint32, maxFreq *[numDivElems]uint32,
	on, off *uint32) uint8 {

	div := selectDiv(targetFreq, maxFreq)
	for comp := int(div) - 1; comp >= 0; comp-- {
		div = compareDivOnOff(targetFreq, dc, maxFreq, div, uint8(comp), on, off)
	}
	return div
}

// compareParams picks the clock domain whose achieved frequency lands
// closer to the target.
func compareParams(targetFreq uint32, hc, lc *params) *params {
	var freqH, freqL uint32

	if hc.div < numDivElems {
		freqH = computeFrequency(maxFreqHighOnDiv[hc.div], hc.on, hc.off)
	}
	if lc.div < numDivElems {
		freqL = computeFrequency(maxFreqLowOnDiv[lc.div], lc.on, lc.off)
	}

	sel := lc
	if absDiff(targetFreq, freqH) < absDiff(targetFreq, freqL) {
		sel = hc
	}

	clock := "low"
	if sel == hc {
		clock = "high"
	}
	core.Debugf("pwm: on %s clock, on %d off %d div %d",
		clock, sel.on, sel.off, sel.div)

	return sel
}

func absDiff(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}

// apply runs the dual-domain search and writes the winning candidate.
// The output is disabled before the counters and divider change and only
// re-enabled with the final configuration word, so a half-programmed
// waveform never reaches the pin.
func (p *PWM) apply(targetFreq, on, off uint32) {
	dc := computeDC(on, off)

	computeHigh := targetFreq >= minHighClockFreq
	computeLow := targetFreq <= maxLowClockFreq

	hc := params{div: 0xFF}
	lc := params{div: 0xFF}

	core.Debugf("pwm: target freq (x%d): %d, dc %d per-cent",
		freqPF, targetFreq, dc/1000)

	direct := false
	if computeHigh {
		if !computeLow && on <= 0xFFFF && off <= 0xFFFF {
			// The target is only representable on the high-speed clock
			// and already fits unscaled.
			hc = params{on: on, off: off, div: 0}
			direct = true
		} else {
			hc.div = selectBestDivOnOff(targetFreq, dc,
				&maxFreqHighOnDiv, &hc.on, &hc.off)
		}
	}
	if computeLow && !direct {
		lc.div = selectBestDivOnOff(targetFreq, dc,
			&maxFreqLowOnDiv, &lc.on, &lc.off)
	}

	p.regs.SetConfig(p.regs.Config() &^ cfgEnable)
	reg := p.regs.Config()

	sel := compareParams(targetFreq, &hc, &lc)
	if sel == &lc {
		reg |= cfgClockLow
	}
	p.regs.SetCountOn(sel.on)
	p.regs.SetCountOff(sel.off)
	reg |= uint32(sel.div&0xF) << cfgDivShift
	reg |= cfgEnable
	p.regs.SetConfig(reg)
}

// Set programs the output for the requested period and pulse, both in
// cycles of the 48 MHz reference clock. Polarity flags are not
// supported. Degenerate requests bypass the search: a zero period and
// pulse disables the output, a zero pulse forces the line low, and a
// pulse equal to the period forces it high.
func (p *PWM) Set(channel, periodCycles, pulseCycles uint32, flags uint8) error {
	// The block exposes a single output.
	if channel > 0 {
		return core.ErrInvalidArgument
	}
	if pulseCycles > periodCycles {
		return core.ErrInvalidArgument
	}
	if flags != 0 {
		return core.ErrInvalidArgument
	}

	on := pulseCycles
	off := periodCycles - pulseCycles

	targetFreq := computeFrequency(inputFreqHigh, on, off)
	if targetFreq < freqLimit {
		core.Debugf("pwm: target frequency below limit")
		return core.ErrOutOfRange
	}

	switch {
	case pulseCycles == 0 && periodCycles == 0:
		p.regs.SetConfig(p.regs.Config() &^ cfgEnable)
	case pulseCycles == 0:
		// Permanent low.
		p.regs.SetCountOn(0)
		p.regs.SetCountOff(1)
	case pulseCycles == periodCycles:
		// Permanent high.
		p.regs.SetCountOn(1)
		p.regs.SetCountOff(0)
	default:
		p.apply(targetFreq, on, off)
	}

	return nil
}

// GetCyclesPerSecond reports the reference clock rate. Callers do not
// have to know about the low-speed clock; the driver selects the most
// relevant domain on their behalf.
func (p *PWM) GetCyclesPerSecond(channel uint32) (uint64, error) {
	if channel > 0 {
		return 0, core.ErrInvalidArgument
	}
	return inputFreqHigh, nil
}
