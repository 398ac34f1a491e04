package pwm

// Configuration register bits. The layout follows the XEC datasheet and
// must be preserved bit-for-bit.
const (
	// cfgEnable gates the output.
	cfgEnable uint32 = 1 << 0
	// cfgClockLow selects the 100 kHz input clock; clear selects 48 MHz.
	cfgClockLow uint32 = 1 << 1
	// cfgDivShift positions the 4-bit clock pre-divider.
	cfgDivShift = 3
)

// RegFile is the PWM block's register window: the configuration register
// and the two counter registers. Implementations are memory-mapped on
// silicon and plain storage in tests.
type RegFile interface {
	Config() uint32
	SetConfig(v uint32)
	SetCountOn(v uint32)
	SetCountOff(v uint32)
}
