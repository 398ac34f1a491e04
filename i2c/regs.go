package i2c

// Reg names one 8-bit register in a controller's register window. Ports
// A-C expose the legacy SMBus host file and ports D-F the enhanced I2C
// file; the two groups below are disjoint namespaces and a RegFile only
// has to serve the group matching its port's personality.
//
// The bit layouts behind these names follow the IT8xxx2 reference and
// must be preserved bit-for-bit against the target chip's datasheet.
type Reg uint8

// Legacy SMBus host registers (ports A-C).
const (
	// RegHostStatus is the host status register. Status bits are
	// write-1-clear.
	RegHostStatus Reg = iota
	// RegHostControl carries interrupt enable, extend command, last-byte
	// and start bits.
	RegHostControl
	// RegHostControl2 carries host enable, I2C-compatible mode and the
	// direction-switch bits.
	RegHostControl2
	// RegTargetAddress holds the target address in bits 7:1 and the
	// transfer direction in bit 0.
	RegTargetAddress
	// RegHostData is the byte-at-a-time data buffer.
	RegHostData
	// RegPinControl exposes the live SCL (bit 0) and SDA (bit 1) levels.
	RegPinControl
	// RegClockSelect picks the base clock of the port.
	RegClockSelect
	// Timing registers; only programmed for 400 kHz operation, where the
	// low period has to be stretched to meet the spec.
	RegTiming4P7USLow
	RegTiming4P0USLow
	RegTiming300NS
	RegTiming250NS
	RegTiming45P3USLow
	RegTiming45P3USHigh
	RegTiming4P7A4P0High
	// RegClockLowTimeout defines the SMCLK/SMDAT low timeout.
	RegClockLowTimeout
	// RegSlaveFeature controls the pre-defined hardware slave reachable
	// through port A.
	RegSlaveFeature
)

// Enhanced I2C registers (ports D-F).
const (
	// RegStatus is the host status register.
	RegStatus Reg = iota + 0x40
	// RegDataHoldTime carries the data hold time and, in bit 7, the
	// module software reset.
	RegDataHoldTime
	// RegTimeout defines the clock/data low timeout.
	RegTimeout
	// RegTransmitData is the outgoing shift buffer.
	RegTransmitData
	// RegReceiveData is the incoming shift buffer.
	RegReceiveData
	// RegControl is the main control register (start, stop, ack, reset,
	// mode and interrupt-enable bits).
	RegControl
	// RegControl1 enables the enhanced module.
	RegControl1
	// RegPrescale and RegHighSpeedPrescale set the SCL period.
	RegPrescale
	RegHighSpeedPrescale
	// RegTimeoutStatus exposes the live SCL/SDA input levels.
	RegTimeoutStatus
	// RegClockDivide holds the SMBus clock divide value in its low
	// nibble.
	RegClockDivide
)

// RegFile is byte-wise access to one controller's registers.
// Implementations are memory-mapped on silicon and plain storage in
// tests; the driver never caches a value it can re-read.
type RegFile interface {
	Read(r Reg) uint8
	Write(r Reg, v uint8)
}
