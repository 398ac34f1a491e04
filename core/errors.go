package core

import "errors"

// Error taxonomy shared by the peripheral drivers. Hardware fault bits are
// captured raw by the interrupt-context state machines and translated to
// these values only at the driver API boundary.
var (
	// ErrInvalidArgument reports a nil or malformed input: empty message
	// lists, unsupported channel indices, 10-bit addressing, invalid
	// speeds, polarity flags.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnsupported reports a feature the hardware has but the driver
	// does not implement.
	ErrUnsupported = errors.New("operation not supported")

	// ErrBusTimeout reports an expired completion wait or a hardware
	// clock/data low timeout.
	ErrBusTimeout = errors.New("bus timeout")

	// ErrNoAcknowledge reports a target that did not answer its address
	// or a data byte with ACK.
	ErrNoAcknowledge = errors.New("target did not acknowledge")

	// ErrIOFault reports arbitration loss and generic hardware errors.
	ErrIOFault = errors.New("i/o fault")

	// ErrOutOfRange reports a request outside the representable range,
	// such as a PWM frequency below the hardware floor.
	ErrOutOfRange = errors.New("value out of range")
)
