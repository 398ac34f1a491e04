package core

// Pin identifies a package pin by its GPIO number.
type Pin uint8

// PinFunc selects what a pin is muxed to.
type PinFunc uint8

const (
	// FuncGPIO hands the pin to the digital I/O block.
	FuncGPIO PinFunc = iota
	// FuncAlt hands the pin to its peripheral alternate function.
	FuncAlt
)

// PinDir is the direction of a GPIO-mode pin.
type PinDir uint8

const (
	DirInput PinDir = iota
	DirOutput
)

// PinController is the abstract pin-mux and digital I/O interface that
// driver code uses. Platform-specific code registers an implementation
// per chip. The operations are plain register pokes on every supported
// part and cannot fail, so they carry no error return.
type PinController interface {
	// SetFunction muxes a pin between GPIO and its alternate function.
	SetFunction(pin Pin, fn PinFunc)

	// SetDirection configures a GPIO-mode pin as input or output.
	SetDirection(pin Pin, dir PinDir)

	// SetOutput drives a GPIO-mode output pin high or low.
	SetOutput(pin Pin, level bool)
}
