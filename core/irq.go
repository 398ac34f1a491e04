package core

// IRQLine identifies one interrupt-controller input.
type IRQLine uint8

// IRQController is the abstract interrupt controller servicing the
// peripheral IRQ lines. Handlers run in interrupt context: they must not
// block, and they communicate with task context only through state owned
// by their driver.
type IRQController interface {
	// Connect installs the handler invoked when the line fires.
	// A line has at most one handler; Connect replaces any previous one.
	Connect(line IRQLine, handler func())

	// Enable unmasks the line.
	Enable(line IRQLine)

	// Disable masks the line. A masked line drops events rather than
	// holding them pending.
	Disable(line IRQLine)
}
