package i2c

import (
	"fmt"

	periphi2c "periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"tinygo.org/x/drivers"

	"goec/core"
)

// Bus adapts a Controller to the common ecosystem bus shapes, so TinyGo
// sensor drivers and periph.io device packages can run on top of it
// unchanged.
type Bus struct {
	c *Controller
}

var (
	_ drivers.I2C   = (*Bus)(nil)
	_ periphi2c.Bus = (*Bus)(nil)
)

// NewBus wraps c.
func NewBus(c *Controller) *Bus {
	return &Bus{c: c}
}

// Tx performs the write of w followed by the read into r as one combined
// transaction with a repeated start in between. An empty half is skipped.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	msgs := make([]Msg, 0, 2)
	if len(w) > 0 {
		m := Msg{Buf: w}
		if len(r) == 0 {
			m.Flags |= Stop
		}
		msgs = append(msgs, m)
	}
	if len(r) > 0 {
		f := Read | Stop
		if len(w) > 0 {
			f |= Restart
		}
		msgs = append(msgs, Msg{Buf: r, Flags: f})
	}
	if len(msgs) == 0 {
		return core.ErrInvalidArgument
	}
	return b.c.Transfer(msgs, addr)
}

// ReadRegister reads buf from register reg of the device at addr.
func (b *Bus) ReadRegister(addr uint8, reg uint8, buf []byte) error {
	return b.Tx(uint16(addr), []byte{reg}, buf)
}

// WriteRegister writes buf to register reg of the device at addr.
func (b *Bus) WriteRegister(addr uint8, reg uint8, buf []byte) error {
	w := make([]byte, 0, len(buf)+1)
	w = append(w, reg)
	w = append(w, buf...)
	return b.Tx(uint16(addr), w, nil)
}

// String implements i2c.Bus.
func (b *Bus) String() string {
	return fmt.Sprintf("it8xxx2-i2c%d", b.c.cfg.Port)
}

// SetSpeed implements i2c.Bus by snapping f to the nearest supported
// speed class.
func (b *Bus) SetSpeed(f physic.Frequency) error {
	var speed uint32
	switch {
	case f <= 0:
		return core.ErrInvalidArgument
	case f <= 100*physic.KiloHertz:
		speed = SpeedStandard
	case f <= 400*physic.KiloHertz:
		speed = SpeedFast
	case f <= physic.MegaHertz:
		speed = SpeedFastPlus
	default:
		return core.ErrInvalidArgument
	}
	return b.c.Configure(ModeController | SpeedSet(speed))
}
