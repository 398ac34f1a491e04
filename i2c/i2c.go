// I2C master-controller driver for the IT8xxx2 embedded-controller family.
//
// Each chip exposes six ports behind two structurally different register
// files: ports A-C carry the legacy SMBus-style host interface, ports D-F
// the enhanced I2C interface. Both are driven byte-at-a-time by a per-port
// interrupt whose handler advances a small state machine; the transfer
// entry point runs in task context and blocks on a completion signal while
// the pump does its work.
package i2c

import (
	"sync"
	"time"

	"goec/core"
)

// MsgFlags describe one transfer unit.
type MsgFlags uint8

const (
	// Write moves the buffer to the target. It is the zero value.
	Write MsgFlags = 0
	// Read moves the buffer from the target.
	Read MsgFlags = 1 << 0
	// Stop ends the transaction with a stop condition after this unit.
	Stop MsgFlags = 1 << 1
	// Restart opens this unit with a repeated start.
	Restart MsgFlags = 1 << 2

	// msgStart marks the unit that opens a transaction from bus idle.
	// It is managed by the driver, never by callers.
	msgStart MsgFlags = 1 << 5
)

// Msg is one transfer unit: a buffer moved in one direction. Messages
// passed to Transfer are processed strictly in order; a write unit
// without Stop immediately followed by a read unit forms the combined
// write-then-read format.
type Msg struct {
	Buf   []byte
	Flags MsgFlags
}

// Channel status. statusNormal means no transfer is in flight; the other
// values carry a combined-format transaction between pump steps, or
// between two Transfer calls when the caller splits it.
type chStatus uint8

const (
	statusNormal chStatus = iota
	statusRepeatStart
	statusWaitRead
	statusWaitNextTransfer
)

// Line levels as reported by the personality engines.
const (
	lineSCLHigh = 0x01
	lineSDAHigh = 0x02
	lineIdle    = lineSCLHigh | lineSDAHigh
)

const (
	// Ports below this index use the legacy SMBus register file.
	legacyPortCount = 3

	// Default PLL frequency feeding the enhanced ports' clock divider.
	pllClock = 48000000

	// Value programmed into the clock/data low timeout registers (25 ms).
	clockLowTimeout = 0x19

	// recoverDelay paces the manual line toggling during bus recovery.
	recoverDelay = time.Millisecond
)

// transferTimeout bounds the wait for each message's completion signal.
// A variable so tests can substitute a short budget.
var transferTimeout = 100 * time.Millisecond

// errTimedOut marks an expired completion wait in the controller error
// field. It sits outside the 8-bit space of hardware status codes.
const errTimedOut uint32 = 1 << 16

// Reset causes reported through the debug writer.
const (
	resetCauseNoIdle  = 1
	resetCauseTimeout = 2
)

// Bus configuration word, matching the common controller encoding:
// bit 0 selects 10-bit addressing, bits 3:1 the speed class and bit 4
// controller (master) mode.
const (
	Addr10Bits     uint32 = 1 << 0
	ModeController uint32 = 1 << 4

	SpeedStandard uint32 = 1 // 100 kHz
	SpeedFast     uint32 = 2 // 400 kHz
	SpeedFastPlus uint32 = 3 // 1 MHz

	speedShift = 1
	speedMask  = 0x7 << speedShift
)

// SpeedSet places a speed class into a configuration word.
func SpeedSet(speed uint32) uint32 { return speed << speedShift }

func speedGet(config uint32) uint32 { return (config & speedMask) >> speedShift }

// engine is the capability set both hardware personalities implement.
// All methods except setFrequency may run in interrupt context.
type engine interface {
	// transact runs one interrupt-driven step of the current message and
	// reports true while more interrupts are expected. A false return
	// with the stop flag consumed means the whole transaction finished.
	transact() bool

	// reset normalizes the hardware after an aborted transfer.
	reset()

	// busy reports whether the hardware considers the bus claimed.
	busy() bool

	// lineLevels returns the live SCL/SDA levels as line* bits.
	lineLevels() uint8

	// setFrequency programs the bus clock, in kHz.
	setFrequency(khz int)

	// isNACK reports whether a captured error code is an address NACK.
	// The encoding differs between the two register files.
	isNACK(code uint32) bool
}

// Config describes one controller instance.
type Config struct {
	// Port index: 0-2 select the legacy SMBus file, 3-5 the enhanced
	// I2C file.
	Port uint8

	// Regs is the port's register window.
	Regs RegFile

	// Pins is used to reassign SCL/SDA during bus recovery.
	Pins core.PinController

	// IRQ services the port's interrupt line.
	IRQ  core.IRQController
	Line core.IRQLine

	// SCL and SDA are the port's pins.
	SCL core.Pin
	SDA core.Pin

	// Bitrate is the bus clock in Hz: 100000, 400000 or 1000000.
	Bitrate uint32

	// Sleep, if non-nil, replaces time.Sleep during bus recovery.
	Sleep func(time.Duration)
}

// Controller drives one I2C port. The exported methods are safe for
// concurrent use; only one transfer is in flight at a time and further
// callers queue on the controller mutex.
type Controller struct {
	cfg  Config
	regs RegFile
	eng  engine

	// mu spans whole multi-message transfers. done is the one-shot
	// completion signal the interrupt handler gives and Transfer takes.
	mu   sync.Mutex
	done chan struct{}

	status   chStatus
	msg      *Msg
	widx     int
	ridx     int
	err      uint32
	addr     uint16
	busSpeed uint32
	prescale uint8
	// stop records that a stop condition was issued and the finish
	// interrupt is still outstanding.
	stop bool

	sleep func(time.Duration)
}

// NewController initializes the port hardware and returns a ready
// controller. The personality is fixed here from the port index and never
// re-derived per call.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Regs == nil || cfg.Pins == nil || cfg.IRQ == nil {
		return nil, core.ErrInvalidArgument
	}
	if cfg.Port >= 2*legacyPortCount {
		return nil, core.ErrInvalidArgument
	}

	c := &Controller{
		cfg:   cfg,
		regs:  cfg.Regs,
		done:  make(chan struct{}, 1),
		sleep: cfg.Sleep,
	}
	if c.sleep == nil {
		c.sleep = time.Sleep
	}
	if cfg.Port < legacyPortCount {
		c.eng = &legacyEngine{c: c}
	} else {
		c.eng = &enhancedEngine{c: c}
	}

	c.initHardware()

	speed, err := speedFromBitrate(cfg.Bitrate)
	if err != nil {
		core.Debugf("i2c ch%d: failure initializing", cfg.Port)
		return nil, err
	}
	if err := c.Configure(ModeController | SpeedSet(speed)); err != nil {
		core.Debugf("i2c ch%d: failure initializing", cfg.Port)
		return nil, err
	}
	c.status = statusNormal

	cfg.IRQ.Connect(cfg.Line, c.isr)

	// Hand the pins to the peripheral.
	cfg.Pins.SetFunction(cfg.SCL, core.FuncAlt)
	cfg.Pins.SetFunction(cfg.SDA, core.FuncAlt)

	return c, nil
}

func speedFromBitrate(hz uint32) (uint32, error) {
	switch hz {
	case 100000:
		return SpeedStandard, nil
	case 400000:
		return SpeedFast, nil
	case 1000000:
		return SpeedFastPlus, nil
	}
	return 0, core.ErrInvalidArgument
}

func (c *Controller) legacy() bool { return c.cfg.Port < legacyPortCount }

// initHardware quiesces the port the way the boot firmware leaves it.
func (c *Controller) initHardware() {
	r := c.regs
	if c.legacy() {
		if c.cfg.Port == 0 {
			// The pre-defined hardware slave reachable through port A is
			// unused; disable it to avoid illegal access.
			r.Write(RegSlaveFeature, r.Read(RegSlaveFeature)&^uint8(slaveFeatureHSAPE))
		}
		// Host enable, I2C-compatible mode, SMDAT-low reset on timeout.
		r.Write(RegHostControl2, 0x11)
		// Kill any transaction left over, then leave the host interrupt
		// enabled.
		r.Write(RegHostControl, 0x03)
		r.Write(RegHostControl, 0x01)
		r.Write(RegHostStatus, legHostaAllWC)
		r.Write(RegHostControl2, 0x00)
	} else {
		// Software reset pulse, then state and hardware reset.
		r.Write(RegDataHoldTime, r.Read(RegDataHoldTime)|0x80)
		r.Write(RegDataHoldTime, r.Read(RegDataHoldTime)&0x7F)
		r.Write(RegControl, enhCtlAllReset)
		r.Write(RegControl1, 0)
	}
}

// Configure sets the bus speed. Only controller mode with 7-bit
// addressing is supported.
func (c *Controller) Configure(config uint32) error {
	if config&ModeController == 0 {
		return core.ErrInvalidArgument
	}
	if config&Addr10Bits != 0 {
		return core.ErrInvalidArgument
	}

	var khz int
	speed := speedGet(config)
	switch speed {
	case SpeedStandard:
		khz = 100
	case SpeedFast:
		khz = 400
	case SpeedFastPlus:
		khz = 1000
	default:
		return core.ErrInvalidArgument
	}

	c.busSpeed = speed
	c.eng.setFrequency(khz)
	return nil
}

// GetConfig returns the active configuration word.
func (c *Controller) GetConfig() (uint32, error) {
	if c.busSpeed == 0 {
		core.Debugf("i2c ch%d: bus frequency is not initially configured", c.cfg.Port)
		return 0, core.ErrIOFault
	}
	switch c.busSpeed {
	case SpeedStandard, SpeedFast, SpeedFastPlus:
		return ModeController | SpeedSet(c.busSpeed), nil
	}
	return 0, core.ErrOutOfRange
}

// busAvailable reports an idle bus: the hardware is not mid-transaction
// and both lines read high.
func (c *Controller) busAvailable() bool {
	return !c.eng.busy() && c.eng.lineLevels() == lineIdle
}

func (c *Controller) enableIRQ() { c.cfg.IRQ.Enable(c.cfg.Line) }

// isr services the controller's interrupt: run one pump step and, when
// the current message needs no more interrupts, wake the waiting task and
// quiet the line.
func (c *Controller) isr() {
	if !c.eng.transact() {
		c.complete()
		c.cfg.IRQ.Disable(c.cfg.Line)
	}
}

// complete gives the one-shot completion signal. The slot is drained
// before each message, so a late signal from a timed-out message cannot
// satisfy the next one.
func (c *Controller) complete() {
	select {
	case c.done <- struct{}{}:
	default:
	}
}

func (c *Controller) wait() (timedOut bool) {
	t := time.NewTimer(transferTimeout)
	defer t.Stop()
	select {
	case <-c.done:
		return false
	case <-t.C:
		return true
	}
}

// Transfer runs the messages as one transaction against the target at
// addr. It is all-or-nothing: any error aborts the remaining messages and
// the first error encountered is returned. A trailing message without
// Stop keeps the bus claimed for a continuation call.
func (c *Controller) Transfer(msgs []Msg, addr uint16) error {
	if len(msgs) == 0 {
		return core.ErrInvalidArgument
	}
	for i := range msgs {
		if len(msgs[i].Buf) == 0 {
			return core.ErrInvalidArgument
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// A write-to-read transaction split into two calls continues on a
	// claimed bus; only a fresh transaction checks for idle.
	if c.status == statusNormal {
		if !c.busAvailable() {
			c.recoverLocked()
			// After resetting the bus, if it is still not available
			// (no external pull-up), drop the transaction.
			if !c.busAvailable() {
				return core.ErrIOFault
			}
		}
		msgs[0].Flags |= msgStart
	}

	for i := range msgs {
		c.widx = 0
		c.ridx = 0
		c.err = 0
		c.msg = &msgs[i]
		c.addr = addr

		if msgs[0].Flags&msgStart != 0 {
			c.status = statusNormal
			c.enableIRQ()
		}

		// Drain any stale completion before kicking the first step.
		select {
		case <-c.done:
		default:
		}
		c.eng.transact()
		timedOut := c.wait()
		// The line was enabled for the start or repeated start; if the
		// wait expired without the interrupt firing it must not stay
		// enabled into the next transaction.
		c.cfg.IRQ.Disable(c.cfg.Line)

		if c.err != 0 {
			break
		}
		if timedOut {
			c.err = errTimedOut
			c.eng.reset()
			core.Debugf("i2c ch%d:0x%X reset, cause %d",
				c.cfg.Port, addr, resetCauseTimeout)
			break
		}
	}

	// A failed or completed transaction never leaves the controller in a
	// combined-format partial state.
	if c.err != 0 || msgs[0].Flags&Stop != 0 {
		c.status = statusNormal
	}

	return c.result()
}

// result maps the captured error code to the driver taxonomy.
func (c *Controller) result() error {
	switch {
	case c.err == 0:
		return nil
	case c.err == errTimedOut:
		return core.ErrBusTimeout
	case c.eng.isNACK(c.err):
		return core.ErrNoAcknowledge
	}
	return core.ErrIOFault
}
