package i2c

// Enhanced control register bits (RegControl).
const (
	enhCtlHWReset    = 0x01 // hardware reset
	enhCtlStop       = 0x02
	enhCtlStart      = 0x04 // start and repeated start
	enhCtlACK        = 0x08
	enhCtlStateReset = 0x10
	enhCtlModeSel    = 0x20
	enhCtlIntEn      = 0x40
	enhCtlRxMode     = 0x80 // 0: standard mode, 1: receive mode

	// State reset and hardware reset.
	enhCtlAllReset = enhCtlStateReset | enhCtlHWReset
	// Generate a start condition and transmit the target address.
	enhCtlStartID = enhCtlIntEn | enhCtlModeSel | enhCtlACK | enhCtlStart | enhCtlHWReset
	// Generate a stop condition.
	enhCtlFinish = enhCtlIntEn | enhCtlModeSel | enhCtlACK | enhCtlStop | enhCtlHWReset
)

// Enhanced host status bits (RegStatus).
const (
	enhStaACK       = 0x01 // ACK received
	enhStaIntPend   = 0x02 // interrupt pending
	enhStaRW        = 0x04 // read/write
	enhStaTimeout   = 0x08 // timeout error
	enhStaArbLost   = 0x10 // arbitration lost
	enhStaBusBusy   = 0x20
	enhStaAddrMatch = 0x40
	enhStaByteDone  = 0x80 // byte done status

	enhStaAnyError    = enhStaTimeout | enhStaArbLost
	enhStaByteDoneACK = enhStaByteDone | enhStaACK
)

// Timeout status register bits (RegTimeoutStatus): live line levels.
const (
	enhTosSDAIn = 0x01
	enhTosSCLIn = 0x04
)

// enhancedEngine drives the enhanced I2C interface of ports D-F. Unlike
// the legacy file, every step programs the start/ack/reset control bits
// explicitly.
type enhancedEngine struct {
	c *Controller
}

func (e *enhancedEngine) transact() bool {
	c := e.c

	if e.checkError() == 0 {
		if !c.stop {
			if c.msg.Flags&Read != 0 {
				return e.read()
			}
			return e.write()
		}
	}

	c.regs.Write(RegControl, enhCtlAllReset)
	c.regs.Write(RegControl1, 0)
	c.stop = false
	return false
}

// checkError records hardware faults in the controller error field. A
// byte-done status without the ACK bit, while the controller expected an
// acknowledge, is captured as an ACK error distinct from the hardware
// timeout and arbitration codes.
func (e *enhancedEngine) checkError() uint32 {
	c := e.c
	r := c.regs
	sta := r.Read(RegStatus)

	if sta&enhStaAnyError != 0 {
		c.err = uint32(sta & enhStaAnyError)
	} else if sta&enhStaByteDoneACK == enhStaByteDone {
		if r.Read(RegControl)&enhCtlACK != 0 {
			c.err = enhStaACK
		}
	}
	return c.err
}

// start resets the module and reprograms clocking, as every fresh start
// condition must.
func (e *enhancedEngine) start() {
	c := e.c
	r := c.regs

	r.Write(RegControl, enhCtlAllReset)
	r.Write(RegPrescale, c.prescale)
	r.Write(RegHighSpeedPrescale, c.prescale)
	r.Write(RegTimeout, clockLowTimeout)
	// bit 1 enables the enhanced module.
	r.Write(RegControl1, 0x02)
}

// shift moves one byte through the bus. The first byte of a transaction
// is always the target address and goes out with a start condition; the
// last byte of a read is answered with NACK to end the cycle.
func (e *enhancedEngine) shift(receive bool, data uint8, first bool) {
	c := e.c
	r := c.regs

	if first {
		v := data
		if receive {
			v |= 0x01
		}
		r.Write(RegTransmitData, v)
		r.Write(RegControl, enhCtlStartID)
		return
	}

	nack := false
	if receive {
		if c.ridx+1 == len(c.msg.Buf) && c.msg.Flags&Stop != 0 {
			nack = true
		}
	} else {
		r.Write(RegTransmitData, data)
	}
	ctl := uint8(enhCtlIntEn | enhCtlModeSel | enhCtlHWReset)
	if !nack {
		ctl |= enhCtlACK
	}
	r.Write(RegControl, ctl)
}

func (e *enhancedEngine) read() bool {
	c := e.c
	m := c.msg

	if m.Flags&msgStart != 0 {
		m.Flags &^= msgStart
		e.start()
		c.status = statusWaitRead
		e.shift(true, uint8(c.addr<<1), true)
		return true
	}

	if c.status != statusNormal {
		if c.status == statusWaitRead {
			c.status = statusNormal
			// Addressing done; trigger reception of the first byte.
			e.shift(true, 0, false)
		} else {
			// Write leg of a combined transfer finished; repeated start
			// with the read direction.
			c.status = statusWaitRead
			e.shift(true, uint8(c.addr<<1), true)
		}
		// Turn the interrupt back on before the byte arrives.
		c.enableIRQ()
		return true
	}

	if c.ridx < len(m.Buf) {
		m.Buf[c.ridx] = c.regs.Read(RegReceiveData)
		c.ridx++
		if c.ridx == len(m.Buf) {
			if m.Flags&Stop != 0 {
				c.status = statusNormal
				c.regs.Write(RegControl, enhCtlFinish)
				// Wait for the stop-bit interrupt.
				c.stop = true
				return true
			}
			c.status = statusWaitRead
			return false
		}
		e.shift(true, 0, false)
	}
	return true
}

func (e *enhancedEngine) write() bool {
	c := e.c
	m := c.msg

	if m.Flags&msgStart != 0 {
		m.Flags &^= msgStart
		e.start()
		e.shift(false, uint8(c.addr<<1), true)
		return true
	}

	if c.widx < len(m.Buf) {
		out := m.Buf[c.widx]
		c.widx++
		e.shift(false, out, false)
		if c.status == statusWaitNextTransfer {
			c.status = statusNormal
			c.enableIRQ()
		}
		return true
	}

	if m.Flags&Stop != 0 {
		c.regs.Write(RegControl, enhCtlFinish)
		c.stop = true
		return true
	}
	// Hold the bus for the read leg to follow.
	c.status = statusWaitNextTransfer
	return false
}

func (e *enhancedEngine) reset() {
	e.c.regs.Write(RegControl, enhCtlAllReset)
}

func (e *enhancedEngine) busy() bool {
	return e.c.regs.Read(RegStatus)&enhStaBusBusy != 0
}

func (e *enhancedEngine) lineLevels() uint8 {
	var lines uint8
	tos := e.c.regs.Read(RegTimeoutStatus)
	if tos&enhTosSCLIn != 0 {
		lines |= lineSCLHigh
	}
	if tos&enhTosSDAIn != 0 {
		lines |= lineSDAHigh
	}
	return lines
}

// setFrequency derives the prescale value from the PLL clock:
//
//	1 SCL cycle = 2 x (psr + 2) SMBus clock cycles
//	SMBus clock = PLL / divide
func (e *enhancedEngine) setFrequency(khz int) {
	c := e.c
	r := c.regs

	if khz == 0 {
		return
	}
	div := uint32(r.Read(RegClockDivide)&0x0F) + 1
	psr := pllClock/(div*2*1000*uint32(khz)) - 2
	if psr > 0xFD {
		psr = 0xFD
	}

	r.Write(RegPrescale, uint8(psr))
	r.Write(RegHighSpeedPrescale, uint8(psr))
	c.prescale = uint8(psr)
}

func (e *enhancedEngine) isNACK(code uint32) bool {
	return code == enhStaACK
}
