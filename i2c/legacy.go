package i2c

// Legacy host status bits (RegHostStatus). All but the busy bit are
// write-1-clear.
const (
	legHostaBusy     = 0x01 // host busy
	legHostaFinish   = 0x02 // finish interrupt
	legHostaDevErr   = 0x04 // device error
	legHostaBusErr   = 0x08 // bus error
	legHostaFail     = 0x10 // failed
	legHostaNACK     = 0x20 // no acknowledge
	legHostaTimeout  = 0x40 // clock/data low timeout
	legHostaByteDone = 0x80 // byte done status

	legHostaAnyError = legHostaDevErr | legHostaBusErr | legHostaFail |
		legHostaNACK | legHostaTimeout
	legHostaAllWC    = legHostaFinish | legHostaAnyError | legHostaByteDone
	legHostaNextByte = legHostaByteDone
)

// RegSlaveFeature: pre-defined hardware slave A enable.
const slaveFeatureHSAPE = 0x02

// legacyEngine drives the SMBus-style host interface of ports A-C, one
// byte per interrupt.
type legacyEngine struct {
	c *Controller
}

func (e *legacyEngine) transact() bool {
	c := e.c
	r := c.regs

	if sta := r.Read(RegHostStatus) & legHostaAnyError; sta != 0 {
		c.err = uint32(sta)
	} else {
		if !c.stop {
			if c.msg.Flags&Read != 0 {
				return e.read()
			}
			return e.write()
		}
		// A stop condition was issued; wait for the finish interrupt.
		if r.Read(RegHostStatus)&legHostaFinish == 0 {
			return true
		}
	}

	// Clear every status bit and disable the host interface.
	r.Write(RegHostStatus, legHostaAllWC)
	r.Write(RegHostControl2, 0x00)
	c.stop = false
	return false
}

func (e *legacyEngine) read() bool {
	c := e.c
	r := c.regs
	m := c.msg

	if m.Flags&msgStart != 0 {
		// Host enable, I2C-compatible mode.
		r.Write(RegHostControl2, 0x13)
		// bit 0 transfer direction, bits 7:1 target address.
		r.Write(RegTargetAddress, uint8(c.addr<<1)|0x01)
		m.Flags &^= msgStart
		// Interrupt enable, extend command, start; a single byte that
		// ends the transaction is pre-marked as the last byte.
		if len(m.Buf) == 1 && m.Flags&Stop != 0 {
			r.Write(RegHostControl, 0x7D)
		} else {
			r.Write(RegHostControl, 0x5D)
		}
		return true
	}

	if c.status == statusRepeatStart || c.status == statusWaitRead {
		if c.status == statusRepeatStart {
			// Write leg finished; flip the bus direction.
			e.changeDirection()
		} else {
			e.lastByte()
			r.Write(RegHostStatus, legHostaNextByte)
		}
		c.status = statusNormal
		c.enableIRQ()
		return true
	}

	if r.Read(RegHostStatus)&legHostaByteDone != 0 {
		if c.ridx < len(m.Buf) {
			m.Buf[c.ridx] = r.Read(RegHostData)
			c.ridx++
			e.lastByte()
			if c.ridx == len(m.Buf) {
				if m.Flags&Stop != 0 {
					r.Write(RegHostStatus, legHostaNextByte)
					c.stop = true
				} else {
					c.status = statusWaitRead
					return false
				}
			} else {
				r.Write(RegHostStatus, legHostaNextByte)
			}
		}
	}
	return true
}

func (e *legacyEngine) write() bool {
	c := e.c
	r := c.regs
	m := c.msg

	if m.Flags&msgStart != 0 {
		r.Write(RegHostControl2, 0x13)
		r.Write(RegTargetAddress, uint8(c.addr<<1))
		// The first byte goes out together with the address.
		r.Write(RegHostData, m.Buf[c.widx])
		c.widx++
		m.Flags &^= msgStart
		r.Write(RegHostControl, 0x5D)
		return true
	}

	if r.Read(RegHostStatus)&legHostaByteDone != 0 {
		if c.widx < len(m.Buf) {
			r.Write(RegHostData, m.Buf[c.widx])
			c.widx++
			r.Write(RegHostStatus, legHostaNextByte)
			if c.status == statusRepeatStart {
				c.status = statusNormal
				c.enableIRQ()
			}
		} else {
			if m.Flags&Stop != 0 {
				// Drop the I2C-compatible enable before clearing the
				// final byte-done, so the stop goes out.
				r.Write(RegHostControl2, 0x11)
				r.Write(RegHostStatus, legHostaNextByte)
				c.stop = true
			} else {
				// Hold the bus for the read leg to follow.
				c.status = statusRepeatStart
				return false
			}
		}
	}
	return true
}

// lastByte tells the hardware the next received byte is the final one of
// the transaction, so it answers with NACK instead of ACK.
func (e *legacyEngine) lastByte() {
	c := e.c
	if c.msg.Flags&Stop != 0 && c.ridx == len(c.msg.Buf)-1 {
		r := c.regs
		r.Write(RegHostControl, r.Read(RegHostControl)|0x20)
	}
}

// changeDirection performs the write-to-read switch of the combined
// format: bit 3 enables the switch, bit 2 holds it pending until the
// byte-done status is cleared.
func (e *legacyEngine) changeDirection() {
	c := e.c
	r := c.regs

	if r.Read(RegHostControl2)&0x08 != 0 {
		e.lastByte()
		r.Write(RegHostStatus, legHostaNextByte)
	} else {
		r.Write(RegHostControl2, r.Read(RegHostControl2)|0x0C)
		r.Write(RegHostStatus, legHostaNextByte)
		e.lastByte()
		r.Write(RegHostControl2, r.Read(RegHostControl2)&^uint8(0x04))
	}
}

func (e *legacyEngine) reset() {
	r := e.c.regs
	// bit 1 kills the current transaction.
	r.Write(RegHostControl, 0x02)
	r.Write(RegHostControl, 0x00)
	r.Write(RegHostStatus, legHostaAllWC)
}

func (e *legacyEngine) busy() bool {
	return e.c.regs.Read(RegHostStatus)&(legHostaBusy|legHostaAllWC) != 0
}

func (e *legacyEngine) lineLevels() uint8 {
	return e.c.regs.Read(RegPinControl) & lineIdle
}

func (e *legacyEngine) setFrequency(khz int) {
	r := e.c.regs
	if khz == 400 {
		// At 400 kHz the clock comes from the timing registers, which
		// let the low period be stretched to meet timing.
		r.Write(RegClockSelect, 0)
		r.Write(RegTiming4P7USLow, 0x06)
		r.Write(RegTiming4P0USLow, 0x00)
		r.Write(RegTiming300NS, 0x01)
		r.Write(RegTiming250NS, 0x02)
		r.Write(RegTiming45P3USLow, 0x6A)
		r.Write(RegTiming45P3USHigh, 0x01)
		r.Write(RegTiming4P7A4P0High, 0x00)
	} else {
		var sel uint8
		switch khz {
		case 100:
			sel = 2
		case 1000:
			sel = 4
		}
		r.Write(RegClockSelect, sel)
	}
	r.Write(RegClockLowTimeout, clockLowTimeout)
}

func (e *legacyEngine) isNACK(code uint32) bool {
	return code == legHostaNACK
}
