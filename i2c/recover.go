package i2c

import "goec/core"

// RecoverBus force-releases a wedged bus. The pins are taken away from
// the peripheral and bit-banged: both lines high, a start condition, nine
// clock pulses with SDA held high so a stuck target can shift out its
// remaining bits, a stop condition, and finally a hardware reset of the
// controller. Recovery itself always succeeds; whether the bus came back
// is decided by the idle check of the next transfer.
func (c *Controller) RecoverBus() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recoverLocked()
	return nil
}

func (c *Controller) recoverLocked() {
	pins := c.cfg.Pins
	scl, sda := c.cfg.SCL, c.cfg.SDA

	// Reassign SCL and SDA as plain outputs.
	pins.SetFunction(scl, core.FuncGPIO)
	pins.SetDirection(scl, core.DirOutput)
	pins.SetFunction(sda, core.FuncGPIO)
	pins.SetDirection(sda, core.DirOutput)

	// Pull both lines high.
	pins.SetOutput(scl, true)
	pins.SetOutput(sda, true)
	c.sleep(recoverDelay)

	// Start condition.
	pins.SetOutput(sda, false)
	c.sleep(recoverDelay)
	pins.SetOutput(scl, false)
	c.sleep(recoverDelay)

	// 9 cycles of SCL with SDA held high.
	for i := 0; i < 9; i++ {
		pins.SetOutput(sda, true)
		pins.SetOutput(scl, true)
		c.sleep(recoverDelay)
		pins.SetOutput(scl, false)
		c.sleep(recoverDelay)
	}
	pins.SetOutput(sda, false)
	c.sleep(recoverDelay)

	// Stop condition.
	pins.SetOutput(scl, true)
	c.sleep(recoverDelay)
	pins.SetOutput(sda, true)
	c.sleep(recoverDelay)

	// Hand the pins back to the peripheral.
	pins.SetFunction(scl, core.FuncAlt)
	pins.SetFunction(sda, core.FuncAlt)

	c.eng.reset()
	core.Debugf("i2c ch%d reset, cause %d", c.cfg.Port, resetCauseNoIdle)
}
