package i2c

// Simulated silicon for the driver tests: register files that behave
// like a port wired to one responding target, and an interrupt
// controller whose pump goroutine plays the IRQ line.

import (
	"sync"
	"testing"
	"time"

	"goec/core"
)

// fakeIRQ is a single-line interrupt controller.
type fakeIRQ struct {
	mu       sync.Mutex
	enabled  bool
	handler  func()
	disables int
}

func (f *fakeIRQ) Connect(line core.IRQLine, h func()) { f.handler = h }

func (f *fakeIRQ) Enable(line core.IRQLine) {
	f.mu.Lock()
	f.enabled = true
	f.mu.Unlock()
}

func (f *fakeIRQ) Disable(line core.IRQLine) {
	f.mu.Lock()
	f.enabled = false
	f.disables++
	f.mu.Unlock()
}

func (f *fakeIRQ) isEnabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enabled
}

// pump delivers interrupts while the line is enabled and the silicon has
// an event pending, the way the hardware would.
func pump(t *testing.T, irq *fakeIRQ, pending func() bool) {
	t.Helper()
	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
			}
			if irq.isEnabled() && pending() {
				irq.handler()
			} else {
				time.Sleep(20 * time.Microsecond)
			}
		}
	}()
	t.Cleanup(func() { close(stop) })
}

// pinEvent records one PinController call.
type pinEvent struct {
	Pin core.Pin
	Op  string // "func", "dir", "out"
	Val int
}

type fakePins struct {
	mu     sync.Mutex
	events []pinEvent
}

func (f *fakePins) SetFunction(pin core.Pin, fn core.PinFunc) {
	f.record(pinEvent{Pin: pin, Op: "func", Val: int(fn)})
}

func (f *fakePins) SetDirection(pin core.Pin, dir core.PinDir) {
	f.record(pinEvent{Pin: pin, Op: "dir", Val: int(dir)})
}

func (f *fakePins) SetOutput(pin core.Pin, level bool) {
	v := 0
	if level {
		v = 1
	}
	f.record(pinEvent{Pin: pin, Op: "out", Val: v})
}

func (f *fakePins) record(e pinEvent) {
	f.mu.Lock()
	f.events = append(f.events, e)
	f.mu.Unlock()
}

func (f *fakePins) snapshot() []pinEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]pinEvent(nil), f.events...)
}

type targetPhase uint8

const (
	phaseIdle targetPhase = iota
	phaseWrite
	phaseRead
)

// legacyTarget simulates the SMBus host file of ports A-C wired to one
// device. The test configures what the device answers with (provide) and
// how many bytes the host is going to read (expectReads); everything
// else follows from the register writes the engine performs.
type legacyTarget struct {
	mu sync.Mutex

	hosta  uint8
	hoctl  uint8
	hoctl2 uint8
	trasla uint8
	hobdb  uint8
	other  map[Reg]uint8

	phase   targetPhase
	started bool
	pending bool

	provide     []byte
	pidx        int
	expectReads int
	received    []byte

	nackAddr     bool
	dead         bool
	stuck        bool
	stuckForever bool

	addressed int
	switches  int
	finishes  int
	resets    int
}

func newLegacyTarget() *legacyTarget {
	return &legacyTarget{other: make(map[Reg]uint8)}
}

func (g *legacyTarget) takePending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	p := g.pending
	g.pending = false
	return p
}

func (g *legacyTarget) Read(r Reg) uint8 {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch r {
	case RegHostStatus:
		return g.hosta
	case RegHostControl:
		return g.hoctl
	case RegHostControl2:
		return g.hoctl2
	case RegHostData:
		return g.hobdb
	case RegPinControl:
		if g.stuck {
			return 0x00
		}
		return 0x03
	}
	return g.other[r]
}

func (g *legacyTarget) Write(r Reg, v uint8) {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch r {
	case RegHostControl2:
		g.hoctl2 = v
	case RegTargetAddress:
		g.trasla = v
	case RegHostData:
		g.hobdb = v
	case RegHostControl:
		g.writeControl(v)
	case RegHostStatus:
		g.writeStatus(v)
	default:
		g.other[r] = v
	}
}

func (g *legacyTarget) writeControl(v uint8) {
	prevStarted := g.started
	g.hoctl = v

	// bit 1 without the interrupt-enable bit kills the transaction.
	if v == 0x02 {
		g.resets++
		g.started = false
		g.phase = phaseIdle
		if !g.stuckForever {
			g.stuck = false
		}
		return
	}

	// bit 6 starts a transaction.
	if v&0x40 != 0 && !prevStarted && !g.dead {
		g.addressed++
		if g.nackAddr {
			g.hosta |= legHostaNACK
			g.pending = true
			return
		}
		g.started = true
		if g.trasla&0x01 != 0 {
			g.phase = phaseRead
			g.deliver()
		} else {
			g.phase = phaseWrite
			g.received = append(g.received, g.hobdb)
			g.hosta |= legHostaByteDone
			g.pending = true
		}
	}
}

func (g *legacyTarget) writeStatus(v uint8) {
	cleared := v & g.hosta
	g.hosta &^= v

	if cleared&legHostaByteDone == 0 || !g.started || g.dead {
		if cleared&legHostaFinish != 0 && g.phase == phaseIdle {
			g.started = false
		}
		return
	}

	switch g.phase {
	case phaseWrite:
		switch {
		case g.hoctl2&0x08 != 0:
			// Direction switch: the hardware resends the address with
			// the read bit and clocks in the first byte.
			g.switches++
			g.phase = phaseRead
			g.deliver()
		case g.hoctl2&0x02 == 0:
			// I2C-compatible mode dropped: issue the stop condition.
			g.finish()
		default:
			g.received = append(g.received, g.hobdb)
			g.hosta |= legHostaByteDone
			g.pending = true
		}
	case phaseRead:
		if g.pidx >= g.expectReads {
			g.finish()
		} else {
			g.deliver()
		}
	}
}

func (g *legacyTarget) deliver() {
	if g.pidx < len(g.provide) {
		g.hobdb = g.provide[g.pidx]
		g.pidx++
	}
	g.hosta |= legHostaByteDone
	g.pending = true
}

func (g *legacyTarget) finish() {
	g.finishes++
	g.phase = phaseIdle
	g.started = false
	g.hosta |= legHostaFinish
	g.pending = true
}

func (g *legacyTarget) snapshotReceived() []byte {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]byte(nil), g.received...)
}

// enhancedTarget simulates the enhanced I2C file of ports D-F.
type enhancedTarget struct {
	mu sync.Mutex

	str   uint8
	ctr   uint8
	ctr1  uint8
	dtr   uint8
	drr   uint8
	other map[Reg]uint8

	phase   targetPhase
	pending bool

	provide  []byte
	pidx     int
	received []byte

	nackAddr bool
	dead     bool
	stuck    bool

	addressed  int
	finishes   int
	resets     int
	nackedLast bool
}

func newEnhancedTarget() *enhancedTarget {
	return &enhancedTarget{other: make(map[Reg]uint8)}
}

func (g *enhancedTarget) takePending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	p := g.pending
	g.pending = false
	return p
}

func (g *enhancedTarget) Read(r Reg) uint8 {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch r {
	case RegStatus:
		return g.str
	case RegControl:
		return g.ctr
	case RegControl1:
		return g.ctr1
	case RegReceiveData:
		return g.drr
	case RegTimeoutStatus:
		if g.stuck {
			return 0x00
		}
		return enhTosSCLIn | enhTosSDAIn
	case RegClockDivide:
		return 0x00
	}
	return g.other[r]
}

func (g *enhancedTarget) Write(r Reg, v uint8) {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch r {
	case RegTransmitData:
		g.dtr = v
	case RegControl1:
		g.ctr1 = v
	case RegControl:
		g.writeControl(v)
	default:
		g.other[r] = v
	}
}

func (g *enhancedTarget) writeControl(v uint8) {
	g.ctr = v

	if v == enhCtlAllReset {
		g.resets++
		g.phase = phaseIdle
		g.str = 0
		g.stuck = false
		return
	}
	if g.dead {
		return
	}

	switch {
	case v&enhCtlStart != 0:
		g.addressed++
		if g.dtr&0x01 != 0 {
			g.phase = phaseRead
		} else {
			g.phase = phaseWrite
		}
		if g.nackAddr {
			g.str = enhStaByteDone
		} else {
			g.str = enhStaByteDoneACK
		}
		g.pending = true
	case v&enhCtlStop != 0:
		g.finishes++
		g.phase = phaseIdle
		g.str = enhStaByteDoneACK
		g.pending = true
	case v&enhCtlIntEn != 0:
		// Data shift.
		switch g.phase {
		case phaseWrite:
			g.received = append(g.received, g.dtr)
		case phaseRead:
			if g.pidx < len(g.provide) {
				g.drr = g.provide[g.pidx]
				g.pidx++
			}
			g.nackedLast = v&enhCtlACK == 0
		}
		g.str = enhStaByteDoneACK
		g.pending = true
	}
}

func (g *enhancedTarget) snapshotReceived() []byte {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]byte(nil), g.received...)
}

// Rig helpers.

type legacyRig struct {
	target *legacyTarget
	irq    *fakeIRQ
	pins   *fakePins
	c      *Controller
}

func newLegacyRig(t *testing.T, mod func(*legacyTarget)) *legacyRig {
	t.Helper()
	target := newLegacyTarget()
	if mod != nil {
		mod(target)
	}
	irq := &fakeIRQ{}
	pins := &fakePins{}
	c, err := NewController(Config{
		Port:    0,
		Regs:    target,
		Pins:    pins,
		IRQ:     irq,
		Line:    9,
		SCL:     2,
		SDA:     3,
		Bitrate: 100000,
		Sleep:   func(time.Duration) {},
	})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	pump(t, irq, target.takePending)
	return &legacyRig{target: target, irq: irq, pins: pins, c: c}
}

type enhancedRig struct {
	target *enhancedTarget
	irq    *fakeIRQ
	pins   *fakePins
	c      *Controller
}

func newEnhancedRig(t *testing.T, mod func(*enhancedTarget)) *enhancedRig {
	t.Helper()
	target := newEnhancedTarget()
	if mod != nil {
		mod(target)
	}
	irq := &fakeIRQ{}
	pins := &fakePins{}
	c, err := NewController(Config{
		Port:    3,
		Regs:    target,
		Pins:    pins,
		IRQ:     irq,
		Line:    12,
		SCL:     4,
		SDA:     5,
		Bitrate: 100000,
		Sleep:   func(time.Duration) {},
	})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	pump(t, irq, target.takePending)
	return &enhancedRig{target: target, irq: irq, pins: pins, c: c}
}

// shortTimeout shrinks the completion wait for tests that exercise the
// timeout path and restores it afterwards.
func shortTimeout(t *testing.T) {
	t.Helper()
	old := transferTimeout
	transferTimeout = 20 * time.Millisecond
	t.Cleanup(func() { transferTimeout = old })
}
