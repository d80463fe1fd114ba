//go:build linux

package irq

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// MsiConfig is the wire configuration of a single MSI vector.
type MsiConfig struct {
	AddrHi uint32
	AddrLo uint32
	Data   uint32
	DevID  uint32
}

// LegacyConfig is the wire configuration of a single legacy (PIC/IO-APIC)
// interrupt line. Pin is set only for PCI INTx-style routing (RouteIntx);
// when nil, RouteGeneric governs and Line is populated from its return
// value.
type LegacyConfig struct {
	Line *uint32
	Pin  *uint32
}

// interruptCore is the state shared by MsiInterrupt and LegacyInterrupt: an
// eventfd notifier plus the registered/configured lifecycle bits. Mirrors
// the kernel-facing half of both concrete interrupt types.
type interruptCore struct {
	gsi        uint32
	notifierFD int
	vm         Hypervisor
	table      *RoutingTable

	registered atomic.Bool
	configured atomic.Bool
}

func newInterruptCore(gsi uint32, vm Hypervisor, table *RoutingTable) (*interruptCore, error) {
	fd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &interruptCore{gsi: gsi, notifierFD: fd, vm: vm, table: table}, nil
}

// trigger signals the guest by writing to the eventfd backing this
// interrupt's notifier.
func (c *interruptCore) trigger() error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	if _, err := unix.Write(c.notifierFD, buf[:]); err != nil {
		return ErrInterruptNotTriggered
	}
	return nil
}

// notifierClone returns a dup'd copy of the notifier fd, suitable for
// handing to an irqfd registration that outlives this Go value's own fd.
func (c *interruptCore) notifierClone() (int, error) {
	return unix.Dup(c.notifierFD)
}

func (c *interruptCore) registerIRQFD() error {
	if c.registered.Load() {
		return nil
	}
	if err := c.vm.RegisterIRQFD(c.notifierFD, c.gsi); err != nil {
		return err
	}
	c.registered.Store(true)
	return nil
}

func (c *interruptCore) unregisterIRQFD() error {
	if !c.registered.Load() {
		return nil
	}
	if err := c.vm.UnregisterIRQFD(c.notifierFD, c.gsi); err != nil {
		return err
	}
	c.registered.Store(false)
	return nil
}

// MsiInterrupt is a single MSI/MSI-X vector bound to one GSI.
type MsiInterrupt struct {
	core *interruptCore

	mu     sync.Mutex
	config *MsiConfig
}

func newMsiInterrupt(gsi uint32, vm Hypervisor, table *RoutingTable) (*MsiInterrupt, error) {
	core, err := newInterruptCore(gsi, vm, table)
	if err != nil {
		return nil, err
	}
	return &MsiInterrupt{core: core}, nil
}

// GSI returns the interrupt's assigned global system interrupt number.
func (i *MsiInterrupt) GSI() uint32 { return i.core.gsi }

// Trigger asserts the interrupt once.
func (i *MsiInterrupt) Trigger() error { return i.core.trigger() }

// Notifier returns a dup'd fd the caller may hand to another subsystem
// (e.g. vhost) without affecting this interrupt's own fd lifetime.
func (i *MsiInterrupt) Notifier() (int, error) { return i.core.notifierClone() }

// Update installs a new MSI configuration by routing it through RouteMSI.
// It is rejected with ErrInvalidConfiguration while the interrupt is
// registered (after Enable and before Disable).
func (i *MsiInterrupt) Update(cfg MsiConfig) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.core.registered.Load() {
		return ErrInvalidConfiguration
	}
	if err := i.core.table.RouteMSI(i.core.gsi, cfg.AddrHi, cfg.AddrLo, cfg.Data, cfg.DevID); err != nil {
		return err
	}
	cfg2 := cfg
	i.config = &cfg2
	i.core.configured.Store(true)
	return nil
}

// Enable (Unmask) registers the interrupt's notifier fd with the
// hypervisor's irqfd mechanism.
func (i *MsiInterrupt) Enable() error {
	if err := i.core.registerIRQFD(); err != nil {
		return ErrInterruptNotChanged
	}
	return nil
}

// Disable (Mask) unregisters the interrupt's notifier fd.
func (i *MsiInterrupt) Disable() error {
	if err := i.core.unregisterIRQFD(); err != nil {
		return ErrInterruptNotChanged
	}
	return nil
}

// Mask is an alias for Disable, named for parity with the MSI-X mask bit.
func (i *MsiInterrupt) Mask() error { return i.Disable() }

// Unmask is an alias for Enable.
func (i *MsiInterrupt) Unmask() error { return i.Enable() }

// GetConfig returns the currently installed configuration, if any.
func (i *MsiInterrupt) GetConfig() (MsiConfig, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.config == nil {
		return MsiConfig{}, ErrInvalidConfiguration
	}
	return *i.config, nil
}

// LegacyInterrupt is a single PIC/IO-APIC routed interrupt (ISA or PCI
// INTx-style) bound to one GSI.
type LegacyInterrupt struct {
	core *interruptCore

	mu     sync.Mutex
	config *LegacyConfig
}

func newLegacyInterrupt(gsi uint32, vm Hypervisor, table *RoutingTable) (*LegacyInterrupt, error) {
	core, err := newInterruptCore(gsi, vm, table)
	if err != nil {
		return nil, err
	}
	return &LegacyInterrupt{core: core}, nil
}

// GSI returns the interrupt's assigned global system interrupt number.
func (i *LegacyInterrupt) GSI() uint32 { return i.core.gsi }

// Trigger asserts the interrupt once.
func (i *LegacyInterrupt) Trigger() error { return i.core.trigger() }

// Notifier returns a dup'd fd the caller may hand to another subsystem.
func (i *LegacyInterrupt) Notifier() (int, error) { return i.core.notifierClone() }

// Update installs a new legacy routing. When cfg.Pin is set this is a PCI
// INTx-style route (RouteIntx); otherwise it is a general legacy line
// (RouteGeneric), and the resulting interrupt line replaces cfg.Line in the
// stored configuration.
func (i *LegacyInterrupt) Update(cfg LegacyConfig) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if cfg.Pin != nil {
		if _, err := i.core.table.RouteIntx(i.core.gsi, uint8(*cfg.Pin), cfg.Line); err != nil {
			return err
		}
		stored := cfg
		i.config = &stored
	} else {
		line, err := i.core.table.RouteGeneric(i.core.gsi, cfg.Line)
		if err != nil {
			return err
		}
		i.config = &LegacyConfig{Line: &line}
	}
	i.core.configured.Store(true)
	return nil
}

// Enable registers the interrupt's notifier fd. Unlike MSI, this is refused
// if the interrupt was never configured with Update.
func (i *LegacyInterrupt) Enable() error {
	if !i.core.configured.Load() {
		return ErrInterruptNotChanged
	}
	if err := i.core.registerIRQFD(); err != nil {
		return ErrInterruptNotChanged
	}
	return nil
}

// Disable unregisters the interrupt's notifier fd.
func (i *LegacyInterrupt) Disable() error {
	if err := i.core.unregisterIRQFD(); err != nil {
		return ErrInterruptNotChanged
	}
	return nil
}

// GetConfig returns the currently installed configuration, if any.
func (i *LegacyInterrupt) GetConfig() (LegacyConfig, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.config == nil {
		return LegacyConfig{}, ErrInvalidConfiguration
	}
	return *i.config, nil
}
