//go:build linux

package irq

// MsiInterruptGroup owns a contiguous block of MSI interrupts allocated
// together, e.g. for a single PCI device's MSI-X table.
type MsiInterruptGroup struct {
	allocator *GsiAllocator
	table     *RoutingTable
	vm        Hypervisor

	interrupts []*MsiInterrupt
}

func newMsiInterruptGroup(allocator *GsiAllocator, table *RoutingTable, vm Hypervisor) *MsiInterruptGroup {
	return &MsiInterruptGroup{allocator: allocator, table: table, vm: vm}
}

// Len returns the number of interrupts currently in the group.
func (g *MsiInterruptGroup) Len() int { return len(g.interrupts) }

// IsEmpty reports whether the group holds no interrupts.
func (g *MsiInterruptGroup) IsEmpty() bool { return len(g.interrupts) == 0 }

// Get returns the i'th interrupt in the group. It panics if i is out of
// range, matching plain slice indexing semantics.
func (g *MsiInterruptGroup) Get(i int) *MsiInterrupt { return g.interrupts[i] }

// AllocateInterrupts appends n freshly GSI-allocated MSI interrupts to the
// group. Allocation is best-effort: if the GsiAllocator is exhausted partway
// through, the interrupts allocated so far remain in the group and the
// error is returned.
func (g *MsiInterruptGroup) AllocateInterrupts(n int) error {
	for i := 0; i < n; i++ {
		gsi, err := g.allocator.AllocateGSI()
		if err != nil {
			return err
		}
		intr, err := newMsiInterrupt(gsi, g.vm, g.table)
		if err != nil {
			return err
		}
		g.interrupts = append(g.interrupts, intr)
	}
	return nil
}

// Enable enables every interrupt in the group, stopping at the first
// failure.
func (g *MsiInterruptGroup) Enable() error {
	for _, intr := range g.interrupts {
		if err := intr.Enable(); err != nil {
			return err
		}
	}
	return nil
}

// Disable disables every interrupt in the group, stopping at the first
// failure.
func (g *MsiInterruptGroup) Disable() error {
	for _, intr := range g.interrupts {
		if err := intr.Disable(); err != nil {
			return err
		}
	}
	return nil
}

// FreeInterrupts is a no-op: GSI numbers are never reclaimed within a VM's
// lifetime (see GsiAllocator).
func (g *MsiInterruptGroup) FreeInterrupts() error { return nil }

// LegacyInterruptGroup owns a block of legacy (PIC/IO-APIC) interrupts,
// e.g. the four INTx lines of a PCI device.
type LegacyInterruptGroup struct {
	allocator *GsiAllocator
	table     *RoutingTable
	vm        Hypervisor

	interrupts []*LegacyInterrupt
}

func newLegacyInterruptGroup(allocator *GsiAllocator, table *RoutingTable, vm Hypervisor) *LegacyInterruptGroup {
	return &LegacyInterruptGroup{allocator: allocator, table: table, vm: vm}
}

// Len returns the number of interrupts currently in the group.
func (g *LegacyInterruptGroup) Len() int { return len(g.interrupts) }

// IsEmpty reports whether the group holds no interrupts.
func (g *LegacyInterruptGroup) IsEmpty() bool { return len(g.interrupts) == 0 }

// Get returns the i'th interrupt in the group. It panics if i is out of
// range, matching plain slice indexing semantics.
func (g *LegacyInterruptGroup) Get(i int) *LegacyInterrupt { return g.interrupts[i] }

// AllocateInterrupts appends n freshly GSI-allocated legacy interrupts to
// the group, best-effort as in MsiInterruptGroup.
func (g *LegacyInterruptGroup) AllocateInterrupts(n int) error {
	for i := 0; i < n; i++ {
		gsi, err := g.allocator.AllocateGSI()
		if err != nil {
			return err
		}
		intr, err := newLegacyInterrupt(gsi, g.vm, g.table)
		if err != nil {
			return err
		}
		g.interrupts = append(g.interrupts, intr)
	}
	return nil
}

// Enable enables every interrupt in the group, stopping at the first
// failure.
func (g *LegacyInterruptGroup) Enable() error {
	for _, intr := range g.interrupts {
		if err := intr.Enable(); err != nil {
			return err
		}
	}
	return nil
}

// Disable disables every interrupt in the group, stopping at the first
// failure.
func (g *LegacyInterruptGroup) Disable() error {
	for _, intr := range g.interrupts {
		if err := intr.Disable(); err != nil {
			return err
		}
	}
	return nil
}

// FreeInterrupts is a no-op: GSI numbers are never reclaimed within a VM's
// lifetime.
func (g *LegacyInterruptGroup) FreeInterrupts() error { return nil }
