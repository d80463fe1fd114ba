//go:build linux

package irq

// InterruptManager is the entry point for a VM's interrupt subsystem: it
// owns the GSI allocator and routing table, and mints interrupt groups for
// individual devices.
type InterruptManager struct {
	allocator *GsiAllocator
	table     *RoutingTable
	vm        Hypervisor
}

// NewInterruptManager builds an InterruptManager over vm, with a fresh
// routing table committed to the hypervisor and a GSI allocator bounded by
// maxIRQ.
func NewInterruptManager(vm Hypervisor, maxIRQ uint32) (*InterruptManager, error) {
	table, err := NewRoutingTable(vm)
	if err != nil {
		return nil, err
	}
	return &InterruptManager{
		allocator: NewGsiAllocator(maxIRQ),
		table:     table,
		vm:        vm,
	}, nil
}

// NewMsiGroup returns a fresh, empty MSI interrupt group bound to this
// manager's allocator and routing table.
func (m *InterruptManager) NewMsiGroup() *MsiInterruptGroup {
	return newMsiInterruptGroup(m.allocator, m.table, m.vm)
}

// NewLegacyGroup returns a fresh, empty legacy interrupt group bound to this
// manager's allocator and routing table.
func (m *InterruptManager) NewLegacyGroup() *LegacyInterruptGroup {
	return newLegacyInterruptGroup(m.allocator, m.table, m.vm)
}

// RoutingTable exposes the manager's underlying routing table for callers
// that need direct Add/Modify/Remove access (e.g. snapshot restore).
func (m *InterruptManager) RoutingTable() *RoutingTable { return m.table }
