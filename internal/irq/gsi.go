package irq

import "sync"

// GsiAllocator hands out GSI and IRQ numbers from two independent,
// append-only cursors. Neither cursor supports reclamation: the contract is
// append-only for the VM's lifetime.
type GsiAllocator struct {
	mu sync.Mutex

	nextIRQ uint32
	nextGSI uint32
	maxIRQ  uint32
}

// NewGsiAllocator returns an allocator whose IRQ cursor starts at IRQBase
// and fails once it would exceed maxIRQ, and whose GSI cursor starts at the
// architecture's gsiRangeStart.
func NewGsiAllocator(maxIRQ uint32) *GsiAllocator {
	return &GsiAllocator{
		nextIRQ: IRQBase,
		nextGSI: gsiRangeStart,
		maxIRQ:  maxIRQ,
	}
}

// AllocateIRQ returns the next IRQ number and advances the cursor.
func (g *GsiAllocator) AllocateIRQ() (uint32, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	irq := g.nextIRQ
	if irq > g.maxIRQ {
		return 0, ErrGsiOverflow
	}
	g.nextIRQ = irq + 1
	return irq, nil
}

// AllocateGSI returns the next GSI number and advances the cursor,
// independently of AllocateIRQ's cursor.
func (g *GsiAllocator) AllocateGSI() (uint32, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	gsi := g.nextGSI
	if gsi == ^uint32(0) {
		return 0, ErrGsiOverflow
	}
	g.nextGSI = gsi + 1
	return gsi, nil
}
