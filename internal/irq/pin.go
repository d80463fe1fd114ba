package irq

import "sort"

// pin 2 always cascades the slave PIC into the master and is never handed
// out by either pool.
const cascadePin = 2

// IOAPICPins is the sole source of truth for which IO-APIC pins are free,
// shared, or exclusively taken. It is not safe for concurrent use on its
// own: callers (RoutingTable) hold their own mutex around every method.
type IOAPICPins struct {
	available []uint32 // sorted ascending
	shared    []uint32 // FIFO, oldest (first assigned) at index 0
}

// NewIOAPICPins returns a pool with every valid pin in {1..IRQMax}\{2}
// available.
func NewIOAPICPins() *IOAPICPins {
	p := &IOAPICPins{}
	for i := uint32(1); i <= IRQMax; i++ {
		if i == cascadePin {
			continue
		}
		p.available = append(p.available, i)
	}
	return p
}

func (p *IOAPICPins) findAvailable(pin uint32) (int, bool) {
	i := sort.Search(len(p.available), func(i int) bool { return p.available[i] >= pin })
	if i < len(p.available) && p.available[i] == pin {
		return i, true
	}
	return 0, false
}

func (p *IOAPICPins) removeAvailableAt(i int) uint32 {
	pin := p.available[i]
	p.available = append(p.available[:i], p.available[i+1:]...)
	return pin
}

func (p *IOAPICPins) findShared(pin uint32) int {
	for i, sp := range p.shared {
		if sp == pin {
			return i
		}
	}
	return -1
}

// AllocatePin selects a pin per the priority described for IO-APIC
// allocation: an explicit request is honored from available or, if shared,
// from the shared list (moved to the tail); otherwise the lowest available
// pin is taken, falling back to LRU reuse of the shared list when the pool
// is exhausted and shared is true.
func (p *IOAPICPins) AllocatePin(shared bool, requested *uint32) (uint32, bool) {
	if requested != nil {
		rp := *requested
		if i, ok := p.findAvailable(rp); ok {
			p.removeAvailableAt(i)
			if shared {
				p.shared = append(p.shared, rp)
			}
			return rp, true
		}
		if shared {
			if i := p.findShared(rp); i >= 0 {
				p.shared = append(p.shared[:i], p.shared[i+1:]...)
				p.shared = append(p.shared, rp)
				return rp, true
			}
		}
		return 0, false
	}

	if len(p.available) > 0 {
		pin := p.removeAvailableAt(0)
		if shared {
			p.shared = append(p.shared, pin)
		}
		return pin, true
	}

	if shared && len(p.shared) > 0 {
		pin := p.shared[0]
		p.shared = append(p.shared[1:], pin)
		return pin, true
	}

	return 0, false
}

// PICPins is the exclusive-only pin pool for the chained 8259 pair.
type PICPins struct {
	available []uint32 // sorted ascending
}

// NewPICPins returns a pool with every valid pin in {1..15}\{2} available.
func NewPICPins() *PICPins {
	p := &PICPins{}
	for i := uint32(1); i <= 15; i++ {
		if i == cascadePin {
			continue
		}
		p.available = append(p.available, i)
	}
	return p
}

func (p *PICPins) findAvailable(pin uint32) (int, bool) {
	i := sort.Search(len(p.available), func(i int) bool { return p.available[i] >= pin })
	if i < len(p.available) && p.available[i] == pin {
		return i, true
	}
	return 0, false
}

// AllocatePin returns the requested pin if it's available, or the lowest
// available pin if requested is nil. Allocations are always exclusive.
func (p *PICPins) AllocatePin(requested *uint32) (uint32, bool) {
	if requested != nil {
		if i, ok := p.findAvailable(*requested); ok {
			pin := p.available[i]
			p.available = append(p.available[:i], p.available[i+1:]...)
			return pin, true
		}
		return 0, false
	}

	if len(p.available) == 0 {
		return 0, false
	}
	pin := p.available[0]
	p.available = p.available[1:]
	return pin, true
}
