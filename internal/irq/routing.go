package irq

import (
	"log/slog"
	"sync"

	"golang.org/x/sys/unix"
)

// EntryType tags a RoutingEntry's variant, matching the kernel's
// KVM_IRQ_ROUTING_* constants.
type EntryType uint32

const (
	EntryIRQChip EntryType = 1
	EntryMSI     EntryType = 2
)

// IRQChipID names a concrete chip for IRQCHIP-type entries, matching the
// kernel's KVM_IRQCHIP_* constants.
type IRQChipID uint32

const (
	ChipPICMaster IRQChipID = 0
	ChipPICSlave  IRQChipID = 1
	ChipIOAPIC    IRQChipID = 2
)

// MSIValidDevID mirrors KVM_MSI_VALID_DEVID: set on every MSI entry this
// table builds, since DevID is always populated by RouteMSI's caller.
const MSIValidDevID = 1 << 0

// MaxRoutes bounds the routing table's cardinality, matching the kernel's
// own KVM_MAX_IRQ_ROUTES for a default-sized IRQ chip.
const MaxRoutes = 4096

// RoutingEntry is a tagged record: IRQCHIP entries carry {Chip, Pin}, MSI
// entries carry {AddrHi, AddrLo, Data, DevID}. Every entry carries its
// owning GSI.
type RoutingEntry struct {
	GSI   uint32
	Type  EntryType
	Flags uint32

	Chip IRQChipID
	Pin  uint32

	AddrHi uint32
	AddrLo uint32
	Data   uint32
	DevID  uint32
}

// routeKey computes the composite hash spec'd for RoutingEntry: the chip id
// only contributes for IRQCHIP entries, which is why the same GSI can
// legitimately appear twice (once per chip) without colliding.
func routeKey(e RoutingEntry) uint64 {
	var chip uint64
	if e.Type == EntryIRQChip {
		chip = uint64(e.Chip)
	}
	return chip<<48 | uint64(e.Type)<<32 | uint64(e.GSI)
}

// Hypervisor is the narrow opaque VM handle this package requires: commit a
// full routing table, and register/unregister a notifier fd against a GSI.
type Hypervisor interface {
	CommitRoutingTable(entries []RoutingEntry) error
	RegisterIRQFD(fd int, gsi uint32) error
	UnregisterIRQFD(fd int, gsi uint32) error
}

// RoutingTable is an in-memory RouteKey -> RoutingEntry map kept coherent
// with the hypervisor after every mutation via commit-or-rollback. It also
// owns the two pin pools IRQCHIP entries draw from.
type RoutingTable struct {
	mu sync.Mutex

	vm     Hypervisor
	routes map[uint64]RoutingEntry
	ioapic *IOAPICPins
	pic    *PICPins
}

// NewRoutingTable creates an empty table and immediately commits the empty
// set to the hypervisor, resetting any stale state.
func NewRoutingTable(vm Hypervisor) (*RoutingTable, error) {
	t := &RoutingTable{
		vm:     vm,
		routes: make(map[uint64]RoutingEntry),
		ioapic: NewIOAPICPins(),
		pic:    NewPICPins(),
	}
	if err := t.commitLocked(); err != nil {
		return nil, &GsiRoutingError{Op: "new", Err: err}
	}
	return t, nil
}

func (t *RoutingTable) commitLocked() error {
	entries := make([]RoutingEntry, 0, len(t.routes))
	for _, e := range t.routes {
		entries = append(entries, e)
	}
	return t.vm.CommitRoutingTable(entries)
}

// RouteMSI builds an MSI entry, upserts it (replacing any prior entry at the
// same key), and commits. On commit failure the key is removed and
// GsiRoutingError is returned.
func (t *RoutingTable) RouteMSI(gsi, addrHi, addrLo, data, devid uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry := RoutingEntry{
		GSI:    gsi,
		Type:   EntryMSI,
		Flags:  MSIValidDevID,
		AddrHi: addrHi,
		AddrLo: addrLo,
		Data:   data,
		DevID:  devid,
	}
	key := routeKey(entry)
	t.routes[key] = entry

	if err := t.commitLocked(); err != nil {
		delete(t.routes, key)
		return &GsiRoutingError{Op: "route_msi", Err: err}
	}
	return nil
}

// RouteIntx allocates a shareable IO-APIC pin for a PCI INTx-style
// interrupt, builds the IRQCHIP entry, upserts, and commits. intxPin
// identifies the PCI interrupt pin (A-D); it plays no part in the
// allocation, only in caller-side bookkeeping.
//
// On commit failure the key is removed, but the allocated pin is not
// released: pins are reclaimed only at VM teardown (see DESIGN.md).
func (t *RoutingTable) RouteIntx(gsi uint32, intxPin uint8, requestedPin *uint32) (uint32, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pin, ok := t.ioapic.AllocatePin(true, requestedPin)
	if !ok {
		return 0, ErrPinAllocation
	}

	entry := RoutingEntry{GSI: gsi, Type: EntryIRQChip, Chip: ChipIOAPIC, Pin: pin}
	key := routeKey(entry)
	t.routes[key] = entry

	if err := t.commitLocked(); err != nil {
		delete(t.routes, key)
		return 0, &GsiRoutingError{Op: "route_intx", Err: err}
	}
	return pin, nil
}

// RouteGeneric is the canonical legacy-routing algorithm: it attempts a PIC
// installation, then an IO-APIC installation, and reports success if either
// succeeds, preferring the PIC line as the reported interrupt line so guests
// booted with noapic keep working.
func (t *RoutingTable) RouteGeneric(gsi uint32, requestedPin *uint32) (uint32, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var picLine *uint32
	ioapicRequest := requestedPin

	if picPin, ok := t.pic.AllocatePin(requestedPin); ok {
		chip, pin := ChipPICMaster, picPin
		if picPin > 7 {
			chip, pin = ChipPICSlave, picPin-8
		}
		entry := RoutingEntry{GSI: gsi, Type: EntryIRQChip, Chip: chip, Pin: pin}
		key := routeKey(entry)
		t.routes[key] = entry

		if err := t.commitLocked(); err != nil {
			delete(t.routes, key)
			slog.Warn("route_generic: pic commit failed, continuing to io-apic", "gsi", gsi, "error", err)
		} else {
			upgraded := picPin
			picLine = &upgraded
			ioapicRequest = &upgraded
		}
	}

	ioapicPin, ioapicOK := t.ioapic.AllocatePin(false, ioapicRequest)
	if ioapicOK {
		entry := RoutingEntry{GSI: gsi, Type: EntryIRQChip, Chip: ChipIOAPIC, Pin: ioapicPin}
		key := routeKey(entry)
		t.routes[key] = entry

		if err := t.commitLocked(); err != nil {
			delete(t.routes, key)
			if picLine != nil {
				// The PIC route already committed and is live at the
				// hypervisor; a failing IO-APIC half downgrades to a
				// partial success rather than an error.
				return *picLine, nil
			}
			return 0, &GsiRoutingError{Op: "route_generic", Err: err}
		}
	}

	if picLine != nil {
		return *picLine, nil
	}
	if ioapicOK {
		return ioapicPin, nil
	}
	return 0, ErrPinAllocation
}

// Add inserts entry under its key and commits. It refuses if the key
// already exists or the table is at MaxRoutes.
func (t *RoutingTable) Add(entry RoutingEntry) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := routeKey(entry)
	if _, exists := t.routes[key]; exists || len(t.routes) >= MaxRoutes {
		return unix.EINVAL
	}
	t.routes[key] = entry

	if err := t.commitLocked(); err != nil {
		delete(t.routes, key)
		return &GsiRoutingError{Op: "add", Err: err}
	}
	return nil
}

// Modify overwrites the entry at entry's key and commits. It refuses if the
// key is absent.
func (t *RoutingTable) Modify(entry RoutingEntry) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := routeKey(entry)
	prev, exists := t.routes[key]
	if !exists {
		return unix.ENOENT
	}
	t.routes[key] = entry

	if err := t.commitLocked(); err != nil {
		t.routes[key] = prev
		return &GsiRoutingError{Op: "modify", Err: err}
	}
	return nil
}

// Remove deletes each of entries' keys (missing keys are silently ignored)
// and commits once at the end.
func (t *RoutingTable) Remove(entries []RoutingEntry) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := make(map[uint64]RoutingEntry, len(entries))
	for _, e := range entries {
		key := routeKey(e)
		if prev, ok := t.routes[key]; ok {
			removed[key] = prev
			delete(t.routes, key)
		}
	}

	if err := t.commitLocked(); err != nil {
		for k, v := range removed {
			t.routes[k] = v
		}
		return &GsiRoutingError{Op: "remove", Err: err}
	}
	return nil
}

// Len reports the table's current cardinality.
func (t *RoutingTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.routes)
}
