//go:build linux

package kvm

import (
	"fmt"
	"unsafe"

	"github.com/nanovisor/irqcore/internal/irq"
	"github.com/nanovisor/irqcore/internal/trace"
)

func toWireEntry(e irq.RoutingEntry) kvmIrqRoutingEntry {
	wire := kvmIrqRoutingEntry{GSI: e.GSI, Flags: e.Flags}
	switch e.Type {
	case irq.EntryIRQChip:
		wire.Type = kvmIrqRoutingIRQChip
		wire.setIRQChip(irqChipWireID(e.Chip), e.Pin)
	case irq.EntryMSI:
		wire.Type = kvmIrqRoutingMSI
		wire.setMSI(e.AddrLo, e.AddrHi, e.Data, e.DevID)
	}
	return wire
}

func irqChipWireID(chip irq.IRQChipID) uint32 {
	switch chip {
	case irq.ChipPICMaster:
		return kvmIRQChipPICMaster
	case irq.ChipPICSlave:
		return kvmIRQChipPICSlave
	default:
		return kvmIRQChipIOAPIC
	}
}

// commitRoutingTable replaces the VM's entire GSI routing table with
// entries in a single KVM_SET_GSI_ROUTING ioctl. The kernel struct
// kvm_irq_routing has a trailing flexible array of entries right after its
// {nr,flags} header; Go has no flexible array members, so the wire buffer
// is assembled by hand as raw bytes sized for the header plus len(entries)
// fixed-size records.
func commitRoutingTable(vmFd uintptr, entries []irq.RoutingEntry) error {
	headerSize := int(unsafe.Sizeof(kvmIrqRoutingHeader{}))
	entrySize := int(unsafe.Sizeof(kvmIrqRoutingEntry{}))
	buf := make([]byte, headerSize+entrySize*len(entries))

	header := (*kvmIrqRoutingHeader)(unsafe.Pointer(&buf[0]))
	header.NR = uint32(len(entries))

	for i, e := range entries {
		wire := toWireEntry(e)
		dst := (*kvmIrqRoutingEntry)(unsafe.Pointer(&buf[headerSize+i*entrySize]))
		*dst = wire
	}

	if _, err := ioctlWithRetry(vmFd, kvmSetGsiRouting, uintptr(unsafe.Pointer(&buf[0]))); err != nil {
		return fmt.Errorf("kvm: KVM_SET_GSI_ROUTING: %w", err)
	}
	trace.Writef("kvm", "set_gsi_routing entries=%d", len(entries))
	return nil
}
