//go:build linux

package kvm

import "encoding/binary"

// Routing entry type and irqchip tags from the kernel's public KVM ABI
// (uapi/linux/kvm.h): KVM_IRQ_ROUTING_IRQCHIP/MSI and KVM_IRQCHIP_*.
const (
	kvmIrqRoutingIRQChip = 1
	kvmIrqRoutingMSI     = 2

	kvmIRQChipPICMaster = 0
	kvmIRQChipPICSlave  = 1
	kvmIRQChipIOAPIC    = 2

	kvmMSIValidDevID = 1 << 0

	kvmIrqfdFlagDeassign = 1 << 0
)

// kvmIrqRoutingEntry mirrors struct kvm_irq_routing_entry: a fixed
// {gsi,type,flags,pad} header followed by a 32-byte union (the kernel pads
// it to eight u32s). Only the irqchip and msi variants of that union are
// populated here.
type kvmIrqRoutingEntry struct {
	GSI   uint32
	Type  uint32
	Flags uint32
	pad   uint32
	u     [32]byte
}

func (e *kvmIrqRoutingEntry) setIRQChip(chip, pin uint32) {
	binary.LittleEndian.PutUint32(e.u[0:4], chip)
	binary.LittleEndian.PutUint32(e.u[4:8], pin)
}

func (e *kvmIrqRoutingEntry) setMSI(addrLo, addrHi, data, devid uint32) {
	binary.LittleEndian.PutUint32(e.u[0:4], addrLo)
	binary.LittleEndian.PutUint32(e.u[4:8], addrHi)
	binary.LittleEndian.PutUint32(e.u[8:12], data)
	binary.LittleEndian.PutUint32(e.u[12:16], devid)
}

// kvmIrqRoutingHeader mirrors struct kvm_irq_routing's {nr,flags} prefix.
// The kernel struct declares a trailing flexible array of entries right
// after it; the wire buffer is built by hand in commitRoutingTable rather
// than via this type directly, since Go has no flexible array members.
type kvmIrqRoutingHeader struct {
	NR    uint32
	Flags uint32
}

// kvmIRQLevel mirrors struct kvm_irq_level.
type kvmIRQLevel struct {
	IRQ   uint32
	Level uint32
}

// kvmIrqfd mirrors struct kvm_irqfd.
type kvmIrqfd struct {
	FD         uint32
	GSI        uint32
	Flags      uint32
	ResampleFD uint32
	Pad        [16]byte
}
