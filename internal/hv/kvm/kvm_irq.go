//go:build linux

package kvm

import (
	"fmt"
	"unsafe"

	"github.com/nanovisor/irqcore/internal/trace"
)

func irqLevel(vmFd uintptr, irqLine uint32, level bool) error {
	var lvl uint32
	if level {
		lvl = 1
	}
	req := kvmIRQLevel{IRQ: irqLine, Level: lvl}
	if _, err := ioctlWithRetry(vmFd, kvmIRQLine, uintptr(unsafe.Pointer(&req))); err != nil {
		return fmt.Errorf("kvm: KVM_IRQ_LINE: %w", err)
	}
	trace.Writef("kvm", "irq_line irq=%d level=%t", irqLine, level)
	return nil
}

// SetIRQ raises or lowers a legacy (non-irqfd) interrupt line directly,
// bypassing the routing table entirely. This is the path used for
// level-triggered PIC/IO-APIC lines driven by polled device emulation
// rather than an eventfd.
func (v *VM) SetIRQ(irqLine uint32, level bool) error {
	return irqLevel(v.fd, irqLine, level)
}
