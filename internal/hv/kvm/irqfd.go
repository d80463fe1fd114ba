//go:build linux

package kvm

import (
	"fmt"
	"unsafe"

	"github.com/nanovisor/irqcore/internal/trace"
)

func registerIRQFD(vmFd uintptr, notifierFD int, gsi uint32) error {
	req := kvmIrqfd{FD: uint32(notifierFD), GSI: gsi}
	if _, err := ioctlWithRetry(vmFd, kvmIrqfdIoctl, uintptr(unsafe.Pointer(&req))); err != nil {
		return fmt.Errorf("kvm: KVM_IRQFD (assign): %w", err)
	}
	trace.Writef("kvm", "irqfd assign gsi=%d fd=%d", gsi, notifierFD)
	return nil
}

func unregisterIRQFD(vmFd uintptr, notifierFD int, gsi uint32) error {
	req := kvmIrqfd{FD: uint32(notifierFD), GSI: gsi, Flags: kvmIrqfdFlagDeassign}
	if _, err := ioctlWithRetry(vmFd, kvmIrqfdIoctl, uintptr(unsafe.Pointer(&req))); err != nil {
		return fmt.Errorf("kvm: KVM_IRQFD (deassign): %w", err)
	}
	trace.Writef("kvm", "irqfd deassign gsi=%d fd=%d", gsi, notifierFD)
	return nil
}
