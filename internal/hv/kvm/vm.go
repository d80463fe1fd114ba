//go:build linux

package kvm

import (
	"fmt"

	"github.com/nanovisor/irqcore/internal/irq"
)

// VM is the minimal KVM handle the interrupt core needs: a VM fd to issue
// per-VM ioctls (KVM_SET_GSI_ROUTING, KVM_IRQFD, KVM_IRQ_LINE) against, and
// the owning system fd to query extensions on.
type VM struct {
	fd       uintptr
	systemFd uintptr
}

var _ irq.Hypervisor = (*VM)(nil)

// NewVM wraps an already-opened KVM system fd (/dev/kvm) and VM fd
// (KVM_CREATE_VM's result) for interrupt routing use.
func NewVM(systemFd, vmFd uintptr) *VM {
	return &VM{fd: vmFd, systemFd: systemFd}
}

func checkExtension(systemFd uintptr, extension uintptr) (bool, error) {
	v, err := ioctlWithRetry(systemFd, kvmCheckExtension, extension)
	if err != nil {
		return false, fmt.Errorf("kvm: KVM_CHECK_EXTENSION: %w", err)
	}
	return v > 0, nil
}

// CommitRoutingTable implements irq.Hypervisor.
func (v *VM) CommitRoutingTable(entries []irq.RoutingEntry) error {
	ok, err := checkExtension(v.systemFd, kvmCapIrqRouting)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("kvm: KVM_CAP_IRQ_ROUTING not supported by this kernel")
	}
	if len(entries) > irq.MaxRoutes {
		return fmt.Errorf("kvm: routing table would exceed %d entries", irq.MaxRoutes)
	}
	return commitRoutingTable(v.fd, entries)
}

// RegisterIRQFD implements irq.Hypervisor.
func (v *VM) RegisterIRQFD(fd int, gsi uint32) error {
	return registerIRQFD(v.fd, fd, gsi)
}

// UnregisterIRQFD implements irq.Hypervisor.
func (v *VM) UnregisterIRQFD(fd int, gsi uint32) error {
	return unregisterIRQFD(v.fd, fd, gsi)
}
