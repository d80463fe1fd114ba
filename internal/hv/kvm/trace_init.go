//go:build linux

package kvm

import (
	"github.com/nanovisor/irqcore/internal/trace"
	"github.com/nanovisor/irqcore/internal/traceconfig"
)

// Init wires the ambient binary tracer according to cfg: when enabled,
// every successful routing commit, irqfd register/unregister and IRQ-line
// pulse this package issues is recorded to cfg.Path (KVM_CHECK_EXTENSION
// probes and failed ioctls are not recorded). Call it once during
// process startup, before constructing any VM. A disabled config is a
// no-op, leaving trace.Writef calls throughout this package harmless.
func Init(cfg traceconfig.Config) error {
	if !cfg.IsEnabled() {
		return nil
	}
	return trace.OpenFile(cfg.Path)
}

// InitFromFile loads the tracer config at path and wires the tracer per its
// contents. A missing or invalid file disables the tracer rather than
// failing startup, matching traceconfig.Load's own fail-open behavior.
func InitFromFile(path string) error {
	return Init(traceconfig.Load(path))
}
