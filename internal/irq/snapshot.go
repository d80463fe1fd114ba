//go:build linux

package irq

// RoutingTableSnapshot captures the MSI subset of a RoutingTable's entries.
// IRQCHIP entries are not snapshotted: they are rebuilt from device state
// (via RouteIntx/RouteGeneric) during restore, the same way the live VM
// rebuilds them on cold boot.
type RoutingTableSnapshot struct {
	MSIRoutes []RoutingEntry
}

// Snapshot captures the table's current MSI routes.
func (t *RoutingTable) Snapshot() RoutingTableSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	var snap RoutingTableSnapshot
	for _, e := range t.routes {
		if e.Type == EntryMSI {
			snap.MSIRoutes = append(snap.MSIRoutes, e)
		}
	}
	return snap
}

// Restore re-adds every MSI route captured in snap.
func (t *RoutingTable) Restore(snap RoutingTableSnapshot) error {
	for _, e := range snap.MSIRoutes {
		if err := t.Add(e); err != nil {
			return err
		}
	}
	return nil
}

// InterruptSnapshot captures one interrupt's GSI and lifecycle bits,
// without its type-specific configuration (callers snapshot MsiConfig /
// LegacyConfig alongside this via GetConfig).
type InterruptSnapshot struct {
	GSI        uint32
	Configured bool
	Registered bool
}

// Snapshot captures the interrupt's lifecycle state.
func (i *MsiInterrupt) Snapshot() InterruptSnapshot {
	return InterruptSnapshot{
		GSI:        i.core.gsi,
		Configured: i.core.configured.Load(),
		Registered: i.core.registered.Load(),
	}
}

// Restore reapplies cfg and, if snap.Registered, re-enables the interrupt.
func (i *MsiInterrupt) Restore(snap InterruptSnapshot, cfg MsiConfig) error {
	if snap.Configured {
		if err := i.Update(cfg); err != nil {
			return err
		}
	}
	if snap.Registered {
		return i.Enable()
	}
	return nil
}

// Snapshot captures the interrupt's lifecycle state.
func (i *LegacyInterrupt) Snapshot() InterruptSnapshot {
	return InterruptSnapshot{
		GSI:        i.core.gsi,
		Configured: i.core.configured.Load(),
		Registered: i.core.registered.Load(),
	}
}

// Restore reapplies cfg and, if snap.Registered, re-enables the interrupt.
func (i *LegacyInterrupt) Restore(snap InterruptSnapshot, cfg LegacyConfig) error {
	if snap.Configured {
		if err := i.Update(cfg); err != nil {
			return err
		}
	}
	if snap.Registered {
		return i.Enable()
	}
	return nil
}
