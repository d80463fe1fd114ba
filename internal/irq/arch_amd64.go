//go:build amd64

package irq

// IRQ_BASE/IRQ_MAX for x86_64: the IO-APIC's first pins and legacy ISA IRQ
// numbers share [IRQBase, IRQMax]; GSIs for MSI routing start right after.
const (
	IRQBase = 5
	IRQMax  = 23

	gsiRangeStart = IRQMax + 1
)
