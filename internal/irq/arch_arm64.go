//go:build arm64

package irq

// On ARM there is a single GSI range: both the IRQ and the GSI cursor of
// GsiAllocator start at IRQBase (GIC SPI numbering).
const (
	IRQBase = 32
	IRQMax  = 159

	gsiRangeStart = IRQBase
)
