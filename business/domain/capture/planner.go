package capture

import (
	"math"

	"github.com/slotbench/go-slot-capture/entities"
)

const (
	accountUpdatesPerSlot      = 100
	maxAccountUpdateCapacity   = 1_000_000
	maxSlotCountBeforeOverflow = math.MaxInt / entities.ExpectedStatusesPerSlot
)

// PlanSlotCapacity returns the initial capacity for the slot update buffer:
// floor(slotCount * (1 + bufferFraction)) * 6. The result saturates at the largest
// multiple of 6 an int holds; a hint that large cannot be allocated and NewEndpointData
// fails with the runtime's fatal allocation error.
func PlanSlotCapacity(slotCount int, bufferFraction float64) int {
	if slotCount <= 0 {
		return 0
	}
	if bufferFraction < 0 || math.IsNaN(bufferFraction) {
		bufferFraction = 0
	}
	slots := math.Floor(float64(slotCount) * (1 + bufferFraction))
	if slots >= maxSlotCountBeforeOverflow {
		return maxSlotCountBeforeOverflow * entities.ExpectedStatusesPerSlot
	}
	return int(slots) * entities.ExpectedStatusesPerSlot
}

// PlanAccountCapacity returns the initial capacity for the account update buffer. The
// volume per slot depends on the workload, so the hint is capped and any excess is left
// to regular slice growth.
func PlanAccountCapacity(slotCount int) int {
	if slotCount <= 0 {
		return 0
	}
	if slotCount >= maxAccountUpdateCapacity/accountUpdatesPerSlot {
		return maxAccountUpdateCapacity
	}
	return slotCount * accountUpdatesPerSlot
}
