package capture

import (
	"github.com/slotbench/go-slot-capture/entities"
)

// EndpointData holds everything captured from one endpoint during a session. It is
// append only and has a single writer; readers must wait until the writer is done.
type EndpointData struct {
	endpoint       string
	updates        []entities.SlotUpdate
	accountUpdates []entities.AccountUpdate
}

func NewEndpointData(endpoint string, slotCount int, bufferFraction float64) *EndpointData {
	return &EndpointData{
		endpoint:       endpoint,
		updates:        make([]entities.SlotUpdate, 0, PlanSlotCapacity(slotCount, bufferFraction)),
		accountUpdates: make([]entities.AccountUpdate, 0, PlanAccountCapacity(slotCount)),
	}
}

func (d *EndpointData) Endpoint() string {
	return d.endpoint
}

func (d *EndpointData) RecordSlotUpdate(update entities.SlotUpdate) {
	d.updates = append(d.updates, update)
}

func (d *EndpointData) RecordAccountUpdate(update entities.AccountUpdate) {
	d.accountUpdates = append(d.accountUpdates, update)
}

// Updates returns the slot updates in arrival order. The slice is shared with the buffer
// and clipped, so appending to it reallocates instead of touching the buffer.
func (d *EndpointData) Updates() []entities.SlotUpdate {
	return d.updates[:len(d.updates):len(d.updates)]
}

// AccountUpdates returns the account updates in arrival order, shared and clipped like Updates.
func (d *EndpointData) AccountUpdates() []entities.AccountUpdate {
	return d.accountUpdates[:len(d.accountUpdates):len(d.accountUpdates)]
}

func (d *EndpointData) SlotUpdateCapacity() int {
	return cap(d.updates)
}

func (d *EndpointData) AccountUpdateCapacity() int {
	return cap(d.accountUpdates)
}

// Summary condenses the buffer for persistence. Slots are taken as observed, so first and
// last slot are the minimum and maximum seen, not the first and last appended.
func (d *EndpointData) Summary(sessionID string) entities.EndpointSummary {
	summary := entities.EndpointSummary{
		SessionID:             sessionID,
		Endpoint:              d.endpoint,
		SlotUpdates:           len(d.updates),
		AccountUpdates:        len(d.accountUpdates),
		StatusCounts:          make(map[entities.SlotStatus]int),
		SlotUpdateCapacity:    cap(d.updates),
		AccountUpdateCapacity: cap(d.accountUpdates),
	}
	for i, update := range d.updates {
		summary.StatusCounts[update.Status()]++
		if i == 0 || update.Slot() < summary.FirstSlot {
			summary.FirstSlot = update.Slot()
		}
		summary.LastSlot = max(summary.LastSlot, update.Slot())
		summary.Observe(update.SystemTime())
	}
	for _, update := range d.accountUpdates {
		summary.Observe(update.SystemTime())
	}
	return summary
}
