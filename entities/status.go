package entities

import (
	"github.com/pkg/errors"
)

// SlotStatus is a lifecycle state of a slot as reported by an endpoint.
type SlotStatus uint8

const (
	SlotStatusFirstShredReceived SlotStatus = iota
	SlotStatusCompleted
	SlotStatusCreatedBank
	SlotStatusProcessed
	SlotStatusConfirmed
	SlotStatusFinalized
	SlotStatusDead
)

// ExpectedStatusesPerSlot is the number of statuses a healthy slot passes through (all but dead).
const ExpectedStatusesPerSlot = 6

var slotStatusNames = [...]string{
	SlotStatusFirstShredReceived: "first_shred_received",
	SlotStatusCompleted:          "completed",
	SlotStatusCreatedBank:        "created_bank",
	SlotStatusProcessed:          "processed",
	SlotStatusConfirmed:          "confirmed",
	SlotStatusFinalized:          "finalized",
	SlotStatusDead:               "dead",
}

// statusByCode maps the raw provider codes. The index is the code.
var statusByCode = [...]SlotStatus{
	0: SlotStatusProcessed,
	1: SlotStatusConfirmed,
	2: SlotStatusFinalized,
	3: SlotStatusFirstShredReceived,
	4: SlotStatusCompleted,
	5: SlotStatusCreatedBank,
	6: SlotStatusDead,
}

// StatusFromCode normalizes a raw provider status code. Codes outside the known table
// are reported as dead so that they are never mistaken for progress.
func StatusFromCode(code int32) SlotStatus {
	if !IsKnownStatusCode(code) {
		return SlotStatusDead
	}
	return statusByCode[code]
}

// IsKnownStatusCode reports whether the code is part of the provider status table.
func IsKnownStatusCode(code int32) bool {
	return code >= 0 && int(code) < len(statusByCode)
}

func (s SlotStatus) String() string {
	if int(s) < len(slotStatusNames) {
		return slotStatusNames[s]
	}
	return "unknown"
}

func (s SlotStatus) MarshalText() ([]byte, error) {
	if int(s) >= len(slotStatusNames) {
		return nil, errors.Errorf("invalid slot status [%d]", uint8(s))
	}
	return []byte(slotStatusNames[s]), nil
}

func (s *SlotStatus) UnmarshalText(text []byte) error {
	status, err := ParseSlotStatus(string(text))
	if err != nil {
		return err
	}
	*s = status
	return nil
}

// ParseSlotStatus parses the snake_case name of a status.
func ParseSlotStatus(name string) (SlotStatus, error) {
	for i, n := range slotStatusNames {
		if n == name {
			return SlotStatus(i), nil
		}
	}
	return SlotStatusDead, errors.Errorf("unknown slot status [%s]", name)
}
