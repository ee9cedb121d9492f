package entities

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// RawSlotEvent is a slot notification as delivered by an endpoint, status not yet normalized.
type RawSlotEvent struct {
	Slot   uint64
	Status int32
}

type RawAccountEvent struct {
	Slot         uint64
	Pubkey       solana.PublicKey
	WriteVersion uint64
	TxSignature  solana.Signature
}

// RawEvent carries exactly one of the two payloads.
type RawEvent struct {
	Slot    *RawSlotEvent
	Account *RawAccountEvent
}

// ReceivedEvent is a raw event plus the clock reading taken by the transport when it arrived.
// RelayedAt is the upstream relay's own timestamp, zero if the transport has none.
type ReceivedEvent struct {
	Event      RawEvent
	ReceivedAt time.Time
	RelayedAt  time.Time
}

// EndpointSummary condenses one endpoint buffer of a capture session.
type EndpointSummary struct {
	SessionID             string             `json:"sessionId"`
	Endpoint              string             `json:"endpoint"`
	SlotUpdates           int                `json:"slotUpdates"`
	AccountUpdates        int                `json:"accountUpdates"`
	StatusCounts          map[SlotStatus]int `json:"statusCounts"`
	FirstSlot             uint64             `json:"firstSlot"`
	LastSlot              uint64             `json:"lastSlot"`
	FirstSeen             time.Time          `json:"firstSeen"`
	LastSeen              time.Time          `json:"lastSeen"`
	SlotUpdateCapacity    int                `json:"slotUpdateCapacity"`
	AccountUpdateCapacity int                `json:"accountUpdateCapacity"`
}

// Observe widens the first/last seen window so that it includes t.
func (s *EndpointSummary) Observe(t time.Time) {
	if s.FirstSeen.IsZero() || t.Before(s.FirstSeen) {
		s.FirstSeen = t
	}
	if t.After(s.LastSeen) {
		s.LastSeen = t
	}
}
