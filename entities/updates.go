package entities

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// SlotUpdate is one observed slot status transition. Both clock readings come from
// the same time.Now() call: instant keeps the monotonic reading and is used for deltas,
// systemTime is the wall clock only and is used for display.
type SlotUpdate struct {
	slot       uint64
	status     SlotStatus
	instant    time.Time
	systemTime time.Time
	relayTime  time.Time
}

// NewSlotUpdate builds a slot update from a single clock reading taken at receipt.
func NewSlotUpdate(slot uint64, status SlotStatus, receivedAt time.Time) SlotUpdate {
	return SlotUpdate{
		slot:       slot,
		status:     status,
		instant:    receivedAt,
		systemTime: receivedAt.Round(0), // strips the monotonic reading
	}
}

// CaptureSlotUpdate reads the clock and builds the update.
func CaptureSlotUpdate(slot uint64, status SlotStatus) SlotUpdate {
	return NewSlotUpdate(slot, status, time.Now())
}

func (u SlotUpdate) Slot() uint64          { return u.slot }
func (u SlotUpdate) Status() SlotStatus    { return u.status }
func (u SlotUpdate) Instant() time.Time    { return u.instant }
func (u SlotUpdate) SystemTime() time.Time { return u.systemTime }

// RelayTime is the timestamp the upstream relay put on the event, zero when the transport has none.
func (u SlotUpdate) RelayTime() time.Time { return u.relayTime }

// WithRelayTime returns a copy carrying the relay timestamp.
func (u SlotUpdate) WithRelayTime(relayTime time.Time) SlotUpdate {
	u.relayTime = relayTime
	return u
}

// Since returns the monotonic delta between this update and an earlier one.
func (u SlotUpdate) Since(earlier SlotUpdate) time.Duration {
	return u.instant.Sub(earlier.instant)
}

// AccountUpdate is one observed account mutation.
type AccountUpdate struct {
	slot         uint64
	pubkey       solana.PublicKey
	writeVersion uint64
	txSignature  solana.Signature
	instant      time.Time
	systemTime   time.Time
	relayTime    time.Time
}

func NewAccountUpdate(slot uint64, pubkey solana.PublicKey, writeVersion uint64, txSignature solana.Signature, receivedAt time.Time) AccountUpdate {
	return AccountUpdate{
		slot:         slot,
		pubkey:       pubkey,
		writeVersion: writeVersion,
		txSignature:  txSignature,
		instant:      receivedAt,
		systemTime:   receivedAt.Round(0),
	}
}

func CaptureAccountUpdate(slot uint64, pubkey solana.PublicKey, writeVersion uint64, txSignature solana.Signature) AccountUpdate {
	return NewAccountUpdate(slot, pubkey, writeVersion, txSignature, time.Now())
}

func (u AccountUpdate) Slot() uint64                  { return u.slot }
func (u AccountUpdate) Pubkey() solana.PublicKey      { return u.pubkey }
func (u AccountUpdate) WriteVersion() uint64          { return u.writeVersion }
func (u AccountUpdate) TxSignature() solana.Signature { return u.txSignature }
func (u AccountUpdate) Instant() time.Time            { return u.instant }
func (u AccountUpdate) SystemTime() time.Time         { return u.systemTime }
func (u AccountUpdate) RelayTime() time.Time          { return u.relayTime }

func (u AccountUpdate) WithRelayTime(relayTime time.Time) AccountUpdate {
	u.relayTime = relayTime
	return u
}

func (u AccountUpdate) Since(earlier AccountUpdate) time.Duration {
	return u.instant.Sub(earlier.instant)
}
