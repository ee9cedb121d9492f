package entities

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFromCode_knownCodes(t *testing.T) {
	expected := map[int32]SlotStatus{
		0: SlotStatusProcessed,
		1: SlotStatusConfirmed,
		2: SlotStatusFinalized,
		3: SlotStatusFirstShredReceived,
		4: SlotStatusCompleted,
		5: SlotStatusCreatedBank,
		6: SlotStatusDead,
	}
	for code, status := range expected {
		assert.Equal(t, status, StatusFromCode(code), "code %d", code)
		assert.True(t, IsKnownStatusCode(code))
	}
}

func TestStatusFromCode_givenUnknownCode_thenDead(t *testing.T) {
	for _, code := range []int32{-1, -6, 7, 8, 100, math.MaxInt32, math.MinInt32} {
		assert.Equal(t, SlotStatusDead, StatusFromCode(code), "code %d", code)
		assert.False(t, IsKnownStatusCode(code))
	}
}

func TestSlotStatus_textRoundTrip(t *testing.T) {
	for status := SlotStatusFirstShredReceived; status <= SlotStatusDead; status++ {
		text, err := status.MarshalText()
		require.NoError(t, err)

		var parsed SlotStatus
		require.NoError(t, parsed.UnmarshalText(text))
		assert.Equal(t, status, parsed)
	}
}

func TestSlotStatus_marshalJson(t *testing.T) {
	marshalled, err := json.Marshal([]SlotStatus{SlotStatusFirstShredReceived, SlotStatusCreatedBank, SlotStatusDead})
	require.NoError(t, err)
	assert.Equal(t, `["first_shred_received","created_bank","dead"]`, string(marshalled))
}

func TestSlotStatus_givenInvalidValue(t *testing.T) {
	_, err := SlotStatus(42).MarshalText()
	assert.Error(t, err)
	assert.Equal(t, "unknown", SlotStatus(42).String())

	_, err = ParseSlotStatus("rooted")
	assert.Error(t, err)
}

func TestSlotStatus_everyStatusHasName(t *testing.T) {
	assert.Len(t, slotStatusNames, ExpectedStatusesPerSlot+1)
	for status := SlotStatusFirstShredReceived; status <= SlotStatusDead; status++ {
		assert.NotEqual(t, "unknown", status.String())
	}
}
