package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type timedUpdate struct {
	AuctionID string    `msgpack:"auction_id"`
	Amount    string    `msgpack:"amount"`
	PlacedAt  time.Time `msgpack:"placed_at"`
}

func TestParseRoundTrip(t *testing.T) {
	input := timedUpdate{
		AuctionID: "a1",
		Amount:    "130",
		PlacedAt:  time.Date(2026, 3, 14, 12, 0, 1, 0, time.UTC),
	}

	message, err := DefaultParseToMessage(input)
	require.NoError(t, err)
	assert.Contains(t, message, "data")
	assert.NotEmpty(t, message["data"])

	result, err := DefaultParseFromMessage[timedUpdate](message)
	require.NoError(t, err)
	assert.Equal(t, input.AuctionID, result.AuctionID)
	assert.Equal(t, input.Amount, result.Amount)
	assert.True(t, input.PlacedAt.Equal(result.PlacedAt))
}

func TestParseToMessageRejectsPointers(t *testing.T) {
	_, err := DefaultParseToMessage(&bidUpdate{AuctionID: "a1"})
	assert.ErrorIs(t, err, ErrPointerType)

	var nilInput *bidUpdate
	_, err = DefaultParseToMessage(nilInput)
	assert.ErrorIs(t, err, ErrPointerType)
}

func TestParseFromMessageErrors(t *testing.T) {
	t.Run("pointer target", func(t *testing.T) {
		_, err := DefaultParseFromMessage[*bidUpdate](map[string]any{"data": "x"})
		assert.ErrorIs(t, err, ErrPointerType)
	})

	t.Run("empty map yields zero value", func(t *testing.T) {
		result, err := DefaultParseFromMessage[bidUpdate](map[string]any{})
		assert.NoError(t, err)
		assert.Empty(t, result.AuctionID)
	})

	t.Run("invalid base64", func(t *testing.T) {
		_, err := DefaultParseFromMessage[bidUpdate](map[string]any{"data": "not base64!"})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "base64 decode error")
	})

	t.Run("missing data field", func(t *testing.T) {
		_, err := DefaultParseFromMessage[bidUpdate](map[string]any{"wrong_field": "x"})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "data field not found")
	})

	t.Run("wrong data type", func(t *testing.T) {
		_, err := DefaultParseFromMessage[bidUpdate](map[string]any{"data": 123})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid type")
	})
}
