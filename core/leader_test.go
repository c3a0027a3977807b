package core

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCurrentLeader_HighestAmountWins(t *testing.T) {
	u1, u2 := uuid.New(), uuid.New()
	t0 := time.Now()

	leader, ok := CurrentLeader([]BidEntry{
		entry(u1, 80, t0),
		entry(u2, 100, t0.Add(time.Second)),
		entry(u1, 90, t0.Add(2*time.Second)),
	})
	assert.True(t, ok)
	assert.Equal(t, u2, leader.Bidder)
	assert.True(t, d(100).Equal(leader.Amount))
}

// Two bids of the same amount: the earliest keeps the lead, regardless of
// slice order.
func TestCurrentLeader_EarliestWinsTies(t *testing.T) {
	u1, u2 := uuid.New(), uuid.New()
	t0 := time.Now()

	first := entry(u1, 150, t0)
	second := entry(u2, 150, t0.Add(time.Minute))

	for name, bids := range map[string][]BidEntry{
		"chronological": {first, second},
		"reversed":      {second, first},
	} {
		t.Run(name, func(t *testing.T) {
			leader, ok := CurrentLeader(bids)
			assert.True(t, ok)
			assert.Equal(t, u1, leader.Bidder)
			assert.Equal(t, t0, leader.PlacedAt)
		})
	}
}

func TestCurrentLeader_NoBids(t *testing.T) {
	_, ok := CurrentLeader(nil)
	assert.False(t, ok)
}

func TestBidderMax(t *testing.T) {
	u1, u2 := uuid.New(), uuid.New()
	t0 := time.Now()
	bids := []BidEntry{
		entry(u1, 80, t0),
		entry(u2, 100, t0.Add(time.Second)),
		entry(u1, 120, t0.Add(2*time.Second)),
	}

	assert.True(t, d(120).Equal(BidderMax(bids, u1)))
	assert.True(t, d(100).Equal(BidderMax(bids, u2)))
	assert.True(t, BidderMax(bids, uuid.New()).IsZero())
}
