package core

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BidEntry is the projection of one admitted bid that the engine works on.
type BidEntry struct {
	Bidder   uuid.UUID
	Amount   decimal.Decimal
	PlacedAt time.Time
	Manual   bool
}

// Leader identifies the bid currently winning a horse.
type Leader struct {
	Bidder   uuid.UUID
	Amount   decimal.Decimal
	PlacedAt time.Time
}

// CurrentLeader returns the leading bid among the horse's bids: the highest
// amount, and on equal amounts the earliest one. The first bidder to reach
// a price is not displaced by a later identical bid. The second return is
// false when no bids exist, in which case the house holds the horse.
func CurrentLeader(bids []BidEntry) (Leader, bool) {
	if len(bids) == 0 {
		return Leader{}, false
	}
	best := bids[0]
	for _, b := range bids[1:] {
		if b.Amount.GreaterThan(best.Amount) {
			best = b
			continue
		}
		if b.Amount.Equal(best.Amount) && b.PlacedAt.Before(best.PlacedAt) {
			best = b
		}
	}
	return Leader{Bidder: best.Bidder, Amount: best.Amount, PlacedAt: best.PlacedAt}, true
}

// BidderMax returns the bidder's own highest amount among the bids, zero
// when they have none. The incremental fund lock for a new bid is the
// delta over this value.
func BidderMax(bids []BidEntry, bidder uuid.UUID) decimal.Decimal {
	max := decimal.Zero
	for _, b := range bids {
		if b.Bidder == bidder && b.Amount.GreaterThan(max) {
			max = b.Amount
		}
	}
	return max
}
