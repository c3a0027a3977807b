package core

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ManualBidPremium is the fixed surcharge a manual bid must carry over the
// next auto-bid minimum. The original business rule hard-codes it; it is
// not derived from any rule table.
var ManualBidPremium = decimal.NewFromInt(10)

// Ladder is the price state of one horse derived from its bid log.
type Ladder struct {
	CurrentPrice  decimal.Decimal
	NextAutoMin   decimal.Decimal
	NextManualMin decimal.Decimal
	HasBids       bool
}

// ComputeLadder projects the horse's current price and the two admission
// minimums from its bid log. It is a pure function of its inputs and must
// be recomputed from fresh data before every admission decision; the
// current price is never stored.
//
//	currentPrice  = highest bid, or starting price without bids
//	nextAutoMin   = max(currentPrice + increment, minimumBet)
//	nextManualMin = nextAutoMin + ManualBidPremium
func ComputeLadder(horseID uuid.UUID, startingPrice decimal.Decimal, bids []BidEntry, rules RuleSet, minimumBet decimal.Decimal) Ladder {
	current := startingPrice
	leader, hasBids := CurrentLeader(bids)
	if hasBids {
		current = leader.Amount
	}

	next := current.Add(rules.IncrementAt(horseID, current))
	if next.LessThan(minimumBet) {
		next = minimumBet
	}

	return Ladder{
		CurrentPrice:  current,
		NextAutoMin:   next,
		NextManualMin: next.Add(ManualBidPremium),
		HasBids:       hasBids,
	}
}
