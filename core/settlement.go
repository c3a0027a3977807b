package core

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrWinnerNotInField = errors.New("winning horse is not part of the field")
	ErrHousePercentage  = errors.New("house percentage must be between 0 and 100")
)

var oneHundred = decimal.NewFromInt(100)

// HorseResult is one horse's final standing when the auction settles:
// its final price (leading bid, or starting price unbid) and its leader,
// nil when the house holds it.
type HorseResult struct {
	HorseID    uuid.UUID
	FinalPrice decimal.Decimal
	Leader     *Leader
}

// Outcome is the settlement computation: pot, house cut, net prize and the
// winner of the net prize. Winner nil means the winning horse had no bids
// and the house keeps the whole pot; nobody is charged for an unbid horse
// even though its starting price contributes to the pot.
type Outcome struct {
	WinningHorse uuid.UUID
	Pot          decimal.Decimal
	HouseCut     decimal.Decimal
	NetPrize     decimal.Decimal
	Winner       *Leader
}

// ComputeOutcome derives the settlement from the final per-horse results.
//
//	pot      = Σ final prices
//	houseCut = pot × housePercent / 100 (2 dp, half-up)
//	netPrize = pot − houseCut
func ComputeOutcome(results []HorseResult, winningHorseID uuid.UUID, housePercent decimal.Decimal) (Outcome, error) {
	if housePercent.IsNegative() || housePercent.GreaterThan(oneHundred) {
		return Outcome{}, ErrHousePercentage
	}

	pot := decimal.Zero
	var winning *HorseResult
	for i := range results {
		pot = pot.Add(results[i].FinalPrice)
		if results[i].HorseID == winningHorseID {
			winning = &results[i]
		}
	}
	if winning == nil {
		return Outcome{}, ErrWinnerNotInField
	}

	houseCut := pot.Mul(housePercent).Div(oneHundred).Round(2)
	out := Outcome{
		WinningHorse: winningHorseID,
		Pot:          pot,
		HouseCut:     houseCut,
		NetPrize:     pot.Sub(houseCut),
		Winner:       winning.Leader,
	}
	return out, nil
}
