package core

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// Horse A at 100 led by u1, horse B unbid at 60, house 25%: pot 160,
// house cut 40, net prize 120 to u1.
func TestComputeOutcome_BidderWins(t *testing.T) {
	horseA, horseB := uuid.New(), uuid.New()
	u1 := uuid.New()
	leader := &Leader{Bidder: u1, Amount: d(100), PlacedAt: time.Now()}

	out, err := ComputeOutcome([]HorseResult{
		{HorseID: horseA, FinalPrice: d(100), Leader: leader},
		{HorseID: horseB, FinalPrice: d(60)},
	}, horseA, d(25))

	assert.NoError(t, err)
	assert.True(t, d(160).Equal(out.Pot))
	assert.True(t, d(40).Equal(out.HouseCut))
	assert.True(t, d(120).Equal(out.NetPrize))
	if assert.NotNil(t, out.Winner) {
		assert.Equal(t, u1, out.Winner.Bidder)
	}
	// pot = houseCut + netPrize
	assert.True(t, out.Pot.Equal(out.HouseCut.Add(out.NetPrize)))
}

// The winning horse had no bids: the house keeps the whole pot, nobody is
// paid out.
func TestComputeOutcome_HouseWins(t *testing.T) {
	horseA, horseB := uuid.New(), uuid.New()
	leader := &Leader{Bidder: uuid.New(), Amount: d(100), PlacedAt: time.Now()}

	out, err := ComputeOutcome([]HorseResult{
		{HorseID: horseA, FinalPrice: d(100), Leader: leader},
		{HorseID: horseB, FinalPrice: d(60)},
	}, horseB, d(25))

	assert.NoError(t, err)
	assert.True(t, d(160).Equal(out.Pot))
	assert.Nil(t, out.Winner)
}

func TestComputeOutcome_RoundsHouseCut(t *testing.T) {
	horse := uuid.New()
	out, err := ComputeOutcome([]HorseResult{
		{HorseID: horse, FinalPrice: d(100)},
	}, horse, decimal.RequireFromString("12.345"))

	assert.NoError(t, err)
	assert.True(t, decimal.RequireFromString("12.35").Equal(out.HouseCut))
	assert.True(t, out.Pot.Equal(out.HouseCut.Add(out.NetPrize)))
}

func TestComputeOutcome_Errors(t *testing.T) {
	horse := uuid.New()
	results := []HorseResult{{HorseID: horse, FinalPrice: d(100)}}

	_, err := ComputeOutcome(results, uuid.New(), d(25))
	assert.ErrorIs(t, err, ErrWinnerNotInField)

	_, err = ComputeOutcome(results, horse, d(101))
	assert.ErrorIs(t, err, ErrHousePercentage)

	_, err = ComputeOutcome(results, horse, d(-1))
	assert.ErrorIs(t, err, ErrHousePercentage)
}
