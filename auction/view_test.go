package auction_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remate/auction"
)

func TestHorseLadderWithoutBids(t *testing.T) {
	f := newFixture(t)
	a := f.openAuction()
	horse := f.horse(a, 2)

	ladder, err := f.svc.HorseLadder(context.Background(), a.ID, horse.ID)
	require.NoError(t, err)

	// Horse 2 starts at 40: next auto bid is 60, manual 70, no leader.
	requireAmount(t, 40, ladder.CurrentPrice)
	requireAmount(t, 60, ladder.NextAutoMin)
	requireAmount(t, 70, ladder.NextManualMin)
	assert.False(t, ladder.HasBids)
	assert.Empty(t, ladder.Leader)
	assert.Zero(t, ladder.BidCount)
}

func TestHorseLadderUnknownHorse(t *testing.T) {
	f := newFixture(t)
	a := f.openAuction()

	_, err := f.svc.HorseLadder(context.Background(), a.ID, uuid.New())
	require.ErrorIs(t, err, auction.ErrHorseNotInAuction)
}

func TestAuctionLeaderboard(t *testing.T) {
	f := newFixture(t)
	a := f.openAuction()
	horse1 := f.horse(a, 1)
	ana := f.bidder("ana", 300)

	f.autoBid(ana, a, horse1.ID) // 80

	board, err := f.svc.AuctionLeaderboard(context.Background(), a.ID)
	require.NoError(t, err)
	require.Len(t, board.Horses, 2)

	// Horses come back in field order.
	assert.Equal(t, 1, board.Horses[0].HorseNumber)
	assert.Equal(t, 2, board.Horses[1].HorseNumber)
	requireAmount(t, 80, board.Horses[0].CurrentPrice)
	assert.Equal(t, "ana", board.Horses[0].Leader)
	requireAmount(t, 40, board.Horses[1].CurrentPrice)

	// Pot preview over current prices: 80 + 40 at a 25% cut.
	requireAmount(t, 120, board.Pot)
	requireAmount(t, 30, board.HouseCut)
	requireAmount(t, 90, board.NetPrize)
}

func TestHistoryPreloadsBidders(t *testing.T) {
	f := newFixture(t)
	a := f.openAuction()
	horse1 := f.horse(a, 1)
	ana := f.bidder("ana", 300)
	beto := f.bidder("beto", 300)

	f.autoBid(ana, a, horse1.ID)
	f.autoBid(beto, a, horse1.ID)

	bids, err := f.svc.History(context.Background(), a.ID)
	require.NoError(t, err)
	require.Len(t, bids, 2)
	require.NotNil(t, bids[0].User)
	assert.Equal(t, "ana", bids[0].User.Username)
	assert.Equal(t, "beto", bids[1].User.Username)
}

func TestViewsOnUnknownAuction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	missing := uuid.New()

	_, err := f.svc.AuctionLeaderboard(ctx, missing)
	require.ErrorIs(t, err, auction.ErrAuctionNotFound)
	_, err = f.svc.History(ctx, missing)
	require.ErrorIs(t, err, auction.ErrAuctionNotFound)
	_, err = f.svc.Events(ctx, missing)
	require.ErrorIs(t, err, auction.ErrAuctionNotFound)
}
