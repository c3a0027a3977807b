package auction_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remate/auction"
)

func TestPlaceBidWalksTheLadder(t *testing.T) {
	f := newFixture(t)
	a := f.openAuction()
	horse := f.horse(a, 1)
	ana := f.bidder("ana", 500)
	beto := f.bidder("beto", 500)

	// Horse 1 starts at 60: the band below 100 raises by 20, the band
	// from 100 by 30.
	first := f.autoBid(ana, a, horse.ID)
	requireAmount(t, 80, first.Amount)

	second := f.autoBid(beto, a, horse.ID)
	requireAmount(t, 100, second.Amount)

	third := f.autoBid(ana, a, horse.ID)
	requireAmount(t, 130, third.Amount)

	ladder, err := f.svc.HorseLadder(context.Background(), a.ID, horse.ID)
	require.NoError(t, err)
	requireAmount(t, 130, ladder.CurrentPrice)
	requireAmount(t, 160, ladder.NextAutoMin)
	requireAmount(t, 170, ladder.NextManualMin)
	assert.Equal(t, "ana", ladder.Leader)
}

func TestPlaceBidLocksOnlyTheDelta(t *testing.T) {
	f := newFixture(t)
	a := f.openAuction()
	horse := f.horse(a, 1)
	ana := f.bidder("ana", 200)
	beto := f.bidder("beto", 200)

	f.autoBid(ana, a, horse.ID) // 80
	requireAmount(t, 120, f.wallet(ana).Available)
	requireAmount(t, 80, f.wallet(ana).Locked)

	f.autoBid(beto, a, horse.ID) // 100

	// Ana re-raises to 130: only the 50 on top of her own 80 is locked.
	f.autoBid(ana, a, horse.ID)
	requireAmount(t, 70, f.wallet(ana).Available)
	requireAmount(t, 130, f.wallet(ana).Locked)

	// Beto's 100 stays locked while he is outbid.
	requireAmount(t, 100, f.wallet(beto).Locked)
}

func TestPlaceBidManualPremium(t *testing.T) {
	f := newFixture(t)
	a := f.openAuction()
	horse := f.horse(a, 1)
	ana := f.bidder("ana", 500)

	// Next auto minimum is 80, so a manual bid starts at 90.
	f.clock.Increment(time.Second)
	_, err := f.svc.PlaceBid(context.Background(), ana, auction.BidRequest{
		AuctionID: a.ID,
		HorseID:   horse.ID,
		Amount:    decimal.NewFromInt(85),
		Manual:    true,
	})
	require.ErrorIs(t, err, auction.ErrBidTooLow)

	bid, err := f.svc.PlaceBid(context.Background(), ana, auction.BidRequest{
		AuctionID: a.ID,
		HorseID:   horse.ID,
		Amount:    decimal.NewFromInt(90),
		Manual:    true,
	})
	require.NoError(t, err)
	requireAmount(t, 90, bid.Amount)
	assert.True(t, bid.Manual)
}

func TestPlaceBidIgnoresAmountOnAutoBids(t *testing.T) {
	f := newFixture(t)
	a := f.openAuction()
	horse := f.horse(a, 1)
	ana := f.bidder("ana", 500)

	f.clock.Increment(time.Second)
	bid, err := f.svc.PlaceBid(context.Background(), ana, auction.BidRequest{
		AuctionID: a.ID,
		HorseID:   horse.ID,
		Amount:    decimal.NewFromInt(300),
	})
	require.NoError(t, err)
	requireAmount(t, 80, bid.Amount)
}

func TestPlaceBidInsufficientFunds(t *testing.T) {
	f := newFixture(t)
	a := f.openAuction()
	horse := f.horse(a, 1)
	pobre := f.bidder("pobre", 50)

	f.clock.Increment(time.Second)
	_, err := f.svc.PlaceBid(context.Background(), pobre, auction.BidRequest{
		AuctionID: a.ID,
		HorseID:   horse.ID,
	})
	require.ErrorIs(t, err, auction.ErrInsufficientFunds)

	// Nothing changed: no bid admitted, wallet untouched.
	bids, err := f.store.ListHorseBids(context.Background(), a.ID, horse.ID)
	require.NoError(t, err)
	assert.Empty(t, bids)
	requireAmount(t, 50, f.wallet(pobre).Available)
	requireAmount(t, 0, f.wallet(pobre).Locked)
}

func TestPlaceBidOutsideWindow(t *testing.T) {
	f := newFixture(t)
	a := f.openAuction()
	horse := f.horse(a, 1)
	ana := f.bidder("ana", 500)

	// Past the close time the clock rejects the bid even though the
	// close transition has not run yet.
	f.clock.Increment(2 * time.Hour)
	_, err := f.svc.PlaceBid(context.Background(), ana, auction.BidRequest{
		AuctionID: a.ID,
		HorseID:   horse.ID,
	})
	require.ErrorIs(t, err, auction.ErrOutsideWindow)
}

func TestPlaceBidRejectsPrivilegedCallers(t *testing.T) {
	f := newFixture(t)
	a := f.openAuction()
	horse := f.horse(a, 1)

	_, err := f.svc.PlaceBid(context.Background(), f.admin, auction.BidRequest{
		AuctionID: a.ID,
		HorseID:   horse.ID,
	})
	require.ErrorIs(t, err, auction.ErrHouseCannotBid)

	_, err = f.svc.PlaceBid(context.Background(), auction.Caller{}, auction.BidRequest{
		AuctionID: a.ID,
		HorseID:   horse.ID,
	})
	require.ErrorIs(t, err, auction.ErrUnauthenticated)
}

func TestPlaceBidRejectsForeignHorse(t *testing.T) {
	f := newFixture(t)
	a := f.openAuction()
	other := f.openAuction()
	strange := f.horse(other, 1)
	ana := f.bidder("ana", 500)

	f.clock.Increment(time.Second)
	_, err := f.svc.PlaceBid(context.Background(), ana, auction.BidRequest{
		AuctionID: a.ID,
		HorseID:   strange.ID,
	})
	require.ErrorIs(t, err, auction.ErrHorseNotInAuction)
}

func TestPlaceBidOnClosedAuction(t *testing.T) {
	f := newFixture(t)
	a := f.openAuction()
	horse := f.horse(a, 1)
	ana := f.bidder("ana", 500)
	require.NoError(t, f.svc.CloseAuction(context.Background(), f.admin, a.ID))

	f.clock.Increment(time.Second)
	_, err := f.svc.PlaceBid(context.Background(), ana, auction.BidRequest{
		AuctionID: a.ID,
		HorseID:   horse.ID,
	})
	require.ErrorIs(t, err, auction.ErrNotOpen)
}

func TestPlaceBidPublishesEvent(t *testing.T) {
	f := newFixture(t)
	a := f.openAuction()
	horse := f.horse(a, 1)
	ana := f.bidder("ana", 500)

	bid := f.autoBid(ana, a, horse.ID)

	events := f.pub.captured()
	require.Len(t, events, 1)
	assert.Equal(t, a.ID.String(), events[0].AuctionID)
	assert.Equal(t, 1, events[0].HorseNumber)
	assert.Equal(t, "ana", events[0].Bidder)
	assert.Equal(t, bid.Amount.String(), events[0].Amount)
}
