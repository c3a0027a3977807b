package auction_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remate/auction"
	"remate/models"
)

func TestCloseAuction(t *testing.T) {
	f := newFixture(t)
	a := f.openAuction()
	ctx := context.Background()

	require.NoError(t, f.svc.CloseAuction(ctx, f.admin, a.ID))

	reloaded, err := f.store.GetAuction(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AuctionClosed, reloaded.State)
	require.NotNil(t, reloaded.ClosedAt)

	// Closing twice is rejected without side effects.
	err = f.svc.CloseAuction(ctx, f.admin, a.ID)
	require.ErrorIs(t, err, auction.ErrWrongState)

	events, err := f.svc.Events(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.AuctionOpen, events[0].FromState)
	assert.Equal(t, models.AuctionClosed, events[0].ToState)
	require.NotNil(t, events[0].ActorID)
	assert.Equal(t, f.admin.ID, *events[0].ActorID)
}

func TestCloseAuctionRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	a := f.openAuction()
	ana := f.bidder("ana", 100)

	err := f.svc.CloseAuction(context.Background(), ana, a.ID)
	require.ErrorIs(t, err, auction.ErrNotAdmin)
}

func TestCloseExpired(t *testing.T) {
	f := newFixture(t)
	expiring := f.openAuction()
	fresh := f.openAuction()
	ctx := context.Background()

	// Push the second auction's window well past the first one's close.
	later := testStart.Add(6 * time.Hour)
	_, err := f.svc.UpdateAuction(ctx, f.admin, fresh.ID, auction.UpdateAuctionRequest{
		ClosesAt: &later,
	})
	require.NoError(t, err)

	f.clock.Increment(90 * time.Minute)
	closed, err := f.svc.CloseExpired(ctx)
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, expiring.ID, closed[0])

	reloaded, err := f.store.GetAuction(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AuctionOpen, reloaded.State)

	// Automatic transitions carry no actor.
	events, err := f.svc.Events(ctx, expiring.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Nil(t, events[0].ActorID)
}

func TestCancelReleasesEveryStake(t *testing.T) {
	f := newFixture(t)
	a := f.openAuction()
	horse1 := f.horse(a, 1)
	horse2 := f.horse(a, 2)
	ana := f.bidder("ana", 300)
	beto := f.bidder("beto", 300)
	ctx := context.Background()

	f.autoBid(ana, a, horse1.ID)  // 80
	f.autoBid(beto, a, horse1.ID) // 100
	f.autoBid(ana, a, horse2.ID)  // 60

	require.NoError(t, f.svc.CancelAuction(ctx, f.admin, a.ID, "race suspended"))

	reloaded, err := f.store.GetAuction(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AuctionCancelled, reloaded.State)
	assert.Equal(t, "race suspended", reloaded.CancelReason)
	require.NotNil(t, reloaded.CancelledAt)

	// Every peso goes back: both wallets fully restored.
	requireAmount(t, 300, f.wallet(ana).Available)
	requireAmount(t, 0, f.wallet(ana).Locked)
	requireAmount(t, 300, f.wallet(beto).Available)
	requireAmount(t, 0, f.wallet(beto).Locked)
}

func TestCancelRequiresReason(t *testing.T) {
	f := newFixture(t)
	a := f.openAuction()

	err := f.svc.CancelAuction(context.Background(), f.admin, a.ID, "   ")
	require.ErrorIs(t, err, auction.ErrReasonRequired)
}

func TestCancelOnlyFromOpen(t *testing.T) {
	f := newFixture(t)
	a := f.openAuction()
	ctx := context.Background()
	require.NoError(t, f.svc.CloseAuction(ctx, f.admin, a.ID))

	err := f.svc.CancelAuction(ctx, f.admin, a.ID, "too late")
	require.ErrorIs(t, err, auction.ErrWrongState)
}

func TestArchiveAuction(t *testing.T) {
	f := newFixture(t)
	a := f.openAuction()
	ctx := context.Background()

	// Open auctions cannot be archived.
	err := f.svc.ArchiveAuction(ctx, f.admin, a.ID, "season over")
	require.ErrorIs(t, err, auction.ErrWrongState)

	require.NoError(t, f.svc.CloseAuction(ctx, f.admin, a.ID))
	require.NoError(t, f.svc.ArchiveAuction(ctx, f.admin, a.ID, "season over"))

	reloaded, err := f.store.GetAuction(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AuctionArchived, reloaded.State)
	assert.Equal(t, "season over", reloaded.ArchiveReason)
	assert.True(t, reloaded.Terminal())

	err = f.svc.ArchiveAuction(ctx, f.admin, a.ID, "again")
	require.ErrorIs(t, err, auction.ErrWrongState)
}

func TestArchiveRequiresReason(t *testing.T) {
	f := newFixture(t)
	a := f.openAuction()
	ctx := context.Background()
	require.NoError(t, f.svc.CloseAuction(ctx, f.admin, a.ID))

	err := f.svc.ArchiveAuction(ctx, f.admin, a.ID, "")
	require.ErrorIs(t, err, auction.ErrReasonRequired)
}
