package auction_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"remate/auction"
	"remate/models"
	"remate/store"
)

// fixture wires a service against an in-memory database and a fake clock.
// Each test gets its own database.
type fixture struct {
	t     *testing.T
	store *store.Store
	clock *fakeclock.FakeClock
	pub   *capturePublisher
	svc   *auction.Service
	admin auction.Caller
}

type capturePublisher struct {
	mu     sync.Mutex
	events []auction.BidEvent
}

func (p *capturePublisher) Publish(event auction.BidEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) captured() []auction.BidEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]auction.BidEvent(nil), p.events...)
}

var testStart = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	st := store.New(db)
	require.NoError(t, st.Migrate())

	f := &fixture{
		t:     t,
		store: st,
		clock: fakeclock.NewFakeClock(testStart),
		pub:   &capturePublisher{},
	}
	f.svc = auction.NewService(st, f.clock, auction.WithPublisher(f.pub))

	admin := &models.User{Username: "admin", Email: "admin@example.com", IsAdmin: true}
	require.NoError(t, st.CreateUser(context.Background(), admin))
	f.admin = auction.Caller{ID: admin.ID, Username: admin.Username, IsAdmin: true}
	return f
}

// bidder registers a user with the given available balance and returns
// their caller identity.
func (f *fixture) bidder(name string, available int64) auction.Caller {
	f.t.Helper()
	ctx := context.Background()
	user := &models.User{Username: name, Email: name + "@example.com"}
	require.NoError(f.t, f.store.CreateUser(ctx, user))
	wallet := &models.Wallet{
		UserID:    user.ID,
		Available: decimal.NewFromInt(available),
		Locked:    decimal.Zero,
	}
	require.NoError(f.t, f.store.CreateWallet(ctx, wallet))
	return auction.Caller{ID: user.ID, Username: name}
}

func (f *fixture) wallet(caller auction.Caller) *models.Wallet {
	f.t.Helper()
	wallet, err := f.store.WalletByUser(context.Background(), caller.ID)
	require.NoError(f.t, err)
	return wallet
}

// openAuction creates a two-horse auction whose window spans one hour
// either side of the fake clock. Horse 1 starts at 60, horse 2 at 40.
// Default bands: [0, 100) raises by 20, [100, 300) by 30.
func (f *fixture) openAuction() *models.Auction {
	f.t.Helper()
	created, err := f.svc.CreateAuction(context.Background(), f.admin, auction.CreateAuctionRequest{
		Name:            "Clasico del Domingo",
		RaceName:        "Premio Primavera",
		Venue:           "Maronas",
		RaceNumber:      7,
		ScheduledAt:     testStart.Add(3 * time.Hour),
		MinIncrement:    decimal.NewFromInt(50),
		MinimumBet:      decimal.NewFromInt(20),
		HousePercentage: decimal.NewFromInt(25),
		OpensAt:         testStart.Add(-time.Hour),
		ClosesAt:        testStart.Add(time.Hour),
		Horses: []auction.HorseInput{
			{Number: 1, Name: "Relampago", Jockey: "P. Gomez", StartingPrice: decimal.NewFromInt(60)},
			{Number: 2, Name: "Tormenta", Jockey: "L. Diaz", StartingPrice: decimal.NewFromInt(40)},
		},
		Rules: []auction.RuleInput{
			{MinPrice: decimal.Zero, MaxPrice: dptr(100), Increment: decimal.NewFromInt(20)},
			{MinPrice: decimal.NewFromInt(100), MaxPrice: dptr(300), Increment: decimal.NewFromInt(30)},
		},
	})
	require.NoError(f.t, err)
	return created
}

func (f *fixture) horse(a *models.Auction, number int) *models.Horse {
	f.t.Helper()
	horses, err := f.store.ListHorses(context.Background(), a.RaceID)
	require.NoError(f.t, err)
	for i := range horses {
		if horses[i].Number == number {
			return &horses[i]
		}
	}
	f.t.Fatalf("horse %d not in race", number)
	return nil
}

// autoBid places an auto bid, advancing the clock one second first so
// every bid carries a distinct timestamp.
func (f *fixture) autoBid(caller auction.Caller, a *models.Auction, horseID uuid.UUID) *models.Bid {
	f.t.Helper()
	f.clock.Increment(time.Second)
	bid, err := f.svc.PlaceBid(context.Background(), caller, auction.BidRequest{
		AuctionID: a.ID,
		HorseID:   horseID,
	})
	require.NoError(f.t, err)
	return bid
}

func dptr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func requireAmount(t *testing.T, want int64, got decimal.Decimal) {
	t.Helper()
	require.True(t, got.Equal(decimal.NewFromInt(want)), "want %d, got %s", want, got)
}
