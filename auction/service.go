// Package auction is the authoritative bidding engine: bid admission,
// the auction state machine and settlement. Price computation is shared
// with the display path through the core package, so previews and
// admission can never diverge.
package auction

import (
	"context"
	"log/slog"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"remate/core"
	"remate/models"
	"remate/store"
)

// Caller identifies who is invoking an operation. Operations receive it
// explicitly; there is no ambient session state. The zero Caller is
// anonymous.
type Caller struct {
	ID           uuid.UUID
	Username     string
	IsAdmin      bool
	IsSuperAdmin bool
}

// Privileged reports whether the caller holds an admin role. Privileged
// accounts run the lifecycle and never bid.
func (c Caller) Privileged() bool {
	return c.IsAdmin || c.IsSuperAdmin
}

// Locker serializes bid admission for one horse across instances.
type Locker interface {
	Lock(ctx context.Context) (context.Context, error)
	Unlock() (bool, error)
}

// LockerFactory builds a Locker for a key.
type LockerFactory func(key string) Locker

// BidEvent is the message published for every admitted bid; the SSE layer
// relays it to connected clients. Amount travels as a string to keep the
// codec independent of the decimal representation.
type BidEvent struct {
	AuctionID   string    `json:"auctionId" msgpack:"auction_id"`
	HorseID     string    `json:"horseId" msgpack:"horse_id"`
	HorseNumber int       `json:"horseNumber" msgpack:"horse_number"`
	Bidder      string    `json:"bidder" msgpack:"bidder"`
	Amount      string    `json:"amount" msgpack:"amount"`
	Manual      bool      `json:"manual" msgpack:"manual"`
	PlacedAt    time.Time `json:"placedAt" msgpack:"placed_at"`
}

// Publisher pushes admitted bid events towards subscribers.
type Publisher interface {
	Publish(event BidEvent) error
}

type Service struct {
	store  *store.Store
	clock  clock.Clock
	locks  LockerFactory
	pub    Publisher
	logger *slog.Logger
}

type Option func(*Service)

// WithLockerFactory installs the distributed per-horse bid lock. The
// no-op default leaves admission unserialized: two concurrent bids on
// one horse can read the same ladder and both be admitted. It exists
// for tests; deployments install the redsync factory.
func WithLockerFactory(factory LockerFactory) Option {
	return func(s *Service) {
		s.locks = factory
	}
}

// WithPublisher installs the bid event publisher.
func WithPublisher(pub Publisher) Option {
	return func(s *Service) {
		s.pub = pub
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func NewService(st *store.Store, clk clock.Clock, opts ...Option) *Service {
	s := &Service{
		store:  st,
		clock:  clk,
		locks:  func(string) Locker { return noopLocker{} },
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type noopLocker struct{}

func (noopLocker) Lock(ctx context.Context) (context.Context, error) { return ctx, nil }
func (noopLocker) Unlock() (bool, error)                             { return true, nil }

// ruleSetOf converts the auction's stored price rules into the core
// resolver, with the auction's global increment as fallback.
func ruleSetOf(auction *models.Auction, rules []models.PriceRule) core.RuleSet {
	bands := make([]core.RuleBand, 0, len(rules))
	for _, r := range rules {
		bands = append(bands, core.RuleBand{
			HorseID:   r.HorseID,
			MinPrice:  r.MinPrice,
			MaxPrice:  r.MaxPrice,
			Increment: r.Increment,
		})
	}
	return core.NewRuleSet(auction.MinIncrement, bands)
}

func bidEntries(bids []models.Bid) []core.BidEntry {
	entries := make([]core.BidEntry, 0, len(bids))
	for _, b := range bids {
		entries = append(entries, core.BidEntry{
			Bidder:   b.UserID,
			Amount:   b.Amount,
			PlacedAt: b.CreatedAt,
			Manual:   b.Manual,
		})
	}
	return entries
}

// lockedStakes aggregates, per bidder and horse, the amount the engine
// holds locked: a bidder's lock on a horse always equals their own highest
// bid there, because admission only ever locks the delta on top of it.
func lockedStakes(bids []models.Bid) map[uuid.UUID]map[uuid.UUID]decimal.Decimal {
	stakes := make(map[uuid.UUID]map[uuid.UUID]decimal.Decimal)
	for _, b := range bids {
		horses, ok := stakes[b.UserID]
		if !ok {
			horses = make(map[uuid.UUID]decimal.Decimal)
			stakes[b.UserID] = horses
		}
		if b.Amount.GreaterThan(horses[b.HorseID]) {
			horses[b.HorseID] = b.Amount
		}
	}
	return stakes
}
