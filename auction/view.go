package auction

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"remate/core"
	"remate/models"
	"remate/store"
)

// LadderView is the price state of one horse as shown to bidders: current
// price, the two admission minimums and who leads. Computed on demand
// from the bid log with the same code admission uses.
type LadderView struct {
	HorseID       uuid.UUID       `json:"horseId"`
	HorseNumber   int             `json:"horseNumber"`
	HorseName     string          `json:"horseName"`
	CurrentPrice  decimal.Decimal `json:"currentPrice"`
	NextAutoMin   decimal.Decimal `json:"nextAutoMin"`
	NextManualMin decimal.Decimal `json:"nextManualMin"`
	HasBids       bool            `json:"hasBids"`
	Leader        string          `json:"leader,omitempty"`
	BidCount      int             `json:"bidCount"`
}

// Leaderboard is the full standing of an auction: one row per horse plus
// a live preview of the pot and house cut were the auction settled now.
type Leaderboard struct {
	AuctionID       uuid.UUID           `json:"auctionId"`
	State           models.AuctionState `json:"state"`
	Horses          []LadderView        `json:"horses"`
	Pot             decimal.Decimal     `json:"pot"`
	HouseCut        decimal.Decimal     `json:"houseCut"`
	NetPrize        decimal.Decimal     `json:"netPrize"`
	HousePercentage decimal.Decimal     `json:"housePercentage"`
}

// HorseLadder returns the ladder for one horse of the auction.
func (s *Service) HorseLadder(ctx context.Context, auctionID, horseID uuid.UUID) (*LadderView, error) {
	auction, err := s.store.GetAuction(ctx, auctionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrAuctionNotFound
	}
	if err != nil {
		return nil, err
	}
	horse, err := s.store.GetHorse(ctx, horseID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrHorseNotInAuction
	}
	if err != nil {
		return nil, err
	}
	if horse.RaceID != auction.RaceID {
		return nil, ErrHorseNotInAuction
	}

	rules, err := s.store.ListRules(ctx, auction.ID)
	if err != nil {
		return nil, err
	}
	bids, err := s.store.ListHorseBids(ctx, auction.ID, horse.ID)
	if err != nil {
		return nil, err
	}

	view := ladderView(auction, horse, bids, ruleSetOf(auction, rules))
	return &view, nil
}

// AuctionLeaderboard assembles the standing of every horse in the
// auction and the pot preview over the current prices.
func (s *Service) AuctionLeaderboard(ctx context.Context, auctionID uuid.UUID) (*Leaderboard, error) {
	auction, err := s.store.GetAuction(ctx, auctionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrAuctionNotFound
	}
	if err != nil {
		return nil, err
	}
	horses, err := s.store.ListHorses(ctx, auction.RaceID)
	if err != nil {
		return nil, err
	}
	rules, err := s.store.ListRules(ctx, auction.ID)
	if err != nil {
		return nil, err
	}
	bids, err := s.store.ListBids(ctx, auction.ID)
	if err != nil {
		return nil, err
	}

	byHorse := make(map[uuid.UUID][]models.Bid, len(horses))
	for _, b := range bids {
		byHorse[b.HorseID] = append(byHorse[b.HorseID], b)
	}

	ruleSet := ruleSetOf(auction, rules)
	board := &Leaderboard{
		AuctionID:       auction.ID,
		State:           auction.State,
		Horses:          make([]LadderView, 0, len(horses)),
		Pot:             decimal.Zero,
		HousePercentage: auction.HousePercentage,
	}
	for i := range horses {
		view := ladderView(auction, &horses[i], byHorse[horses[i].ID], ruleSet)
		board.Horses = append(board.Horses, view)
		board.Pot = board.Pot.Add(view.CurrentPrice)
	}
	board.HouseCut = board.Pot.Mul(auction.HousePercentage).Div(decimal.NewFromInt(100)).Round(2)
	board.NetPrize = board.Pot.Sub(board.HouseCut)
	return board, nil
}

// History returns the auction's admitted bids, oldest first, with the
// bidder preloaded for display.
func (s *Service) History(ctx context.Context, auctionID uuid.UUID) ([]models.Bid, error) {
	if _, err := s.store.GetAuction(ctx, auctionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAuctionNotFound
		}
		return nil, err
	}
	bids, err := s.store.ListBids(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("list bids: %w", err)
	}
	return bids, nil
}

// Events returns the auction's state transition log.
func (s *Service) Events(ctx context.Context, auctionID uuid.UUID) ([]models.AuctionEvent, error) {
	if _, err := s.store.GetAuction(ctx, auctionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAuctionNotFound
		}
		return nil, err
	}
	return s.store.ListEvents(ctx, auctionID)
}

func ladderView(auction *models.Auction, horse *models.Horse, bids []models.Bid, rules core.RuleSet) LadderView {
	entries := bidEntries(bids)
	ladder := core.ComputeLadder(horse.ID, horse.StartingPrice, entries, rules, auction.MinimumBet)
	view := LadderView{
		HorseID:       horse.ID,
		HorseNumber:   horse.Number,
		HorseName:     horse.Name,
		CurrentPrice:  ladder.CurrentPrice,
		NextAutoMin:   ladder.NextAutoMin,
		NextManualMin: ladder.NextManualMin,
		HasBids:       ladder.HasBids,
		BidCount:      len(bids),
	}
	if leader, ok := core.CurrentLeader(entries); ok {
		for _, b := range bids {
			if b.UserID == leader.Bidder && b.User != nil {
				view.Leader = b.User.Username
				break
			}
		}
		if view.Leader == "" {
			view.Leader = leader.Bidder.String()
		}
	}
	return view
}
