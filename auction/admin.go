package auction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"remate/core"
	"remate/models"
	"remate/store"
)

// HorseInput describes one contestant when creating an auction.
type HorseInput struct {
	Number        int
	Name          string
	Jockey        string
	Trainer       string
	Comments      string
	StartingPrice decimal.Decimal
}

// RuleInput describes one increment band. HorseNumber nil scopes the band
// to the auction defaults; otherwise it must name a horse of the request.
type RuleInput struct {
	HorseNumber *int
	MinPrice    decimal.Decimal
	MaxPrice    *decimal.Decimal
	Increment   decimal.Decimal
}

// CreateAuctionRequest carries the race, its field and the price rules of
// a new auction. Everything is created in one transaction so a visible
// auction is always complete.
type CreateAuctionRequest struct {
	Name            string
	Type            models.AuctionType
	RaceName        string
	Venue           string
	RaceNumber      int
	ScheduledAt     time.Time
	MinIncrement    decimal.Decimal
	MinimumBet      decimal.Decimal
	HousePercentage decimal.Decimal
	OpensAt         time.Time
	ClosesAt        time.Time
	Horses          []HorseInput
	Rules           []RuleInput
}

// UpdateAuctionRequest patches an auction. Nil fields stay untouched;
// Rules non-nil replaces the whole rule table. Settled and terminal
// auctions reject updates.
type UpdateAuctionRequest struct {
	Name            *string
	Type            *models.AuctionType
	MinIncrement    *decimal.Decimal
	MinimumBet      *decimal.Decimal
	HousePercentage *decimal.Decimal
	OpensAt         *time.Time
	ClosesAt        *time.Time
	Rules           []RuleInput
}

// CreateAuction creates the race, its horses, the auction and its price
// rules atomically. The auction opens in the open state and accepts bids
// once its window starts.
func (s *Service) CreateAuction(ctx context.Context, caller Caller, req CreateAuctionRequest) (*models.Auction, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	var auction *models.Auction
	err := s.store.Atomic(ctx, func(tx *store.Store) error {
		race := &models.Race{
			Name:        strings.TrimSpace(req.RaceName),
			Venue:       strings.TrimSpace(req.Venue),
			RaceNumber:  req.RaceNumber,
			ScheduledAt: req.ScheduledAt,
			Status:      models.RaceScheduled,
		}
		if err := tx.CreateRace(ctx, race); err != nil {
			return fmt.Errorf("persist race: %w", err)
		}

		horseByNumber := make(map[int]uuid.UUID, len(req.Horses))
		for _, in := range req.Horses {
			horse := &models.Horse{
				RaceID:        race.ID,
				Number:        in.Number,
				Name:          strings.TrimSpace(in.Name),
				Jockey:        strings.TrimSpace(in.Jockey),
				Trainer:       strings.TrimSpace(in.Trainer),
				Comments:      in.Comments,
				StartingPrice: in.StartingPrice,
			}
			if err := tx.CreateHorse(ctx, horse); err != nil {
				return fmt.Errorf("persist horse %d: %w", in.Number, err)
			}
			horseByNumber[in.Number] = horse.ID
		}

		typ := req.Type
		if typ == "" {
			typ = models.AuctionLive
		}
		auction = &models.Auction{
			RaceID:          race.ID,
			Name:            strings.TrimSpace(req.Name),
			State:           models.AuctionOpen,
			Type:            typ,
			MinIncrement:    req.MinIncrement,
			MinimumBet:      req.MinimumBet,
			HousePercentage: req.HousePercentage,
			OpensAt:         req.OpensAt,
			ClosesAt:        req.ClosesAt,
		}
		if err := tx.CreateAuction(ctx, auction); err != nil {
			return fmt.Errorf("persist auction: %w", err)
		}

		return createRules(ctx, tx, auction.ID, req.Rules, horseByNumber)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("auction created",
		slog.String("auctionID", auction.ID.String()),
		slog.String("name", auction.Name),
		slog.Int("horses", len(req.Horses)))
	return auction, nil
}

// UpdateAuction applies the patch. Open and closed auctions accept
// updates; anything settled or terminal does not.
func (s *Service) UpdateAuction(ctx context.Context, caller Caller, auctionID uuid.UUID, req UpdateAuctionRequest) (*models.Auction, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}

	var auction *models.Auction
	err := s.store.Atomic(ctx, func(tx *store.Store) error {
		var err error
		auction, err = tx.GetAuction(ctx, auctionID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrAuctionNotFound
		}
		if err != nil {
			return err
		}
		if auction.Terminal() || auction.State == models.AuctionSettled {
			return fmt.Errorf("%w: cannot update a %s auction", ErrWrongState, auction.State)
		}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return fmt.Errorf("%w: name must not be empty", ErrInvalidAuction)
			}
			auction.Name = name
		}
		if req.Type != nil {
			if *req.Type != models.AuctionLive && *req.Type != models.AuctionAdvance {
				return fmt.Errorf("%w: unknown auction type %q", ErrInvalidAuction, *req.Type)
			}
			auction.Type = *req.Type
		}
		if req.MinIncrement != nil {
			if !req.MinIncrement.IsPositive() {
				return fmt.Errorf("%w: minimum increment must be positive", ErrInvalidAuction)
			}
			auction.MinIncrement = *req.MinIncrement
		}
		if req.MinimumBet != nil {
			if !req.MinimumBet.IsPositive() {
				return fmt.Errorf("%w: minimum bet must be positive", ErrInvalidAuction)
			}
			auction.MinimumBet = *req.MinimumBet
		}
		if req.HousePercentage != nil {
			if req.HousePercentage.IsNegative() || req.HousePercentage.GreaterThan(decimal.NewFromInt(100)) {
				return fmt.Errorf("%w: house percentage must be between 0 and 100", ErrInvalidAuction)
			}
			auction.HousePercentage = *req.HousePercentage
		}
		if req.OpensAt != nil {
			auction.OpensAt = *req.OpensAt
		}
		if req.ClosesAt != nil {
			auction.ClosesAt = *req.ClosesAt
		}
		if !auction.OpensAt.Before(auction.ClosesAt) {
			return fmt.Errorf("%w: the window must open before it closes", ErrInvalidAuction)
		}

		if req.Rules != nil {
			horses, err := tx.ListHorses(ctx, auction.RaceID)
			if err != nil {
				return err
			}
			horseByNumber := make(map[int]uuid.UUID, len(horses))
			for _, h := range horses {
				horseByNumber[h.Number] = h.ID
			}
			if err := validateRules(req.Rules, horseByNumber); err != nil {
				return err
			}
			if err := tx.DeleteRules(ctx, auction.ID); err != nil {
				return err
			}
			if err := createRules(ctx, tx, auction.ID, req.Rules, horseByNumber); err != nil {
				return err
			}
		}

		return tx.SaveAuction(ctx, auction)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("auction updated", slog.String("auctionID", auctionID.String()))
	return auction, nil
}

func validateCreate(req CreateAuctionRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidAuction)
	}
	if strings.TrimSpace(req.RaceName) == "" {
		return fmt.Errorf("%w: race name must not be empty", ErrInvalidAuction)
	}
	if req.Type != "" && req.Type != models.AuctionLive && req.Type != models.AuctionAdvance {
		return fmt.Errorf("%w: unknown auction type %q", ErrInvalidAuction, req.Type)
	}
	if !req.OpensAt.Before(req.ClosesAt) {
		return fmt.Errorf("%w: the window must open before it closes", ErrInvalidAuction)
	}
	if !req.MinIncrement.IsPositive() {
		return fmt.Errorf("%w: minimum increment must be positive", ErrInvalidAuction)
	}
	if !req.MinimumBet.IsPositive() {
		return fmt.Errorf("%w: minimum bet must be positive", ErrInvalidAuction)
	}
	if req.HousePercentage.IsNegative() || req.HousePercentage.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("%w: house percentage must be between 0 and 100", ErrInvalidAuction)
	}
	if len(req.Horses) == 0 {
		return fmt.Errorf("%w: at least one horse is required", ErrInvalidAuction)
	}

	numbers := make(map[int]struct{}, len(req.Horses))
	horseByNumber := make(map[int]uuid.UUID, len(req.Horses))
	for _, h := range req.Horses {
		if h.Number <= 0 {
			return fmt.Errorf("%w: horse numbers must be positive", ErrInvalidAuction)
		}
		if _, dup := numbers[h.Number]; dup {
			return fmt.Errorf("%w: duplicate horse number %d", ErrInvalidAuction, h.Number)
		}
		numbers[h.Number] = struct{}{}
		horseByNumber[h.Number] = uuid.Nil
		if strings.TrimSpace(h.Name) == "" {
			return fmt.Errorf("%w: horse %d has no name", ErrInvalidAuction, h.Number)
		}
		if h.StartingPrice.IsNegative() {
			return fmt.Errorf("%w: horse %d has a negative starting price", ErrInvalidAuction, h.Number)
		}
	}
	return validateRules(req.Rules, horseByNumber)
}

// validateRules checks every band through the core validator, per scope,
// and rejects bands naming a horse outside the field.
func validateRules(rules []RuleInput, horseByNumber map[int]uuid.UUID) error {
	scopes := make(map[int][]core.RuleBand)
	for _, r := range rules {
		scope := 0
		if r.HorseNumber != nil {
			if _, ok := horseByNumber[*r.HorseNumber]; !ok {
				return fmt.Errorf("%w: rule names horse %d outside the field", ErrInvalidAuction, *r.HorseNumber)
			}
			scope = *r.HorseNumber
		}
		scopes[scope] = append(scopes[scope], core.RuleBand{
			MinPrice:  r.MinPrice,
			MaxPrice:  r.MaxPrice,
			Increment: r.Increment,
		})
	}
	for scope, bands := range scopes {
		if err := core.ValidateBands(bands); err != nil {
			if scope == 0 {
				return fmt.Errorf("%w: default rules: %s", ErrInvalidAuction, err)
			}
			return fmt.Errorf("%w: rules for horse %d: %s", ErrInvalidAuction, scope, err)
		}
	}
	return nil
}

func createRules(ctx context.Context, tx *store.Store, auctionID uuid.UUID, rules []RuleInput, horseByNumber map[int]uuid.UUID) error {
	for _, in := range rules {
		rule := &models.PriceRule{
			AuctionID: auctionID,
			MinPrice:  in.MinPrice,
			MaxPrice:  in.MaxPrice,
			Increment: in.Increment,
		}
		if in.HorseNumber != nil {
			horseID, ok := horseByNumber[*in.HorseNumber]
			if !ok {
				return fmt.Errorf("%w: rule names horse %d outside the field", ErrInvalidAuction, *in.HorseNumber)
			}
			rule.HorseID = &horseID
		}
		if err := tx.CreateRule(ctx, rule); err != nil {
			return fmt.Errorf("persist price rule: %w", err)
		}
	}
	return nil
}
