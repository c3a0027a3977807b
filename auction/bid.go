package auction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"remate/core"
	"remate/models"
	"remate/store"
)

// BidRequest is one bid submission. Amount is only honored for manual
// bids; an auto bid is always admitted at exactly the next auto minimum
// computed at commit time.
type BidRequest struct {
	AuctionID uuid.UUID
	HorseID   uuid.UUID
	Amount    decimal.Decimal
	Manual    bool
}

// PlaceBid validates and admits one bid. The horse's distributed lock is
// held across the whole admission so the ladder is always computed
// against the latest admitted bid; persisting the bid and locking the
// incremental funds happen in one transaction.
func (s *Service) PlaceBid(ctx context.Context, caller Caller, req BidRequest) (*models.Bid, error) {
	if caller.ID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	if caller.Privileged() {
		return nil, ErrHouseCannotBid
	}

	// Key namespacing is the factory's concern; the engine only names the
	// horse being serialized.
	mutex := s.locks(fmt.Sprintf("auction:%s:horse:%s:bid-lock", req.AuctionID, req.HorseID))
	lockCtx, err := mutex.Lock(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire bid lock: %w", err)
	}
	defer func() {
		if _, err := mutex.Unlock(); err != nil {
			s.logger.Warn("failed to release bid lock",
				slog.String("auctionID", req.AuctionID.String()),
				slog.Any("error", err))
		}
	}()

	var (
		bid   *models.Bid
		horse *models.Horse
	)
	err = s.store.Atomic(lockCtx, func(tx *store.Store) error {
		auction, err := tx.GetAuction(lockCtx, req.AuctionID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrAuctionNotFound
		}
		if err != nil {
			return err
		}
		if auction.State != models.AuctionOpen {
			return fmt.Errorf("%w: auction is %s", ErrNotOpen, auction.State)
		}
		// The clock decides, not the stored state: once the close time
		// has passed bids are rejected even if the close transition has
		// not run yet.
		now := s.clock.Now()
		if now.Before(auction.OpensAt) || !now.Before(auction.ClosesAt) {
			return fmt.Errorf("%w: bidding runs %s to %s", ErrOutsideWindow,
				auction.OpensAt.Format(timeLayout), auction.ClosesAt.Format(timeLayout))
		}

		horse, err = tx.GetHorse(lockCtx, req.HorseID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrHorseNotInAuction
		}
		if err != nil {
			return err
		}
		if horse.RaceID != auction.RaceID {
			return ErrHorseNotInAuction
		}

		rules, err := tx.ListRules(lockCtx, auction.ID)
		if err != nil {
			return err
		}
		horseBids, err := tx.ListHorseBids(lockCtx, auction.ID, horse.ID)
		if err != nil {
			return err
		}
		entries := bidEntries(horseBids)
		ladder := core.ComputeLadder(horse.ID, horse.StartingPrice, entries, ruleSetOf(auction, rules), auction.MinimumBet)

		amount := ladder.NextAutoMin
		if req.Manual {
			if req.Amount.LessThan(ladder.NextManualMin) {
				return fmt.Errorf("%w: manual bids start at %s", ErrBidTooLow, ladder.NextManualMin)
			}
			amount = req.Amount
		}

		// A bidder re-raising their own lead only locks the delta; their
		// previous lock on this horse already holds the rest.
		required := amount.Sub(core.BidderMax(entries, caller.ID))
		if required.IsNegative() {
			required = decimal.Zero
		}

		wallet, err := tx.WalletByUser(lockCtx, caller.ID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrNoWallet
		}
		if err != nil {
			return err
		}
		if wallet.Available.LessThan(required) {
			return fmt.Errorf("%w: available %s, required %s", ErrInsufficientFunds, wallet.Available, required)
		}

		bid = &models.Bid{
			AuctionID: auction.ID,
			HorseID:   horse.ID,
			UserID:    caller.ID,
			Amount:    amount,
			Manual:    req.Manual,
		}
		bid.CreatedAt = now
		if err := tx.CreateBid(lockCtx, bid); err != nil {
			return fmt.Errorf("persist bid: %w", err)
		}

		if required.IsPositive() {
			wallet.Available = wallet.Available.Sub(required)
			wallet.Locked = wallet.Locked.Add(required)
			if err := tx.ApplyWallet(lockCtx, wallet); err != nil {
				if errors.Is(err, store.ErrStaleWallet) {
					return ErrConflict
				}
				return err
			}
			movement := &models.WalletMovement{
				WalletID:  wallet.ID,
				Kind:      models.MovementLock,
				Amount:    required,
				AuctionID: &auction.ID,
				HorseID:   &horse.ID,
			}
			if err := tx.CreateMovement(lockCtx, movement); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("bid admitted",
		slog.String("auctionID", req.AuctionID.String()),
		slog.Int("horse", horse.Number),
		slog.String("user", caller.ID.String()),
		slog.String("amount", bid.Amount.String()),
		slog.Bool("manual", bid.Manual))
	s.publish(BidEvent{
		AuctionID:   bid.AuctionID.String(),
		HorseID:     bid.HorseID.String(),
		HorseNumber: horse.Number,
		Bidder:      caller.Username,
		Amount:      bid.Amount.String(),
		Manual:      bid.Manual,
		PlacedAt:    bid.CreatedAt,
	})
	return bid, nil
}

func (s *Service) publish(event BidEvent) {
	if s.pub == nil {
		return
	}
	if err := s.pub.Publish(event); err != nil {
		s.logger.Error("failed to publish bid event", slog.Any("error", err))
	}
}

const timeLayout = "2006-01-02 15:04:05 MST"
