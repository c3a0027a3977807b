package auction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"remate/models"
	"remate/store"
)

// CloseAuction moves an open auction to closed. Admin action; closing an
// already-closed auction is rejected without side effects.
func (s *Service) CloseAuction(ctx context.Context, caller Caller, auctionID uuid.UUID) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	return s.close(ctx, &caller.ID, auctionID, "")
}

// CloseExpired closes every open auction whose close time has passed.
// Run periodically by the auto-close worker; transitions carry the system
// actor. Returns the IDs it closed.
func (s *Service) CloseExpired(ctx context.Context) ([]uuid.UUID, error) {
	expired, err := s.store.ListExpiredOpenAuctions(ctx, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("list expired auctions: %w", err)
	}
	var closed []uuid.UUID
	for _, auction := range expired {
		if err := s.close(ctx, nil, auction.ID, "close time reached"); err != nil {
			// Another instance may have won the race; keep going.
			if errors.Is(err, ErrWrongState) {
				continue
			}
			return closed, err
		}
		closed = append(closed, auction.ID)
	}
	return closed, nil
}

func (s *Service) close(ctx context.Context, actor *uuid.UUID, auctionID uuid.UUID, reason string) error {
	err := s.store.Atomic(ctx, func(tx *store.Store) error {
		auction, err := tx.GetAuction(ctx, auctionID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrAuctionNotFound
		}
		if err != nil {
			return err
		}
		if auction.State != models.AuctionOpen {
			return fmt.Errorf("%w: cannot close a %s auction", ErrWrongState, auction.State)
		}
		now := s.clock.Now()
		auction.State = models.AuctionClosed
		auction.ClosedAt = &now
		if err := tx.SaveAuction(ctx, auction); err != nil {
			return err
		}
		return tx.CreateEvent(ctx, &models.AuctionEvent{
			AuctionID: auction.ID,
			ActorID:   actor,
			FromState: models.AuctionOpen,
			ToState:   models.AuctionClosed,
			Reason:    reason,
		})
	})
	if err != nil {
		return err
	}
	s.logger.Info("auction closed", slog.String("auctionID", auctionID.String()), slog.Bool("automatic", actor == nil))
	return nil
}

// CancelAuction aborts an open auction: every locked stake in it returns
// to its bidder's available balance and the auction becomes terminally
// cancelled. The reason is mandatory.
func (s *Service) CancelAuction(ctx context.Context, caller Caller, auctionID uuid.UUID, reason string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return fmt.Errorf("%w: cancellation reason", ErrReasonRequired)
	}

	err := s.store.Atomic(ctx, func(tx *store.Store) error {
		auction, err := tx.GetAuction(ctx, auctionID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrAuctionNotFound
		}
		if err != nil {
			return err
		}
		if auction.State != models.AuctionOpen {
			return fmt.Errorf("%w: cannot cancel a %s auction", ErrWrongState, auction.State)
		}

		bids, err := tx.ListBids(ctx, auction.ID)
		if err != nil {
			return err
		}
		for userID, horses := range lockedStakes(bids) {
			total := decimal.Zero
			for _, stake := range horses {
				total = total.Add(stake)
			}
			if err := s.releaseFunds(ctx, tx, userID, total, auction.ID, nil, "auction cancelled: "+reason); err != nil {
				return err
			}
		}

		now := s.clock.Now()
		auction.State = models.AuctionCancelled
		auction.CancelledAt = &now
		auction.CancelReason = reason
		if err := tx.SaveAuction(ctx, auction); err != nil {
			return err
		}
		return tx.CreateEvent(ctx, &models.AuctionEvent{
			AuctionID: auction.ID,
			ActorID:   &caller.ID,
			FromState: models.AuctionOpen,
			ToState:   models.AuctionCancelled,
			Reason:    reason,
		})
	})
	if err != nil {
		return err
	}
	s.logger.Info("auction cancelled", slog.String("auctionID", auctionID.String()), slog.String("reason", reason))
	return nil
}

// ArchiveAuction hides a closed or settled auction. Housekeeping only, no
// fund movement; the reason is mandatory and the state is terminal.
func (s *Service) ArchiveAuction(ctx context.Context, caller Caller, auctionID uuid.UUID, reason string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return fmt.Errorf("%w: archive reason", ErrReasonRequired)
	}

	err := s.store.Atomic(ctx, func(tx *store.Store) error {
		auction, err := tx.GetAuction(ctx, auctionID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrAuctionNotFound
		}
		if err != nil {
			return err
		}
		if auction.State != models.AuctionClosed && auction.State != models.AuctionSettled {
			return fmt.Errorf("%w: cannot archive a %s auction", ErrWrongState, auction.State)
		}
		from := auction.State
		now := s.clock.Now()
		auction.State = models.AuctionArchived
		auction.ArchivedAt = &now
		auction.ArchiveReason = reason
		if err := tx.SaveAuction(ctx, auction); err != nil {
			return err
		}
		return tx.CreateEvent(ctx, &models.AuctionEvent{
			AuctionID: auction.ID,
			ActorID:   &caller.ID,
			FromState: from,
			ToState:   models.AuctionArchived,
			Reason:    reason,
		})
	})
	if err != nil {
		return err
	}
	s.logger.Info("auction archived", slog.String("auctionID", auctionID.String()))
	return nil
}

func requireAdmin(caller Caller) error {
	if caller.ID == uuid.Nil {
		return ErrUnauthenticated
	}
	if !caller.Privileged() {
		return ErrNotAdmin
	}
	return nil
}

// releaseFunds moves amount from locked back to available for the user
// and records the movement.
func (s *Service) releaseFunds(ctx context.Context, tx *store.Store, userID uuid.UUID, amount decimal.Decimal, auctionID uuid.UUID, horseID *uuid.UUID, note string) error {
	if !amount.IsPositive() {
		return nil
	}
	wallet, err := tx.WalletByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("load wallet for release: %w", err)
	}
	wallet.Locked = wallet.Locked.Sub(amount)
	wallet.Available = wallet.Available.Add(amount)
	if err := tx.ApplyWallet(ctx, wallet); err != nil {
		if errors.Is(err, store.ErrStaleWallet) {
			return ErrConflict
		}
		return err
	}
	return tx.CreateMovement(ctx, &models.WalletMovement{
		WalletID:  wallet.ID,
		Kind:      models.MovementRelease,
		Amount:    amount,
		AuctionID: &auctionID,
		HorseID:   horseID,
		Note:      note,
	})
}
