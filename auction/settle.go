package auction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"remate/core"
	"remate/models"
	"remate/store"
)

// Settle determines the final standing of every horse, computes the pot
// and the house cut, charges the winning bid, refunds every other stake
// and credits the net prize, all in one transaction. Only closed
// auctions settle; any failure leaves the auction closed for retry.
func (s *Service) Settle(ctx context.Context, caller Caller, auctionID, winningHorseID uuid.UUID) (*models.Settlement, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}

	var settlement *models.Settlement
	err := s.store.Atomic(ctx, func(tx *store.Store) error {
		auction, err := tx.GetAuction(ctx, auctionID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrAuctionNotFound
		}
		if err != nil {
			return err
		}
		// Never close-then-settle implicitly: settling an open auction
		// is a caller mistake, not a shortcut.
		if auction.State != models.AuctionClosed {
			return fmt.Errorf("%w: cannot settle a %s auction", ErrWrongState, auction.State)
		}

		horses, err := tx.ListHorses(ctx, auction.RaceID)
		if err != nil {
			return err
		}
		bids, err := tx.ListBids(ctx, auction.ID)
		if err != nil {
			return err
		}

		byHorse := make(map[uuid.UUID][]core.BidEntry, len(horses))
		for _, b := range bids {
			byHorse[b.HorseID] = append(byHorse[b.HorseID], core.BidEntry{
				Bidder:   b.UserID,
				Amount:   b.Amount,
				PlacedAt: b.CreatedAt,
				Manual:   b.Manual,
			})
		}

		results := make([]core.HorseResult, 0, len(horses))
		for _, h := range horses {
			result := core.HorseResult{HorseID: h.ID, FinalPrice: h.StartingPrice}
			if leader, ok := core.CurrentLeader(byHorse[h.ID]); ok {
				result.FinalPrice = leader.Amount
				leaderCopy := leader
				result.Leader = &leaderCopy
			}
			results = append(results, result)
		}

		outcome, err := core.ComputeOutcome(results, winningHorseID, auction.HousePercentage)
		if errors.Is(err, core.ErrWinnerNotInField) {
			return ErrHorseNotInAuction
		}
		if err != nil {
			return err
		}

		if err := s.settleFunds(ctx, tx, auction, bids, outcome); err != nil {
			return err
		}

		settlement = &models.Settlement{
			AuctionID:     auction.ID,
			WinnerHorseID: winningHorseID,
			Pot:           outcome.Pot,
			HouseCut:      outcome.HouseCut,
			NetPrize:      outcome.NetPrize,
		}
		if outcome.Winner != nil {
			winnerID := outcome.Winner.Bidder
			settlement.WinnerUserID = &winnerID
		}
		if err := tx.CreateSettlement(ctx, settlement); err != nil {
			return err
		}

		now := s.clock.Now()
		auction.State = models.AuctionSettled
		auction.SettledAt = &now
		auction.WinnerHorseID = &winningHorseID
		if err := tx.SaveAuction(ctx, auction); err != nil {
			return err
		}
		return tx.CreateEvent(ctx, &models.AuctionEvent{
			AuctionID: auction.ID,
			ActorID:   &caller.ID,
			FromState: models.AuctionClosed,
			ToState:   models.AuctionSettled,
			Reason:    fmt.Sprintf("winning horse %s", winningHorseID),
		})
	})
	if err != nil {
		return nil, err
	}

	winnerLabel := "house"
	if settlement.WinnerUserID != nil {
		winnerLabel = settlement.WinnerUserID.String()
	}
	s.logger.Info("auction settled",
		slog.String("auctionID", auctionID.String()),
		slog.String("pot", settlement.Pot.String()),
		slog.String("houseCut", settlement.HouseCut.String()),
		slog.String("winner", winnerLabel))
	return settlement, nil
}

// settleFunds applies the fund movements of a settlement: the winning
// horse's leading stake is charged, every other stake is released, and
// the winner (if any) is credited the net prize. Losing bidders end up
// fully refunded.
func (s *Service) settleFunds(ctx context.Context, tx *store.Store, auction *models.Auction, bids []models.Bid, outcome core.Outcome) error {
	for userID, horses := range lockedStakes(bids) {
		wallet, err := tx.WalletByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("load wallet for settlement: %w", err)
		}
		for horseID, stake := range horses {
			horseID := horseID
			charged := outcome.Winner != nil && userID == outcome.Winner.Bidder && horseID == outcome.WinningHorse
			if charged {
				// The winning bid converts from locked to spent.
				wallet.Locked = wallet.Locked.Sub(stake)
				if err := tx.CreateMovement(ctx, &models.WalletMovement{
					WalletID:  wallet.ID,
					Kind:      models.MovementCharge,
					Amount:    stake,
					AuctionID: &auction.ID,
					HorseID:   &horseID,
				}); err != nil {
					return err
				}
				continue
			}
			wallet.Locked = wallet.Locked.Sub(stake)
			wallet.Available = wallet.Available.Add(stake)
			if err := tx.CreateMovement(ctx, &models.WalletMovement{
				WalletID:  wallet.ID,
				Kind:      models.MovementRelease,
				Amount:    stake,
				AuctionID: &auction.ID,
				HorseID:   &horseID,
			}); err != nil {
				return err
			}
		}
		if outcome.Winner != nil && userID == outcome.Winner.Bidder {
			wallet.Available = wallet.Available.Add(outcome.NetPrize)
			if err := tx.CreateMovement(ctx, &models.WalletMovement{
				WalletID:  wallet.ID,
				Kind:      models.MovementCredit,
				Amount:    outcome.NetPrize,
				AuctionID: &auction.ID,
				Note:      "net prize",
			}); err != nil {
				return err
			}
		}
		if err := tx.ApplyWallet(ctx, wallet); err != nil {
			if errors.Is(err, store.ErrStaleWallet) {
				return ErrConflict
			}
			return err
		}
	}
	return nil
}
