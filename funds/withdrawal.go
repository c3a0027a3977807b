package funds

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"remate/models"
	"remate/notify"
	"remate/store"
)

// WithdrawalInput asks for available funds to be paid out off-platform.
type WithdrawalInput struct {
	Amount      decimal.Decimal
	Method      string
	Destination string
}

// RequestWithdrawal files a payout request. The amount stays available
// while the request is pending; approval re-checks the balance before
// debiting.
func (s *Service) RequestWithdrawal(ctx context.Context, caller Caller, in WithdrawalInput) (*models.WithdrawalRequest, error) {
	if caller.ID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	}
	if strings.TrimSpace(in.Method) == "" {
		return nil, fmt.Errorf("%w: payout method is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(in.Destination) == "" {
		return nil, fmt.Errorf("%w: payout destination is required", ErrInvalidRequest)
	}

	wallet, err := s.ensureWallet(ctx, s.store, caller.ID)
	if err != nil {
		return nil, err
	}
	if wallet.Available.LessThan(in.Amount) {
		return nil, fmt.Errorf("%w: available %s, requested %s", ErrInsufficientFunds, wallet.Available, in.Amount)
	}

	req := &models.WithdrawalRequest{
		UserID:      caller.ID,
		Amount:      in.Amount,
		Method:      strings.TrimSpace(in.Method),
		Destination: strings.TrimSpace(in.Destination),
		Status:      models.RequestPending,
	}
	if err := s.store.CreateWithdrawal(ctx, req); err != nil {
		return nil, fmt.Errorf("persist withdrawal request: %w", err)
	}

	s.logger.Info("withdrawal requested",
		slog.String("requestID", req.ID.String()),
		slog.String("user", caller.Username),
		slog.String("amount", req.Amount.String()))
	return req, nil
}

// ListWithdrawals returns withdrawal requests, optionally filtered by
// status. Admins see all; users see their own.
func (s *Service) ListWithdrawals(ctx context.Context, caller Caller, status *models.RequestStatus) ([]models.WithdrawalRequest, error) {
	if caller.ID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	reqs, err := s.store.ListWithdrawals(ctx, status)
	if err != nil {
		return nil, err
	}
	if caller.Privileged() {
		return reqs, nil
	}
	own := reqs[:0]
	for _, r := range reqs {
		if r.UserID == caller.ID {
			own = append(own, r)
		}
	}
	return own, nil
}

// DecideWithdrawal approves or rejects a pending withdrawal. Approval
// re-checks and debits the available balance; bids placed since the
// request may have consumed it.
func (s *Service) DecideWithdrawal(ctx context.Context, caller Caller, requestID uuid.UUID, approve bool, reason string) (*models.WithdrawalRequest, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if !approve && reason == "" {
		return nil, ErrReasonRequired
	}

	var req *models.WithdrawalRequest
	err := s.store.Atomic(ctx, func(tx *store.Store) error {
		var err error
		req, err = tx.GetWithdrawal(ctx, requestID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrRequestNotFound
		}
		if err != nil {
			return err
		}
		if req.Status != models.RequestPending {
			return ErrAlreadyDecided
		}

		now := s.clock.Now()
		req.DecidedBy = &caller.ID
		req.DecidedAt = &now
		req.DecisionReason = reason
		if !approve {
			req.Status = models.RequestRejected
			return tx.SaveWithdrawal(ctx, req)
		}

		wallet, err := s.ensureWallet(ctx, tx, req.UserID)
		if err != nil {
			return err
		}
		if wallet.Available.LessThan(req.Amount) {
			return fmt.Errorf("%w: available %s, requested %s", ErrInsufficientFunds, wallet.Available, req.Amount)
		}
		wallet.Available = wallet.Available.Sub(req.Amount)
		if err := tx.ApplyWallet(ctx, wallet); err != nil {
			if errors.Is(err, store.ErrStaleWallet) {
				return ErrConflict
			}
			return err
		}
		if err := tx.CreateMovement(ctx, &models.WalletMovement{
			WalletID: wallet.ID,
			Kind:     models.MovementWithdrawal,
			Amount:   req.Amount,
			Note:     "withdrawal to " + req.Destination,
		}); err != nil {
			return err
		}
		req.Status = models.RequestApproved
		return tx.SaveWithdrawal(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("withdrawal decided",
		slog.String("requestID", req.ID.String()),
		slog.Bool("approved", approve),
		slog.String("admin", caller.Username))
	if req.User != nil && req.User.Email != "" {
		s.sendMail(ctx, withdrawalDecisionMail(req))
	}
	return req, nil
}

func withdrawalDecisionMail(req *models.WithdrawalRequest) notify.Message {
	if req.Status == models.RequestApproved {
		return notify.Message{
			To:      []string{req.User.Email},
			Subject: "Withdrawal approved",
			Body: fmt.Sprintf("Your withdrawal of %s to %s was approved and will be paid out shortly.",
				req.Amount, req.Destination),
		}
	}
	return notify.Message{
		To:      []string{req.User.Email},
		Subject: "Withdrawal rejected",
		Body: fmt.Sprintf("Your withdrawal of %s was rejected: %s",
			req.Amount, req.DecisionReason),
	}
}
