package funds

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"remate/models"
	"remate/notify"
	"remate/store"
)

// DepositInput is a user's claim of an off-platform payment.
type DepositInput struct {
	Amount       decimal.Decimal
	Method       string
	PaymentPhone string
	Reference    string
	PaidAt       time.Time
}

// RequestDeposit files a deposit claim for admin review. Nothing is
// credited until an admin approves it.
func (s *Service) RequestDeposit(ctx context.Context, caller Caller, in DepositInput) (*models.DepositRequest, error) {
	if caller.ID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	}
	if strings.TrimSpace(in.Method) == "" {
		return nil, fmt.Errorf("%w: payment method is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(in.Reference) == "" {
		return nil, fmt.Errorf("%w: payment reference is required", ErrInvalidRequest)
	}
	if in.PaidAt.IsZero() {
		in.PaidAt = s.clock.Now()
	}

	req := &models.DepositRequest{
		UserID:       caller.ID,
		Amount:       in.Amount,
		Method:       strings.TrimSpace(in.Method),
		PaymentPhone: strings.TrimSpace(in.PaymentPhone),
		Reference:    strings.TrimSpace(in.Reference),
		PaidAt:       in.PaidAt,
		Status:       models.RequestPending,
	}
	if err := s.store.CreateDeposit(ctx, req); err != nil {
		return nil, fmt.Errorf("persist deposit request: %w", err)
	}

	s.logger.Info("deposit requested",
		slog.String("requestID", req.ID.String()),
		slog.String("user", caller.Username),
		slog.String("amount", req.Amount.String()))
	return req, nil
}

// receiptTarget loads the deposit request a receipt is aimed at and
// checks the caller may touch it: the requester only, and only while it
// is pending.
func (s *Service) receiptTarget(ctx context.Context, caller Caller, requestID uuid.UUID) (*models.DepositRequest, error) {
	if caller.ID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	req, err := s.store.GetDeposit(ctx, requestID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	if req.UserID != caller.ID {
		return nil, ErrNotOwner
	}
	if req.Status != models.RequestPending {
		return nil, ErrAlreadyDecided
	}
	return req, nil
}

// AuthorizeReceipt checks that the caller may attach a receipt to the
// deposit request. Callers storing the image externally must run this
// check before the upload, not after: the object key is derived from the
// request id, so an unauthorized upload would overwrite the owner's
// receipt even when the attach step later refuses.
func (s *Service) AuthorizeReceipt(ctx context.Context, caller Caller, requestID uuid.UUID) error {
	_, err := s.receiptTarget(ctx, caller, requestID)
	return err
}

// AttachReceipt stores the uploaded receipt location on a pending deposit
// request. Only the requester may attach one.
func (s *Service) AttachReceipt(ctx context.Context, caller Caller, requestID uuid.UUID, url string) error {
	if strings.TrimSpace(url) == "" {
		return fmt.Errorf("%w: receipt location is required", ErrInvalidRequest)
	}
	req, err := s.receiptTarget(ctx, caller, requestID)
	if err != nil {
		return err
	}
	req.ReceiptURL = &url
	return s.store.SaveDeposit(ctx, req)
}

// ListDeposits returns deposit requests, optionally filtered by status.
// Admins see all; users see their own.
func (s *Service) ListDeposits(ctx context.Context, caller Caller, status *models.RequestStatus) ([]models.DepositRequest, error) {
	if caller.ID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	reqs, err := s.store.ListDeposits(ctx, status)
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

// DecideDeposit approves or rejects a pending deposit. Approval credits
// the requester's wallet; rejection requires a reason. The requester is
// notified by mail either way.
func (s *Service) DecideDeposit(ctx context.Context, caller Caller, requestID uuid.UUID, approve bool, reason string) (*models.DepositRequest, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if !approve && reason == "" {
		return nil, ErrReasonRequired
	}

	var req *models.DepositRequest
	err := s.store.Atomic(ctx, func(tx *store.Store) error {
		var err error
		req, err = tx.GetDeposit(ctx, requestID)
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
			return tx.SaveDeposit(ctx, req)
		}

		req.Status = models.RequestApproved
		wallet, err := s.ensureWallet(ctx, tx, req.UserID)
		if err != nil {
			return err
		}
		wallet.Available = wallet.Available.Add(req.Amount)
		if err := tx.ApplyWallet(ctx, wallet); err != nil {
			if errors.Is(err, store.ErrStaleWallet) {
				return ErrConflict
			}
			return err
		}
		if err := tx.CreateMovement(ctx, &models.WalletMovement{
			WalletID: wallet.ID,
			Kind:     models.MovementDeposit,
			Amount:   req.Amount,
			Note:     "deposit " + req.Reference,
		}); err != nil {
			return err
		}
		return tx.SaveDeposit(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("deposit decided",
		slog.String("requestID", req.ID.String()),
		slog.Bool("approved", approve),
		slog.String("admin", caller.Username))
	if req.User != nil && req.User.Email != "" {
		s.sendMail(ctx, depositDecisionMail(req))
	}
	return req, nil
}

func depositDecisionMail(req *models.DepositRequest) notify.Message {
	if req.Status == models.RequestApproved {
		return notify.Message{
			To:      []string{req.User.Email},
			Subject: "Deposit approved",
			Body: fmt.Sprintf("Your deposit of %s (reference %s) was approved and credited to your balance.",
				req.Amount, req.Reference),
		}
	}
	return notify.Message{
		To:      []string{req.User.Email},
		Subject: "Deposit rejected",
		Body: fmt.Sprintf("Your deposit of %s (reference %s) was rejected: %s",
			req.Amount, req.Reference, req.DecisionReason),
	}
}
