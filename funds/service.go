// Package funds manages user money outside the bidding engine: balances,
// deposit and withdrawal requests with their admin review, and the
// back-office accounting view.
package funds

import (
	"context"
	"errors"
	"log/slog"

	"code.cloudfoundry.org/clock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"remate/auction"
	"remate/models"
	"remate/notify"
	"remate/store"
)

// Caller is the shared caller identity of the platform.
type Caller = auction.Caller

var (
	ErrUnauthenticated   = errors.New("authentication required")
	ErrNotAdmin          = errors.New("administrator role required")
	ErrNotSuperAdmin     = errors.New("super administrator role required")
	ErrRequestNotFound   = errors.New("funding request not found")
	ErrNotOwner          = errors.New("request belongs to another user")
	ErrAlreadyDecided    = errors.New("request was already decided")
	ErrInvalidRequest    = errors.New("invalid funding request")
	ErrReasonRequired    = errors.New("a rejection reason is required")
	ErrInsufficientFunds = errors.New("insufficient available balance")
	ErrConflict          = errors.New("concurrent modification detected, retry")
)

// Notifier delivers funding mail. Failures are logged, never propagated:
// a decision stands whether or not the mail got out.
type Notifier interface {
	Send(ctx context.Context, msg notify.Message) error
}

type Service struct {
	store    *store.Store
	clock    clock.Clock
	notifier Notifier
	logger   *slog.Logger
}

type Option func(*Service)

// WithNotifier installs the mail notifier for funding decisions.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
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
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Balance returns the caller's wallet, creating an empty one on first
// access.
func (s *Service) Balance(ctx context.Context, caller Caller) (*models.Wallet, error) {
	if caller.ID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	return s.ensureWallet(ctx, s.store, caller.ID)
}

// Movements returns the caller's wallet movement trail, newest first.
func (s *Service) Movements(ctx context.Context, caller Caller) ([]models.WalletMovement, error) {
	if caller.ID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	wallet, err := s.ensureWallet(ctx, s.store, caller.ID)
	if err != nil {
		return nil, err
	}
	return s.store.ListMovements(ctx, wallet.ID)
}

// Wallets pages over every wallet with its owner. Super admins only.
func (s *Service) Wallets(ctx context.Context, caller Caller, offset, limit int) ([]models.Wallet, error) {
	if caller.ID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	if !caller.IsSuperAdmin {
		return nil, ErrNotSuperAdmin
	}
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return s.store.ListWallets(ctx, offset, limit)
}

// Accounting returns the back-office money summary. Admins only.
func (s *Service) Accounting(ctx context.Context, caller Caller) (store.AccountingSummary, error) {
	if err := requireAdmin(caller); err != nil {
		return store.AccountingSummary{}, err
	}
	return s.store.Accounting(ctx)
}

func (s *Service) ensureWallet(ctx context.Context, st *store.Store, userID uuid.UUID) (*models.Wallet, error) {
	wallet, err := st.WalletByUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		wallet = &models.Wallet{
			UserID:    userID,
			Available: decimal.Zero,
			Locked:    decimal.Zero,
		}
		if err := st.CreateWallet(ctx, wallet); err != nil {
			return nil, err
		}
		return wallet, nil
	}
	return wallet, err
}

func (s *Service) sendMail(ctx context.Context, msg notify.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.Warn("failed to send funding mail",
			slog.String("subject", msg.Subject),
			slog.Any("error", err))
	}
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
