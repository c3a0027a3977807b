// Package store is the persistence boundary. Every query has a fixed
// result shape: callers get a record or ErrNotFound, never a
// sometimes-slice to normalize. Balance writes go through ApplyWallet,
// which enforces the wallet's optimistic version.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"remate/models"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrStaleWallet = errors.New("wallet was modified concurrently")
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Atomic runs fn inside one database transaction. The callback receives a
// Store bound to the transaction; any error rolls the whole unit back.
func (s *Store) Atomic(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// Migrate creates or updates the schema for all models. Production setups
// run atlas against tools/atlas instead; this backs dev and tests.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(
		&models.User{},
		&models.Wallet{},
		&models.WalletMovement{},
		&models.Race{},
		&models.Horse{},
		&models.Auction{},
		&models.AuctionEvent{},
		&models.PriceRule{},
		&models.Bid{},
		&models.Settlement{},
		&models.DepositRequest{},
		&models.WithdrawalRequest{},
	)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if result := s.db.WithContext(ctx).First(&user, "id = ?", id); result.Error != nil {
		return nil, notFound(result.Error)
	}
	return &user, nil
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Create(user).Error
}

func (s *Store) GetAuction(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	var auction models.Auction
	if result := s.db.WithContext(ctx).Preload("Race").First(&auction, "id = ?", id); result.Error != nil {
		return nil, notFound(result.Error)
	}
	return &auction, nil
}

func (s *Store) SaveAuction(ctx context.Context, auction *models.Auction) error {
	return s.db.WithContext(ctx).Save(auction).Error
}

func (s *Store) CreateAuction(ctx context.Context, auction *models.Auction) error {
	return s.db.WithContext(ctx).Create(auction).Error
}

// ListAuctions returns auctions filtered by state and type, newest first.
// Nil filters match everything.
func (s *Store) ListAuctions(ctx context.Context, state *models.AuctionState, typ *models.AuctionType) ([]models.Auction, error) {
	query := s.db.WithContext(ctx).Model(&models.Auction{}).Preload("Race")
	if state != nil {
		query = query.Where("state = ?", *state)
	}
	if typ != nil {
		query = query.Where("type = ?", *typ)
	}
	var auctions []models.Auction
	if result := query.Order("opens_at DESC").Find(&auctions); result.Error != nil {
		return nil, result.Error
	}
	return auctions, nil
}

// ListExpiredOpenAuctions returns open auctions whose close time has
// passed, for the auto-close worker.
func (s *Store) ListExpiredOpenAuctions(ctx context.Context, now time.Time) ([]models.Auction, error) {
	var auctions []models.Auction
	result := s.db.WithContext(ctx).
		Where("state = ? AND closes_at <= ?", models.AuctionOpen, now).
		Find(&auctions)
	if result.Error != nil {
		return nil, result.Error
	}
	return auctions, nil
}

func (s *Store) CreateRace(ctx context.Context, race *models.Race) error {
	return s.db.WithContext(ctx).Create(race).Error
}

func (s *Store) SaveRace(ctx context.Context, race *models.Race) error {
	return s.db.WithContext(ctx).Save(race).Error
}

func (s *Store) GetHorse(ctx context.Context, id uuid.UUID) (*models.Horse, error) {
	var horse models.Horse
	if result := s.db.WithContext(ctx).First(&horse, "id = ?", id); result.Error != nil {
		return nil, notFound(result.Error)
	}
	return &horse, nil
}

func (s *Store) CreateHorse(ctx context.Context, horse *models.Horse) error {
	return s.db.WithContext(ctx).Create(horse).Error
}

func (s *Store) SaveHorse(ctx context.Context, horse *models.Horse) error {
	return s.db.WithContext(ctx).Save(horse).Error
}

// ListHorses returns the race's field ordered by saddle number.
func (s *Store) ListHorses(ctx context.Context, raceID uuid.UUID) ([]models.Horse, error) {
	var horses []models.Horse
	result := s.db.WithContext(ctx).
		Where("race_id = ?", raceID).
		Order("number ASC").
		Find(&horses)
	if result.Error != nil {
		return nil, result.Error
	}
	return horses, nil
}

func (s *Store) CreateRule(ctx context.Context, rule *models.PriceRule) error {
	return s.db.WithContext(ctx).Create(rule).Error
}

func (s *Store) ListRules(ctx context.Context, auctionID uuid.UUID) ([]models.PriceRule, error) {
	var rules []models.PriceRule
	result := s.db.WithContext(ctx).
		Where("auction_id = ?", auctionID).
		Order("min_price ASC").
		Find(&rules)
	if result.Error != nil {
		return nil, result.Error
	}
	return rules, nil
}

func (s *Store) DeleteRules(ctx context.Context, auctionID uuid.UUID) error {
	return s.db.WithContext(ctx).
		Where("auction_id = ?", auctionID).
		Delete(&models.PriceRule{}).Error
}

func (s *Store) CreateBid(ctx context.Context, bid *models.Bid) error {
	return s.db.WithContext(ctx).Create(bid).Error
}

// ListBids returns all bids of the auction in commit order, bidders
// preloaded.
func (s *Store) ListBids(ctx context.Context, auctionID uuid.UUID) ([]models.Bid, error) {
	var bids []models.Bid
	result := s.db.WithContext(ctx).
		Preload("User").
		Where("auction_id = ?", auctionID).
		Order("created_at ASC").
		Find(&bids)
	if result.Error != nil {
		return nil, result.Error
	}
	return bids, nil
}

// ListHorseBids returns one horse's bid log in commit order, bidders
// preloaded.
func (s *Store) ListHorseBids(ctx context.Context, auctionID, horseID uuid.UUID) ([]models.Bid, error) {
	var bids []models.Bid
	result := s.db.WithContext(ctx).
		Preload("User").
		Where("auction_id = ? AND horse_id = ?", auctionID, horseID).
		Order("created_at ASC").
		Find(&bids)
	if result.Error != nil {
		return nil, result.Error
	}
	return bids, nil
}

func (s *Store) CreateEvent(ctx context.Context, event *models.AuctionEvent) error {
	return s.db.WithContext(ctx).Create(event).Error
}

func (s *Store) ListEvents(ctx context.Context, auctionID uuid.UUID) ([]models.AuctionEvent, error) {
	var events []models.AuctionEvent
	result := s.db.WithContext(ctx).
		Where("auction_id = ?", auctionID).
		Order("created_at ASC").
		Find(&events)
	if result.Error != nil {
		return nil, result.Error
	}
	return events, nil
}

func (s *Store) CreateSettlement(ctx context.Context, settlement *models.Settlement) error {
	return s.db.WithContext(ctx).Create(settlement).Error
}

func (s *Store) GetSettlement(ctx context.Context, auctionID uuid.UUID) (*models.Settlement, error) {
	var settlement models.Settlement
	if result := s.db.WithContext(ctx).First(&settlement, "auction_id = ?", auctionID); result.Error != nil {
		return nil, notFound(result.Error)
	}
	return &settlement, nil
}

func (s *Store) CreateWallet(ctx context.Context, wallet *models.Wallet) error {
	return s.db.WithContext(ctx).Create(wallet).Error
}

func (s *Store) WalletByUser(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	if result := s.db.WithContext(ctx).First(&wallet, "user_id = ?", userID); result.Error != nil {
		return nil, notFound(result.Error)
	}
	return &wallet, nil
}

// ApplyWallet writes the wallet's balances guarded by the version the
// caller read. A concurrent mutation leaves zero rows updated and
// surfaces as ErrStaleWallet; the caller re-reads and retries or aborts.
func (s *Store) ApplyWallet(ctx context.Context, wallet *models.Wallet) error {
	result := s.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("id = ? AND version = ?", wallet.ID, wallet.Version).
		Updates(map[string]any{
			"available": wallet.Available,
			"locked":    wallet.Locked,
			"version":   wallet.Version + 1,
		})
	if result.Error != nil {
		return fmt.Errorf("apply wallet: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrStaleWallet
	}
	wallet.Version++
	return nil
}

func (s *Store) CreateMovement(ctx context.Context, movement *models.WalletMovement) error {
	return s.db.WithContext(ctx).Create(movement).Error
}

// ListMovements returns one wallet's movement trail, newest first.
func (s *Store) ListMovements(ctx context.Context, walletID uuid.UUID) ([]models.WalletMovement, error) {
	var movements []models.WalletMovement
	result := s.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("created_at DESC").
		Find(&movements)
	if result.Error != nil {
		return nil, result.Error
	}
	return movements, nil
}

// ListWallets pages over all wallets with their owners, for the
// super-admin panel.
func (s *Store) ListWallets(ctx context.Context, offset, limit int) ([]models.Wallet, error) {
	var wallets []models.Wallet
	result := s.db.WithContext(ctx).
		Preload("User").
		Order("created_at ASC").
		Offset(offset).
		Limit(limit).
		Find(&wallets)
	if result.Error != nil {
		return nil, result.Error
	}
	return wallets, nil
}
