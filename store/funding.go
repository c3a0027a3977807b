package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"remate/models"
)

func (s *Store) CreateDeposit(ctx context.Context, req *models.DepositRequest) error {
	return s.db.WithContext(ctx).Create(req).Error
}

func (s *Store) GetDeposit(ctx context.Context, id uuid.UUID) (*models.DepositRequest, error) {
	var req models.DepositRequest
	if result := s.db.WithContext(ctx).Preload("User").First(&req, "id = ?", id); result.Error != nil {
		return nil, notFound(result.Error)
	}
	return &req, nil
}

func (s *Store) SaveDeposit(ctx context.Context, req *models.DepositRequest) error {
	return s.db.WithContext(ctx).Save(req).Error
}

func (s *Store) ListDeposits(ctx context.Context, status *models.RequestStatus) ([]models.DepositRequest, error) {
	query := s.db.WithContext(ctx).Preload("User")
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var reqs []models.DepositRequest
	if result := query.Order("created_at DESC").Find(&reqs); result.Error != nil {
		return nil, result.Error
	}
	return reqs, nil
}

func (s *Store) CreateWithdrawal(ctx context.Context, req *models.WithdrawalRequest) error {
	return s.db.WithContext(ctx).Create(req).Error
}

func (s *Store) GetWithdrawal(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	var req models.WithdrawalRequest
	if result := s.db.WithContext(ctx).Preload("User").First(&req, "id = ?", id); result.Error != nil {
		return nil, notFound(result.Error)
	}
	return &req, nil
}

func (s *Store) SaveWithdrawal(ctx context.Context, req *models.WithdrawalRequest) error {
	return s.db.WithContext(ctx).Save(req).Error
}

func (s *Store) ListWithdrawals(ctx context.Context, status *models.RequestStatus) ([]models.WithdrawalRequest, error) {
	query := s.db.WithContext(ctx).Preload("User")
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var reqs []models.WithdrawalRequest
	if result := query.Order("created_at DESC").Find(&reqs); result.Error != nil {
		return nil, result.Error
	}
	return reqs, nil
}

// AccountingSummary aggregates the money flows the back office reviews.
type AccountingSummary struct {
	ApprovedDeposits    decimal.Decimal `json:"approvedDeposits"`
	ApprovedWithdrawals decimal.Decimal `json:"approvedWithdrawals"`
	SettledAuctions     int64           `json:"settledAuctions"`
	TotalPots           decimal.Decimal `json:"totalPots"`
	TotalHouseCuts      decimal.Decimal `json:"totalHouseCuts"`
	PendingDeposits     int64           `json:"pendingDeposits"`
	PendingWithdrawals  int64           `json:"pendingWithdrawals"`
}

// Accounting computes the back-office summary across all settled auctions
// and funding requests.
func (s *Store) Accounting(ctx context.Context) (AccountingSummary, error) {
	var summary AccountingSummary

	err := s.db.WithContext(ctx).
		Model(&models.DepositRequest{}).
		Where("status = ?", models.RequestApproved).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&summary.ApprovedDeposits).Error
	if err != nil {
		return summary, err
	}
	err = s.db.WithContext(ctx).
		Model(&models.WithdrawalRequest{}).
		Where("status = ?", models.RequestApproved).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&summary.ApprovedWithdrawals).Error
	if err != nil {
		return summary, err
	}

	var settlements []models.Settlement
	if result := s.db.WithContext(ctx).Find(&settlements); result.Error != nil {
		return summary, result.Error
	}
	summary.SettledAuctions = int64(len(settlements))
	for _, st := range settlements {
		summary.TotalPots = summary.TotalPots.Add(st.Pot)
		summary.TotalHouseCuts = summary.TotalHouseCuts.Add(st.HouseCut)
	}

	err = s.db.WithContext(ctx).
		Model(&models.DepositRequest{}).
		Where("status = ?", models.RequestPending).
		Count(&summary.PendingDeposits).Error
	if err != nil {
		return summary, err
	}
	err = s.db.WithContext(ctx).
		Model(&models.WithdrawalRequest{}).
		Where("status = ?", models.RequestPending).
		Count(&summary.PendingWithdrawals).Error
	if err != nil {
		return summary, err
	}
	return summary, nil
}
