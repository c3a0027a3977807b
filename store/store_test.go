package store_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"remate/models"
	"remate/store"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	st := store.New(db)
	require.NoError(t, st.Migrate())
	return st
}

func TestApplyWalletRejectsStaleVersion(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	user := &models.User{Username: "ana", Email: "ana@example.com"}
	require.NoError(t, st.CreateUser(ctx, user))
	require.NoError(t, st.CreateWallet(ctx, &models.Wallet{
		UserID:    user.ID,
		Available: decimal.NewFromInt(100),
	}))

	first, err := st.WalletByUser(ctx, user.ID)
	require.NoError(t, err)
	second, err := st.WalletByUser(ctx, user.ID)
	require.NoError(t, err)

	first.Available = decimal.NewFromInt(80)
	require.NoError(t, st.ApplyWallet(ctx, first))
	assert.Equal(t, uint64(1), first.Version)

	// The second copy still carries version 0; its write must not land.
	second.Available = decimal.NewFromInt(30)
	err = st.ApplyWallet(ctx, second)
	require.ErrorIs(t, err, store.ErrStaleWallet)

	current, err := st.WalletByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, current.Available.Equal(decimal.NewFromInt(80)),
		"want 80, got %s", current.Available)
}

func TestAtomicRollsBackTheWholeUnit(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	user := &models.User{Username: "beto", Email: "beto@example.com"}
	boom := errors.New("boom")
	err := st.Atomic(ctx, func(tx *store.Store) error {
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = st.GetUser(ctx, user.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetAuctionNotFound(t *testing.T) {
	st := newStore(t)

	_, err := st.GetAuction(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}
