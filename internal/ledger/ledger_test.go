package ledger

import (
	"strings"
	"testing"
	"time"

	"educhain_wallet/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a per-test in-memory database with the full schema.
// The shared-cache DSN keeps every pooled connection on the same database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Wallet{}, &domain.Transaction{}, &domain.PaymentIntent{}))
	return db
}

func newTestWallet(t *testing.T, db *gorm.DB, userID uint) *domain.Wallet {
	t.Helper()
	w := &domain.Wallet{UserID: userID, LastTransactionDate: time.Now()}
	require.NoError(t, db.Create(w).Error)
	return w
}

func TestCreditDeposit(t *testing.T) {
	db := newTestDB(t)
	w := newTestWallet(t, db, 1)

	tx, err := Credit(db, w.ID, 100, domain.TxTypeDeposit, "first deposit")
	require.NoError(t, err)
	assert.Equal(t, w.ID, tx.WalletID)
	assert.Equal(t, domain.TxTypeDeposit, tx.Type)
	assert.Equal(t, 100.0, tx.Amount)

	var got domain.Wallet
	require.NoError(t, db.First(&got, w.ID).Error)
	assert.InDelta(t, 100.0, got.Balance, 1e-9)
	assert.Zero(t, got.RoundupTotal)
	assert.Zero(t, got.RewardsEarned)
}

func TestCreditSequenceKeepsFoldInvariant(t *testing.T) {
	db := newTestDB(t)
	w := newTestWallet(t, db, 1)

	steps := []struct {
		amount float64
		txType string
	}{
		{100, domain.TxTypeDeposit},
		{7.25, domain.TxTypeRoundUp},
		{30, domain.TxTypeWithdrawal},
		{12.5, domain.TxTypeReward},
		{5.75, domain.TxTypeRoundUp},
		{50, domain.TxTypeDeposit},
	}
	for _, s := range steps {
		_, err := Credit(db, w.ID, s.amount, s.txType, "")
		require.NoError(t, err)

		// After every credit the balance equals the signed fold over history
		var got domain.Wallet
		require.NoError(t, db.First(&got, w.ID).Error)
		fold, err := Balance(db, w.ID)
		require.NoError(t, err)
		assert.InDelta(t, fold, got.Balance, 1e-9)
	}

	var got domain.Wallet
	require.NoError(t, db.First(&got, w.ID).Error)
	assert.InDelta(t, 100+7.25-30+12.5+5.75+50, got.Balance, 1e-9)
	assert.InDelta(t, 7.25+5.75, got.RoundupTotal, 1e-9)
	assert.InDelta(t, 12.5, got.RewardsEarned, 1e-9)

	var count int64
	require.NoError(t, db.Model(&domain.Transaction{}).Where("wallet_id = ?", w.ID).Count(&count).Error)
	assert.Equal(t, int64(len(steps)), count)
}

func TestCreditLastTransactionDateMonotonic(t *testing.T) {
	db := newTestDB(t)
	w := newTestWallet(t, db, 1)

	var prev time.Time
	for i := 0; i < 3; i++ {
		_, err := Credit(db, w.ID, 10, domain.TxTypeDeposit, "")
		require.NoError(t, err)
		var got domain.Wallet
		require.NoError(t, db.First(&got, w.ID).Error)
		assert.False(t, got.LastTransactionDate.Before(prev))
		prev = got.LastTransactionDate
		time.Sleep(2 * time.Millisecond)
	}
}

func TestCreditUnknownWallet(t *testing.T) {
	db := newTestDB(t)

	_, err := Credit(db, 999, 10, domain.TxTypeDeposit, "")
	assert.ErrorIs(t, err, ErrWalletNotFound)

	// Nothing was appended either
	var count int64
	require.NoError(t, db.Model(&domain.Transaction{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreditRejectsBadInput(t *testing.T) {
	db := newTestDB(t)
	w := newTestWallet(t, db, 1)

	_, err := Credit(db, w.ID, 0, domain.TxTypeDeposit, "")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = Credit(db, w.ID, -5, domain.TxTypeDeposit, "")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = Credit(db, w.ID, 5, "transfer", "")
	assert.ErrorIs(t, err, ErrInvalidType)

	var got domain.Wallet
	require.NoError(t, db.First(&got, w.ID).Error)
	assert.Zero(t, got.Balance)
}

func TestCreditJoinsEnclosingTransaction(t *testing.T) {
	db := newTestDB(t)
	w := newTestWallet(t, db, 1)

	// A rolled-back outer transaction must take the credit with it
	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := Credit(tx, w.ID, 42, domain.TxTypeDeposit, ""); err != nil {
			return err
		}
		return assert.AnError
	})
	require.Error(t, err)

	var got domain.Wallet
	require.NoError(t, db.First(&got, w.ID).Error)
	assert.Zero(t, got.Balance)
	var count int64
	require.NoError(t, db.Model(&domain.Transaction{}).Where("wallet_id = ?", w.ID).Count(&count).Error)
	assert.Zero(t, count)
}
