package ledger

import (
	"errors" // Sentinel errors
	"time"   // Last transaction timestamp

	"educhain_wallet/internal/domain" // Importing domain models

	"gorm.io/gorm" // GORM ORM library
)

// Ledger errors
var (
	ErrWalletNotFound = errors.New("wallet not found")         // No wallet row for the given id
	ErrInvalidAmount  = errors.New("amount must be positive")  // Magnitude must be > 0
	ErrInvalidType    = errors.New("unknown transaction type") // Type outside the ledger vocabulary
)

// validTypes is the closed set of ledger entry types
var validTypes = map[string]bool{
	domain.TxTypeRoundUp:    true,
	domain.TxTypeDeposit:    true,
	domain.TxTypeWithdrawal: true,
	domain.TxTypeReward:     true,
}

// Credit is the sole mutation entry point for wallet state. It applies one
// signed ledger entry: the balance increment runs inside the database
// (never read-modify-write) and commits together with the appended
// Transaction row, so balance and history cannot drift apart. Passing a
// *gorm.DB that is already a transaction joins that transaction.
func Credit(db *gorm.DB, walletID uint, amount float64, txType, description string) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if !validTypes[txType] {
		return nil, ErrInvalidType
	}
	t := &domain.Transaction{
		WalletID:    walletID,    // Target wallet
		Type:        txType,      // Ledger entry type
		Amount:      amount,      // Positive magnitude
		Description: description, // Human-readable description
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"balance":               gorm.Expr("balance + ?", t.SignedAmount()), // In-database increment
			"last_transaction_date": time.Now(),                                 // Monotonic last credit time
		}
		// Round-ups and rewards also bump their running totals
		if txType == domain.TxTypeRoundUp {
			updates["roundup_total"] = gorm.Expr("roundup_total + ?", amount)
		}
		if txType == domain.TxTypeReward {
			updates["rewards_earned"] = gorm.Expr("rewards_earned + ?", amount)
		}
		res := tx.Model(&domain.Wallet{}).Where("id = ?", walletID).Updates(updates)
		if res.Error != nil {
			return res.Error // Rollback, no ledger row either
		}
		if res.RowsAffected == 0 {
			return ErrWalletNotFound // Unknown wallet, nothing applied
		}
		// Append the ledger row in the same transaction
		return tx.Create(t).Error
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Balance recomputes a wallet's balance as the signed fold over its full
// transaction history. Used as a consistency check and test invariant.
func Balance(db *gorm.DB, walletID uint) (float64, error) {
	var txs []domain.Transaction
	if err := db.Where("wallet_id = ?", walletID).Find(&txs).Error; err != nil {
		return 0, err
	}
	var sum float64
	for _, t := range txs {
		sum += t.SignedAmount() // Deposits/rewards/round-ups positive, withdrawals negative
	}
	return sum, nil
}
