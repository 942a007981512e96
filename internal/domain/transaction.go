package domain

// Transaction types recorded in the ledger
const (
	TxTypeRoundUp    = "round-up"   // Simulated spare-change round-up
	TxTypeDeposit    = "deposit"    // Manual or UPI deposit
	TxTypeWithdrawal = "withdrawal" // Money leaving the wallet
	TxTypeReward     = "reward"     // Learning reward credit
)

// Transaction Model (append-only ledger; rows are never updated after creation)
type Transaction struct {
	ID          uint    `gorm:"primaryKey" json:"id"`                   // Primary key
	WalletID    uint    `gorm:"index;not null" json:"wallet_id"`        // Foreign key to Wallet
	Type        string  `gorm:"not null" json:"type"`                   // Transaction type: round-up, deposit, withdrawal, reward
	Amount      float64 `gorm:"not null" json:"amount"`                 // Positive magnitude in rupees; withdrawals count negative in the balance fold
	Description string  `json:"description"`                            // Human-readable description
	CreatedAt   int64   `gorm:"autoCreateTime:milli" json:"created_at"` // Timestamp of creation in milliseconds
}

// SignedAmount returns the amount with the sign the balance fold uses
func (t Transaction) SignedAmount() float64 {
	if t.Type == TxTypeWithdrawal {
		return -t.Amount // Withdrawals reduce the balance
	}
	return t.Amount // Round-ups, deposits and rewards increase it
}
