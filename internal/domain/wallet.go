package domain

import "time" // Timestamps

// Wallet Model
type Wallet struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`                     // Primary key
	UserID              uint      `gorm:"uniqueIndex" json:"user_id"`               // Foreign key to User (one wallet per user)
	Balance             float64   `gorm:"not null;default:0" json:"balance"`        // Wallet balance in rupees
	RoundupTotal        float64   `gorm:"not null;default:0" json:"roundup_total"`  // Running total saved through round-ups
	RewardsEarned       float64   `gorm:"not null;default:0" json:"rewards_earned"` // Running total of earned rewards
	LastTransactionDate time.Time `json:"last_transaction_date"`                    // Time of the most recent credit
}
