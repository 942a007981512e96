package domain

import "time" // Timestamps

// Payment intent lifecycle states. Transitions are monotonic:
// INITIATED -> SUCCESS or INITIATED -> FAILED, never out of a terminal state.
const (
	IntentStatusInitiated = "INITIATED" // Persisted before the provider is contacted
	IntentStatusSuccess   = "SUCCESS"   // Provider confirmed the payment
	IntentStatusFailed    = "FAILED"    // Provider reported a failure
)

// PaymentIntent Model: one row per attempted UPI deposit, keyed by the
// merchant transaction id sent to the provider.
type PaymentIntent struct {
	ID                    string    `gorm:"primaryKey;size:36" json:"id"`             // Merchant transaction id (UUID)
	UserID                uint      `gorm:"index;not null" json:"user_id"`            // Owning user
	Amount                int64     `gorm:"not null" json:"amount"`                   // Amount in integer paisa
	Description           string    `json:"description"`                              // Deposit description shown to the user
	PaymentMethod         string    `gorm:"not null" json:"payment_method"`           // e.g. PHONEPE_UPI
	Status                string    `gorm:"not null;default:INITIATED" json:"status"` // INITIATED, SUCCESS or FAILED
	ProviderTransactionID *string   `json:"provider_transaction_id"`                  // Provider-side id, nil until a callback arrives
	ProviderResponse      string    `gorm:"type:text" json:"provider_response"`       // Raw callback body kept for audit
	CreatedAt             time.Time `json:"created_at"`                               // Row creation time
	UpdatedAt             time.Time `json:"updated_at"`                               // Last state change
}

// Terminal reports whether the intent has reached a final state
func (p PaymentIntent) Terminal() bool {
	return p.Status == IntentStatusSuccess || p.Status == IntentStatusFailed
}
