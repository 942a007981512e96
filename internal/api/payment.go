package api

import (
	"context"       // Context for Redis operations
	"encoding/json" // Callback body decoding
	"errors"        // Sentinel error checks
	"math"          // Rupee to paisa conversion
	"net/http"      // HTTP status codes
	"regexp"        // UPI id validation

	"educhain_wallet/internal/domain"  // Importing domain models
	"educhain_wallet/internal/ledger"  // Wallet ledger (sole mutation path)
	"educhain_wallet/internal/phonepe" // Payment aggregator client and signer
	"educhain_wallet/internal/utils"   // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/google/uuid"       // Merchant transaction ids
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// upiIDPattern is the provider's address grammar: local part "@" bank handle
var upiIDPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+@[a-zA-Z0-9]+$`)

// errAlreadyReconciled marks a duplicate callback that lost the claim race;
// it is acknowledged as success so the provider stops retrying
var errAlreadyReconciled = errors.New("intent already reconciled")

// InitiatePaymentRequest starts a real UPI deposit
type InitiatePaymentRequest struct {
	Amount      float64 `json:"amount" binding:"required,gt=0"` // Deposit amount in rupees
	Description string  `json:"description"`                    // Optional description
	UpiID       string  `json:"upi_id" binding:"required"`      // User's UPI handle, e.g. name@bank
}

// InitiatePaymentHandler creates a payment intent and asks the aggregator for
// a payment URL. The intent is persisted with status INITIATED before the
// provider is contacted, so a crash mid-call still leaves a traceable record.
// The wallet is never touched here; only the callback can credit it.
func InitiatePaymentHandler(db *gorm.DB, client *phonepe.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get userID from context
		userID, exists := c.Get("userID")
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Unauthorized"})
			return
		}
		var req InitiatePaymentRequest // Bind JSON request to struct
		// Validate request
		if err := c.ShouldBindJSON(&req); err != nil || req.Amount <= 0 {
			// If invalid, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Amount must be greater than 0"})
			return
		}
		// Validate the UPI id against the provider's address grammar
		if !upiIDPattern.MatchString(req.UpiID) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "UPI ID must be in format username@bankname"})
			return
		}
		description := req.Description
		if description == "" {
			description = "Wallet deposit" // Default description
		}
		// Rupees to paisa, exactly once at this boundary
		amountPaisa := int64(math.Round(req.Amount * 100))
		intent := domain.PaymentIntent{
			ID:            uuid.NewString(),             // Fresh merchant transaction id
			UserID:        userID.(uint),                // Paying user
			Amount:        amountPaisa,                  // Paisa
			Description:   description,                  // Deposit description
			PaymentMethod: "PHONEPE_UPI",                // Payment method
			Status:        domain.IntentStatusInitiated, // Pending until the callback decides
		}
		// Persist the intent before any network call
		if err := db.Create(&intent).Error; err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": userID,      // User ID
				"error":   err.Error(), // Error message
			}).Error("Failed to persist payment intent")
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to create payment request"})
			return
		}
		// Ask the aggregator for the payment URL
		paymentURL, err := client.CreatePayment(intent.ID, intent.UserID, intent.Amount, req.UpiID)
		if err != nil {
			// The intent stays INITIATED; the callback or a reconciliation
			// sweep settles it later. The caller may retry the initiation.
			logrus.WithFields(logrus.Fields{
				"user_id":   userID,      // User ID
				"intent_id": intent.ID,   // Merchant transaction id
				"error":     err.Error(), // Error message
			}).Error("Payment initiation failed")
			c.JSON(http.StatusBadGateway, gin.H{"success": false, "message": "Payment provider unavailable, please try again"})
			return
		}
		// Log successful initiation
		logrus.WithFields(logrus.Fields{
			"user_id":   userID,      // User ID
			"intent_id": intent.ID,   // Merchant transaction id
			"amount":    amountPaisa, // Amount in paisa
		}).Info("Payment initiated")
		// Return the redirect URL; the intent remains INITIATED until the callback
		c.JSON(http.StatusOK, gin.H{
			"success":       true,       // Initiation succeeded
			"paymentUrl":    paymentURL, // Where the user completes the payment
			"transactionId": intent.ID,  // Merchant transaction id for status polling
		})
	}
}

// PhonePeCallbackHandler receives the aggregator's asynchronous outcome
// notification, verifies its signature and reconciles it against the wallet
// exactly once per intent. Duplicate deliveries are acknowledged without any
// ledger effect.
func PhonePeCallbackHandler(db *gorm.DB, rdb *redis.Client, signer *phonepe.Signer) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.GetRawData() // Raw body: the signature covers these exact bytes
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Unreadable request body"})
			return
		}
		// Verify the X-VERIFY header before touching any state
		signature := c.GetHeader("X-VERIFY")
		if signature == "" {
			logrus.Warn("Callback without X-VERIFY header")
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Missing X-VERIFY header"})
			return
		}
		if !signer.Verify(raw, "", signature) {
			// Possible attack: reject, log, mutate nothing
			logrus.Warn("Callback with invalid X-VERIFY signature")
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid signature"})
			return
		}
		var body phonepe.CallbackBody // Decode the verified payload
		if err := json.Unmarshal(raw, &body); err != nil || body.Response.MerchantTransactionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Missing merchant transaction ID"})
			return
		}
		cb := body.Response // Payment outcome
		var intent domain.PaymentIntent
		// Look up the intent; never guess or create one
		if err := db.Where("id = ?", cb.MerchantTransactionID).First(&intent).Error; err != nil {
			logrus.WithFields(logrus.Fields{
				"intent_id": cb.MerchantTransactionID, // Unknown merchant transaction id
			}).Warn("Callback for unknown payment intent")
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Transaction not found"})
			return
		}
		// Idempotency: a terminal intent means this is a duplicate delivery
		if intent.Terminal() {
			c.JSON(http.StatusOK, gin.H{"success": true, "message": "Callback already processed"})
			return
		}
		// Map the callback outcome onto the intent lifecycle
		newStatus := domain.IntentStatusFailed
		if cb.Succeeded() {
			newStatus = domain.IntentStatusSuccess
		}
		// Claim + credit are one reconciliation unit: either the intent turns
		// terminal and (on success) the wallet gains exactly one deposit, or
		// nothing is applied at all.
		err = db.Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&domain.PaymentIntent{}).
				Where("id = ? AND status = ?", intent.ID, domain.IntentStatusInitiated).
				Updates(map[string]any{
					"status":                  newStatus,        // Terminal state
					"provider_transaction_id": cb.TransactionID, // Provider-side id
					"provider_response":       string(raw),      // Raw callback for audit
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				// A concurrent delivery already claimed the intent
				return errAlreadyReconciled
			}
			if newStatus != domain.IntentStatusSuccess {
				return nil // Failed payments never touch the wallet
			}
			var wallet domain.Wallet // The credited wallet
			if err := tx.Where("user_id = ?", intent.UserID).First(&wallet).Error; err != nil {
				return err // Rolls back the claim too, so a retry can reapply
			}
			// Paisa to rupees, exactly once at this boundary
			rupees := float64(cb.Amount) / 100
			_, err := ledger.Credit(tx, wallet.ID, rupees, domain.TxTypeDeposit, intent.Description)
			return err
		})
		if errors.Is(err, errAlreadyReconciled) {
			// Duplicate race: acknowledge so the provider stops retrying
			c.JSON(http.StatusOK, gin.H{"success": true, "message": "Callback already processed"})
			return
		}
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"intent_id": intent.ID,     // Merchant transaction id
				"user_id":   intent.UserID, // Owning user
				"error":     err.Error(),   // Error message
			}).Error("Callback reconciliation failed")
			// Nothing was applied; a provider retry will run the whole unit again
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to process callback"})
			return
		}
		// Log the reconciled outcome
		logrus.WithFields(logrus.Fields{
			"intent_id":    intent.ID,        // Merchant transaction id
			"user_id":      intent.UserID,    // Owning user
			"status":       newStatus,        // Terminal state
			"amount_paisa": cb.Amount,        // Callback amount
			"provider_txn": cb.TransactionID, // Provider-side id
		}).Info("Payment callback reconciled")
		// Invalidate the wallet caches only after a credit actually happened
		if newStatus == domain.IntentStatusSuccess {
			utils.InvalidateWalletCache(context.Background(), rdb, intent.UserID)
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Callback processed successfully"})
	}
}

// GetPaymentStatusHandler lets the post-redirect success page poll the
// outcome of its own payment intent
func GetPaymentStatusHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get userID from context
		userID, exists := c.Get("userID")
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var intent domain.PaymentIntent
		// Intents are only visible to their owner
		if err := db.Where("id = ? AND user_id = ?", c.Param("id"), userID).First(&intent).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"payment": intent}) // Amount field is in paisa
	}
}
