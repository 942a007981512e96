package api

import (
	"context"   // Context for Redis operations
	"errors"    // Sentinel error checks
	"math"      // Round-up amount truncation
	"math/rand" // Round-up amount simulation
	"net/http"  // HTTP status codes
	"strconv"   // String conversion
	"time"      // Time durations

	"educhain_wallet/internal/domain" // Importing domain models
	"educhain_wallet/internal/ledger" // Wallet ledger (sole mutation path)
	"educhain_wallet/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library

	"github.com/sirupsen/logrus" // Logging library
)

// DepositRequest represents a simulated deposit request
type DepositRequest struct {
	Amount      float64 `json:"amount" binding:"required,gt=0"` // Deposit amount in rupees
	Description string  `json:"description"`                    // Optional description
}

// WithdrawRequest represents a withdrawal request
type WithdrawRequest struct {
	Amount      float64 `json:"amount" binding:"required,gt=0"` // Withdrawal amount in rupees
	Description string  `json:"description"`                    // Optional description
}

// RoundUpRequest represents a round-up simulation request
type RoundUpRequest struct {
	Amount      float64 `json:"amount" binding:"required,gt=0"` // Purchase amount being rounded up
	Description string  `json:"description"`                    // Optional description
}

// CreateWalletHandler creates a wallet for a user (one wallet per user)
func CreateWalletHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get userID from context
		userID, exists := c.Get("userID")
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		// Check if wallet already exists
		var wallet domain.Wallet
		// Query wallet by user ID
		if err := db.Where("user_id = ?", userID).First(&wallet).Error; err == nil {
			// If wallet exists, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Wallet already exists"})
			return
		}
		// Create new wallet with zero balance and totals
		wallet = domain.Wallet{UserID: userID.(uint), LastTransactionDate: time.Now()}
		// Save the new wallet
		if err := db.Create(&wallet).Error; err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": userID,      // User ID
				"error":   err.Error(), // Error message
			}).Error("Failed to create wallet") // Log failure
			// Return internal server error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create wallet"})
			return
		}
		// Log successful wallet creation
		logrus.WithFields(logrus.Fields{
			"user_id":   userID,    // User ID
			"wallet_id": wallet.ID, // Wallet ID
		}).Info("Wallet created")
		// Invalidate wallet cache
		if rdb, ok := c.MustGet("redisClient").(*redis.Client); ok {
			_ = utils.DeleteCache(context.Background(), rdb, utils.WalletCacheKey(userID.(uint)))
		}
		// Return success response
		c.JSON(http.StatusCreated, gin.H{"message": "Wallet created", "wallet": wallet})
	}
}

// getOrCreateWallet fetches the user's wallet, creating a zero-balance one on
// first access the way the app's dashboard expects
func getOrCreateWallet(db *gorm.DB, userID uint) (*domain.Wallet, error) {
	var wallet domain.Wallet
	err := db.Where("user_id = ?", userID).First(&wallet).Error
	if err == nil {
		return &wallet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	// First access: create an empty wallet
	wallet = domain.Wallet{UserID: userID, LastTransactionDate: time.Now()}
	if err := db.Create(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

// GetWalletHandler returns wallet info for the authenticated user, creating
// the wallet on first access
func GetWalletHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get userID from context
		userID, exists := c.Get("userID")
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		ctx := context.Background()                               // Context for Redis operations
		cacheKey := utils.WalletCacheKey(userID.(uint))           // Cache key for wallet
		var wallet domain.Wallet                                  // Wallet struct to hold data
		found, err := utils.GetCache(ctx, rdb, cacheKey, &wallet) // Try to get from cache
		// If found in cache, return it
		if err == nil && found {
			// Return cached wallet
			c.JSON(http.StatusOK, gin.H{"wallet": wallet, "cached": true})
			return
		}
		// If not in cache, fetch from DB (creating on first access)
		w, err := getOrCreateWallet(db, userID.(uint))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch wallet"})
			return
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, w, 60*time.Second)  // Cache the wallet for 60 seconds
		c.JSON(http.StatusOK, gin.H{"wallet": w, "cached": false}) // Return wallet info
	}
}

// DepositHandler credits a simulated deposit into the user's wallet
func DepositHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get userID from context
		userID, exists := c.Get("userID")
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req DepositRequest // Bind JSON request to struct
		// Validate request
		if err := c.ShouldBindJSON(&req); err != nil || req.Amount <= 0 {
			// If invalid, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
			return
		}
		// Find (or lazily create) the user's wallet
		wallet, err := getOrCreateWallet(db, userID.(uint))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch wallet"})
			return
		}
		description := req.Description
		if description == "" {
			description = "Manual deposit" // Default description
		}
		// Credit through the ledger: balance update and transaction row commit together
		t, err := ledger.Credit(db, wallet.ID, req.Amount, domain.TxTypeDeposit, description)
		if err != nil {
			// Log the error with context
			logrus.WithFields(logrus.Fields{
				"user_id": userID,      // User ID
				"amount":  req.Amount,  // Deposit amount
				"error":   err.Error(), // Error message
			}).Error("Deposit failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Deposit failed"}) // Return internal server error
			return
		}
		// Log successful deposit
		logrus.WithFields(logrus.Fields{
			"user_id":   userID,               // User ID
			"wallet_id": wallet.ID,            // Wallet ID
			"amount":    req.Amount,           // Deposit amount
			"type":      domain.TxTypeDeposit, // Transaction type
		}).Info("Deposit transaction")
		// Invalidate wallet and transaction history cache
		if rdb, ok := c.MustGet("redisClient").(*redis.Client); ok {
			utils.InvalidateWalletCache(context.Background(), rdb, userID.(uint))
		}
		// Return success response
		c.JSON(http.StatusOK, gin.H{"message": "Deposit successful", "transaction": t})
	}
}

// WithdrawHandler debits the user's wallet after a sufficient-funds check
func WithdrawHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get userID from context
		userID, exists := c.Get("userID")
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req WithdrawRequest // Bind JSON request to struct
		// Validate request
		if err := c.ShouldBindJSON(&req); err != nil || req.Amount <= 0 {
			// If invalid, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
			return
		}
		// Find (or lazily create) the user's wallet
		wallet, err := getOrCreateWallet(db, userID.(uint))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch wallet"})
			return
		}
		// Check sufficient funds before debiting
		if wallet.Balance < req.Amount {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient funds"})
			return
		}
		description := req.Description
		if description == "" {
			description = "Withdrawal" // Default description
		}
		// Debit through the ledger; withdrawal entries carry a negative signed amount
		t, err := ledger.Credit(db, wallet.ID, req.Amount, domain.TxTypeWithdrawal, description)
		if err != nil {
			// Log the error with context
			logrus.WithFields(logrus.Fields{
				"user_id": userID,      // User ID
				"amount":  req.Amount,  // Withdrawal amount
				"error":   err.Error(), // Error message
			}).Error("Withdrawal failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Withdrawal failed"}) // Return internal server error
			return
		}
		// Log successful withdrawal
		logrus.WithFields(logrus.Fields{
			"user_id":   userID,                  // User ID
			"wallet_id": wallet.ID,               // Wallet ID
			"amount":    req.Amount,              // Withdrawal amount
			"type":      domain.TxTypeWithdrawal, // Transaction type
		}).Info("Withdrawal transaction")
		// Invalidate wallet and transaction history cache
		if rdb, ok := c.MustGet("redisClient").(*redis.Client); ok {
			utils.InvalidateWalletCache(context.Background(), rdb, userID.(uint))
		}
		// Return success response
		c.JSON(http.StatusOK, gin.H{"message": "Withdrawal successful", "transaction": t})
	}
}

// RoundUpHandler simulates a spare-change round-up: the purchase amount goes
// to the vendor, a random ₹5-₹10 round-up lands in the wallet
func RoundUpHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get userID from context
		userID, exists := c.Get("userID")
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req RoundUpRequest // Bind JSON request to struct
		// Validate request
		if err := c.ShouldBindJSON(&req); err != nil || req.Amount <= 0 {
			// If invalid, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
			return
		}
		// Find (or lazily create) the user's wallet
		wallet, err := getOrCreateWallet(db, userID.(uint))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch wallet"})
			return
		}
		// Random round-up between 5 and 10 rupees, truncated to two decimals
		roundup := math.Floor((rand.Float64()*5+5)*100) / 100
		description := req.Description
		if description == "" {
			description = "Round-up from purchase" // Default description
		}
		// Credit through the ledger; roundup_total is bumped alongside balance
		t, err := ledger.Credit(db, wallet.ID, roundup, domain.TxTypeRoundUp, description)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": userID,      // User ID
				"amount":  roundup,     // Round-up amount
				"error":   err.Error(), // Error message
			}).Error("Round-up failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Round-up failed"})
			return
		}
		// Log successful round-up
		logrus.WithFields(logrus.Fields{
			"user_id":   userID,               // User ID
			"wallet_id": wallet.ID,            // Wallet ID
			"amount":    roundup,              // Round-up amount
			"purchase":  req.Amount,           // Original purchase amount
			"type":      domain.TxTypeRoundUp, // Transaction type
		}).Info("Round-up transaction")
		// Invalidate wallet and transaction history cache
		if rdb, ok := c.MustGet("redisClient").(*redis.Client); ok {
			utils.InvalidateWalletCache(context.Background(), rdb, userID.(uint))
		}
		// Return success response
		c.JSON(http.StatusOK, gin.H{"message": "Round-up saved", "transaction": t})
	}
}

// GetTransactionHistoryHandler returns all transactions for the authenticated user's wallet
func GetTransactionHistoryHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get userID from context
		userID, exists := c.Get("userID")
		// Check if userID exists in context
		if !exists {
			// If not, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var wallet domain.Wallet // Get user's wallet
		// Query wallet by user ID
		if err := db.Where("user_id = ?", userID).First(&wallet).Error; err != nil {
			// Return not found if wallet doesn't exist
			c.JSON(http.StatusNotFound, gin.H{"error": "Wallet not found"})
			return
		}
		page := 1      // Default page
		pageSize := 20 // Default page size
		// If page exists in query
		if p := c.Query("page"); p != "" {
			// Convert page to integer
			if v, err := strconv.Atoi(p); err == nil && v > 0 {
				page = v // Set page if valid
			}
		}
		// If page_size exists in query
		if ps := c.Query("page_size"); ps != "" {
			// Convert page_size to integer
			if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
				pageSize = v // Set page size if valid
			}
		}
		offset := (page - 1) * pageSize // Calculate offset
		// Redis cache key
		cacheKey := utils.TxHistoryCacheKey(userID.(uint), page, pageSize)
		ctx := context.Background() // Context for Redis operations
		var cached struct {
			Transactions []domain.Transaction `json:"transactions"` // List of transactions
			Page         int                  `json:"page"`         // Current page
			PageSize     int                  `json:"page_size"`    // Page size
			Total        int64                `json:"total"`        // Total transactions
			TotalPages   int                  `json:"total_pages"`  // Total pages
		}
		// Try to get from cache
		found, err := utils.GetCache(ctx, rdb, cacheKey, &cached)
		// If found in cache, return it
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"transactions": cached.Transactions, // Cached transactions
				"page":         cached.Page,         // Current page
				"page_size":    cached.PageSize,     // Page size
				"total":        cached.Total,        // Total transactions
				"total_pages":  cached.TotalPages,   // Total pages
				"cached":       true,
			})
			return
		}
		var total int64 // Total count of transactions
		// Count total transactions for pagination
		if err := db.Model(&domain.Transaction{}).
			Where("wallet_id = ?", wallet.ID).
			Count(&total).Error; err != nil {
			// If counting fails, return error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count transactions"})
			return
		}
		var transactions []domain.Transaction // Slice to hold transactions
		// Fetch paginated transactions, newest first
		if err := db.Where("wallet_id = ?", wallet.ID).
			Order("created_at desc").
			Offset(offset).
			Limit(pageSize).
			Find(&transactions).Error; err != nil {
			// If fetching fails, return error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transactions"})
			return
		}
		// Calculate total pages
		totalPages := (int(total) + pageSize - 1) / pageSize
		resp := gin.H{
			"transactions": transactions, // List of transactions
			"page":         page,         // Current page
			"page_size":    pageSize,     // Page size
			"total":        total,        // Total transactions
			"total_pages":  totalPages,   // Total pages
			"cached":       false,        // Not from cache
		}
		// Cache the result for 60 seconds
		_ = utils.SetCache(ctx, rdb, cacheKey, resp, 60*time.Second)
		c.JSON(http.StatusOK, resp) // Return transaction history
	}
}
