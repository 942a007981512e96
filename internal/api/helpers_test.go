package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"educhain_wallet/internal/config"
	"educhain_wallet/internal/domain"
	"educhain_wallet/internal/phonepe"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
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

// newTestRedis starts an in-process Redis and returns a client for it
func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

// testPhonePeConfig builds aggregator credentials pointing at a stub server
func testPhonePeConfig(apiURL string) config.PhonePeConfig {
	return config.PhonePeConfig{
		APIURL:      apiURL,
		MerchantID:  "TESTMERCHANT",
		SaltKey:     "test-salt-key",
		SaltIndex:   "1",
		CallbackURL: "http://app.test/payments/phonepe/callback",
		RedirectURL: "http://app.test/payment-success",
	}
}

// newTestRouter wires the payment and wallet routes the way cmd/server does,
// with the JWT middleware replaced by a stub that authenticates user 1
func newTestRouter(db *gorm.DB, rdb *redis.Client, signer *phonepe.Signer, client *phonepe.Client) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/payments/phonepe/callback", PhonePeCallbackHandler(db, rdb, signer))
	walletGroup := r.Group("/wallet")
	walletGroup.Use(func(c *gin.Context) {
		c.Set("userID", uint(1))
		c.Set("redisClient", rdb)
		c.Next()
	})
	walletGroup.POST("", CreateWalletHandler(db))
	walletGroup.GET("", GetWalletHandler(db, rdb))
	walletGroup.POST("/deposit", DepositHandler(db))
	walletGroup.POST("/withdraw", WithdrawHandler(db))
	walletGroup.POST("/roundup", RoundUpHandler(db))
	walletGroup.GET("/transactions", GetTransactionHistoryHandler(db, rdb))
	if client != nil {
		walletGroup.POST("/payments/upi", InitiatePaymentHandler(db, client))
	}
	walletGroup.GET("/payments/:id", GetPaymentStatusHandler(db))
	return r
}

// doJSON performs a request with a JSON body and returns the recorder
func doJSON(r *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// doRaw posts exact bytes, as the aggregator does on the callback endpoint
func doRaw(r *gin.Engine, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// decodeBody unmarshals a recorder's JSON body into a map
func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	return m
}

// seedWallet inserts a wallet row for a user
func seedWallet(t *testing.T, db *gorm.DB, userID uint) *domain.Wallet {
	t.Helper()
	w := &domain.Wallet{UserID: userID, LastTransactionDate: time.Now()}
	require.NoError(t, db.Create(w).Error)
	return w
}

// seedIntent inserts an INITIATED payment intent
func seedIntent(t *testing.T, db *gorm.DB, id string, userID uint, amountPaisa int64) *domain.PaymentIntent {
	t.Helper()
	p := &domain.PaymentIntent{
		ID:            id,
		UserID:        userID,
		Amount:        amountPaisa,
		Description:   "Wallet deposit",
		PaymentMethod: "PHONEPE_UPI",
		Status:        domain.IntentStatusInitiated,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

// signedCallback marshals a callback body and signs the exact bytes
func signedCallback(t *testing.T, signer *phonepe.Signer, cb phonepe.CallbackResponse) ([]byte, string) {
	t.Helper()
	raw, err := json.Marshal(phonepe.CallbackBody{Response: cb})
	require.NoError(t, err)
	return raw, signer.Sign(raw, "")
}
