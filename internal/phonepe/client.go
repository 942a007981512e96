package phonepe

import (
	"encoding/base64" // Request payload encoding
	"encoding/json"   // Payload serialization
	"errors"          // Sentinel errors
	"fmt"             // Error wrapping
	"strconv"         // User id conversion
	"time"            // Outbound call timeout

	"educhain_wallet/internal/config" // Injected credentials

	"github.com/go-resty/resty/v2" // HTTP client for the aggregator API
	"github.com/sirupsen/logrus"   // Logging library
)

const payPath = "/pg/v1/pay" // Create-payment endpoint path, also part of the checksum

// ErrProviderUnavailable is returned when the aggregator cannot be reached or
// answers with an error. The caller may retry the whole initiation.
var ErrProviderUnavailable = errors.New("payment provider unavailable")

// payPayload is the signed request body sent to the aggregator
type payPayload struct {
	MerchantID            string     `json:"merchantId"`            // Merchant account id
	MerchantTransactionID string     `json:"merchantTransactionId"` // Our payment intent id
	MerchantUserID        string     `json:"merchantUserId"`        // Paying user's id
	Amount                int64      `json:"amount"`                // Amount in paisa
	RedirectURL           string     `json:"redirectUrl"`           // Post-payment landing page
	RedirectMode          string     `json:"redirectMode"`          // Always REDIRECT
	CallbackURL           string     `json:"callbackUrl"`           // Asynchronous outcome endpoint
	PaymentInstrument     instrument `json:"paymentInstrument"`     // UPI intent details
}

// instrument selects direct UPI payment to the user's handle
type instrument struct {
	Type      string `json:"type"`      // UPI_INTENT
	TargetApp string `json:"targetApp"` // PHONEPE
	VPA       string `json:"vpa"`       // User's UPI id
}

// payResponse is the successful create-payment response
type payResponse struct {
	Success bool   `json:"success"` // Provider-reported success flag
	Code    string `json:"code"`    // Provider status code
	Message string `json:"message"` // Provider message
	Data    struct {
		InstrumentResponse struct {
			RedirectInfo struct {
				URL string `json:"url"` // Payment page the user is sent to
			} `json:"redirectInfo"`
		} `json:"instrumentResponse"`
	} `json:"data"`
}

// apiError is an error response body from the aggregator
type apiError struct {
	Code    string `json:"code"`    // Provider error code
	Message string `json:"message"` // Provider error message
}

// Client calls the PhonePe create-payment API. Construct once and share;
// it is safe for concurrent use.
type Client struct {
	cfg    config.PhonePeConfig // Injected credentials and URLs
	signer *Signer              // Checksum signer
	http   *resty.Client        // Underlying HTTP client
}

// NewClient builds a Client with a bounded request timeout
func NewClient(cfg config.PhonePeConfig, signer *Signer) *Client {
	return &Client{
		cfg:    cfg,
		signer: signer,
		http:   resty.New().SetBaseURL(cfg.APIURL).SetTimeout(15 * time.Second),
	}
}

// CreatePayment asks the aggregator to create a UPI payment for the given
// intent and returns the redirect URL the user completes it on. Amount is in
// paisa; the rupee-to-paisa conversion belongs to the caller and happens
// exactly once.
func (c *Client) CreatePayment(intentID string, userID uint, amountPaisa int64, upiID string) (string, error) {
	payload := payPayload{
		MerchantID:            c.cfg.MerchantID,                       // Merchant account id
		MerchantTransactionID: intentID,                               // Intent id doubles as merchant txn id
		MerchantUserID:        strconv.FormatUint(uint64(userID), 10), // Paying user
		Amount:                amountPaisa,                            // Paisa, never rupees
		RedirectURL:           c.cfg.RedirectURL,                      // Post-payment landing page
		RedirectMode:          "REDIRECT",                             // Redirect flow
		CallbackURL:           c.cfg.CallbackURL,                      // Callback endpoint
		PaymentInstrument: instrument{
			Type:      "UPI_INTENT", // Direct UPI payment
			TargetApp: "PHONEPE",    // Via the PhonePe app
			VPA:       upiID,        // User's UPI handle
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal pay payload: %w", err)
	}
	payloadBase64 := base64.StdEncoding.EncodeToString(body) // Provider expects base64
	checksum := c.signer.SignBase64(payloadBase64, payPath)  // X-VERIFY over base64 + path + salt

	var ok payResponse
	var provErr apiError
	resp, err := c.http.R().
		SetHeader("Content-Type", "application/json").
		SetHeader("X-VERIFY", checksum).
		SetBody(map[string]string{"request": payloadBase64}).
		SetResult(&ok).
		SetError(&provErr).
		Post(payPath)
	if err != nil {
		// Network-level failure: the intent stays INITIATED, the caller may retry
		logrus.WithFields(logrus.Fields{
			"intent_id": intentID,    // Merchant transaction id
			"error":     err.Error(), // Transport error
		}).Error("PhonePe request failed")
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if resp.IsError() {
		// Provider error bodies are logged, never shown to the end user
		logrus.WithFields(logrus.Fields{
			"intent_id": intentID,        // Merchant transaction id
			"status":    resp.Status(),   // HTTP status
			"code":      provErr.Code,    // Provider error code
			"message":   provErr.Message, // Provider error message
		}).Error("PhonePe API error")
		return "", fmt.Errorf("%w: status %s", ErrProviderUnavailable, resp.Status())
	}
	redirect := ok.Data.InstrumentResponse.RedirectInfo.URL
	if redirect == "" {
		// 200 but no payment URL: provider declined the request
		logrus.WithFields(logrus.Fields{
			"intent_id": intentID,   // Merchant transaction id
			"code":      ok.Code,    // Provider status code
			"message":   ok.Message, // Provider message
		}).Error("PhonePe returned no redirect URL")
		return "", fmt.Errorf("%w: %s", ErrProviderUnavailable, ok.Code)
	}
	return redirect, nil
}
