package phonepe

// CallbackBody is the outcome notification the aggregator posts to the
// callback endpoint. The X-VERIFY header for it is computed over the base64
// of the raw body with an empty api path.
type CallbackBody struct {
	Response CallbackResponse `json:"response"` // Payment outcome
}

// CallbackResponse carries the outcome of a previously initiated payment
type CallbackResponse struct {
	MerchantTransactionID string `json:"merchantTransactionId"` // Our payment intent id
	TransactionID         string `json:"transactionId"`         // Provider-side transaction id
	Amount                int64  `json:"amount"`                // Paid amount in paisa
	Code                  string `json:"code"`                  // e.g. PAYMENT_SUCCESS, PAYMENT_ERROR
	Status                string `json:"status"`                // SUCCESS or FAILED
}

// Succeeded reports whether the callback carries an unambiguous success.
// Both the status and the code must agree; anything else is a failure.
func (r CallbackResponse) Succeeded() bool {
	return r.Status == "SUCCESS" && r.Code == "PAYMENT_SUCCESS"
}
