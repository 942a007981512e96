package phonepe

import (
	"crypto/sha256"   // Checksum digest
	"crypto/subtle"   // Constant-time comparison
	"encoding/base64" // Payload encoding
	"encoding/hex"    // Digest encoding

	"educhain_wallet/internal/config" // Injected credentials
)

// Signer produces and verifies PhonePe X-VERIFY checksums. The scheme is
// hex(SHA-256(base64(payload) + apiPath + saltKey)) + "###" + saltIndex.
// The salt key never leaves this struct and is never part of any payload.
type Signer struct {
	saltKey   string // Checksum secret
	saltIndex string // Key index suffix
}

// NewSigner builds a Signer from the injected PhonePe configuration
func NewSigner(cfg config.PhonePeConfig) *Signer {
	return &Signer{saltKey: cfg.SaltKey, saltIndex: cfg.SaltIndex}
}

// Sign base64-encodes the payload and returns its X-VERIFY checksum
func (s *Signer) Sign(payload []byte, apiPath string) string {
	return s.SignBase64(base64.StdEncoding.EncodeToString(payload), apiPath)
}

// SignBase64 computes the checksum over an already base64-encoded payload
func (s *Signer) SignBase64(payloadBase64, apiPath string) string {
	sum := sha256.Sum256([]byte(payloadBase64 + apiPath + s.saltKey)) // Digest of payload + path + salt
	return hex.EncodeToString(sum[:]) + "###" + s.saltIndex           // Hex digest with key-index suffix
}

// Verify recomputes the checksum for the received payload and compares it
// against the presented signature in constant time
func (s *Signer) Verify(payload []byte, apiPath, signature string) bool {
	expected := s.Sign(payload, apiPath)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
