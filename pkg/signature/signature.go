// Package signature computes and checks the hex encoded HMAC-SHA256
// signatures used by the payment gateway.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify compares in constant time. An empty secret or signature never
// verifies.
func Verify(secret string, payload []byte, received string) bool {
	if secret == "" || received == "" {
		return false
	}
	expected := Sign(secret, payload)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(received))))
}

// PaymentPayload is the message the gateway signs for a completed checkout.
func PaymentPayload(orderID, paymentID string) []byte {
	return []byte(orderID + "|" + paymentID)
}
