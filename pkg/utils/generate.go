package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ==================== UUID & TOKEN ====================

// ParseUUID accepts only the canonical 36-character form used for session
// tokens.
func ParseUUID(uuidStr string) (uuid.UUID, error) {
	if len(uuidStr) != 36 {
		return uuid.Nil, fmt.Errorf("invalid uuid length %d", len(uuidStr))
	}
	return uuid.Parse(uuidStr)
}

// ==================== PAYMENT KEY ====================

const paymentKeyRandomBytes = 12

// GeneratePaymentKey returns YYYYMMDDhhmmss-<24 hex chars>. The timestamp
// only makes keys sortable; uniqueness comes from the random suffix.
func GeneratePaymentKey(now time.Time) (string, error) {
	buf := make([]byte, paymentKeyRandomBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return now.UTC().Format("20060102150405") + "-" + hex.EncodeToString(buf), nil
}
