package livekit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// ErrInvalidSignature is returned when a webhook payload fails HMAC
// verification. The caller must reject the request without side effects.
var ErrInvalidSignature = errors.New("webhook signature verification failed")

const signaturePrefix = "sha256="

// ComputeSignature returns the signature header value for a payload
func ComputeSignature(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks the HMAC-SHA256 signature of a webhook payload.
// The comparison is constant-time.
func VerifySignature(secret string, payload []byte, header string) error {
	if secret == "" || header == "" {
		return ErrInvalidSignature
	}
	if !strings.HasPrefix(header, signaturePrefix) {
		return ErrInvalidSignature
	}
	provided, err := hex.DecodeString(strings.TrimPrefix(header, signaturePrefix))
	if err != nil {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	if !hmac.Equal(provided, mac.Sum(nil)) {
		return ErrInvalidSignature
	}
	return nil
}
