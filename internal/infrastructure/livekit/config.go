// Package livekit adapts raw call/video provider webhook events into the
// canonical usage events consumed by the usage tracking service.
package livekit

// Config holds provider webhook settings
type Config struct {
	// WebhookSecret is the shared HMAC key used to sign webhook payloads
	WebhookSecret string
}

// SignatureHeader carries the HMAC-SHA256 payload signature as
// "sha256=<hex>".
const SignatureHeader = "X-Livekit-Signature"
