package handler

import (
	"io"
	"net/http"

	appusage "github.com/agentchat/backend/internal/application/usage"
	"github.com/agentchat/backend/internal/infrastructure/livekit"
	"github.com/gin-gonic/gin"
)

// Maximum webhook payload size (64KB - provider webhooks are small)
const maxWebhookPayloadSize = 65536

// LivekitWebhookHandler receives call/video provider webhook deliveries.
// The endpoint is called by the provider and is authenticated by payload
// signature, not by user identity.
type LivekitWebhookHandler struct {
	BaseHandler
	processor *appusage.WebhookProcessor
}

// NewLivekitWebhookHandler creates a new LivekitWebhookHandler
func NewLivekitWebhookHandler(processor *appusage.WebhookProcessor) *LivekitWebhookHandler {
	return &LivekitWebhookHandler{processor: processor}
}

// RegisterRoutes registers webhook routes
func (h *LivekitWebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhooks/livekit", h.HandleWebhook)
}

// WebhookResponse is the acknowledgement returned to the provider
type WebhookResponse struct {
	Received  bool   `json:"received"`
	EventID   string `json:"event_id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Message   string `json:"message,omitempty"`
}

// HandleWebhook verifies and processes one webhook delivery
func (h *LivekitWebhookHandler) HandleWebhook(c *gin.Context) {
	// The raw body is needed for signature verification.
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookPayloadSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, WebhookResponse{
			Received: false,
			Message:  "Failed to read request body",
		})
		return
	}
	if len(payload) > maxWebhookPayloadSize {
		c.JSON(http.StatusRequestEntityTooLarge, WebhookResponse{
			Received: false,
			Message:  "Payload too large",
		})
		return
	}

	signature := c.GetHeader(livekit.SignatureHeader)
	if signature == "" {
		c.JSON(http.StatusUnauthorized, WebhookResponse{
			Received: false,
			Message:  "Missing " + livekit.SignatureHeader + " header",
		})
		return
	}

	result, err := h.processor.ProcessWebhook(c.Request.Context(), payload, signature)
	if err != nil {
		if err == livekit.ErrInvalidSignature {
			c.JSON(http.StatusUnauthorized, WebhookResponse{
				Received: false,
				Message:  "Webhook signature verification failed",
			})
			return
		}
		if result == nil {
			// Undecodable payload; retrying will not help the provider.
			c.JSON(http.StatusBadRequest, WebhookResponse{
				Received: false,
				Message:  "Malformed webhook payload",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, WebhookResponse{
			Received:  false,
			EventID:   result.EventID,
			EventType: result.EventType,
			Message:   "Webhook processing failed",
		})
		return
	}

	c.JSON(http.StatusOK, WebhookResponse{
		Received:  true,
		EventID:   result.EventID,
		EventType: result.EventType,
		Message:   result.Message,
	})
}
