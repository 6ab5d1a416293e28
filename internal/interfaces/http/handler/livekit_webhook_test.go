package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appbilling "github.com/agentchat/backend/internal/application/billing"
	appusage "github.com/agentchat/backend/internal/application/usage"
	"github.com/agentchat/backend/internal/domain/shared"
	"github.com/agentchat/backend/internal/domain/usage"
	"github.com/agentchat/backend/internal/infrastructure/cache"
	"github.com/agentchat/backend/internal/infrastructure/livekit"
	"github.com/agentchat/backend/internal/infrastructure/persistence"
	"github.com/agentchat/backend/internal/infrastructure/persistence/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const webhookTestSecret = "whsec_handler_test"

type webhookTestEnv struct {
	engine      *gin.Engine
	counterRepo usage.CounterRepository
	recordRepo  usage.WebhookRecordRepository
}

func setupWebhookTestEnv(t *testing.T) *webhookTestEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	err = db.AutoMigrate(
		&models.UserProfileModel{},
		&models.UserUsageModel{},
		&models.InvoiceModel{},
		&models.InvoiceLineItemModel{},
		&models.BillingHistoryModel{},
		&models.WebhookEventModel{},
	)
	require.NoError(t, err)

	profileRepo := persistence.NewUserProfileRepository(db)
	counterRepo := persistence.NewUsageCounterRepository(db)
	invoiceRepo := persistence.NewInvoiceRepository(db)
	historyRepo := persistence.NewBillingHistoryRepository(db)
	recordRepo := persistence.NewWebhookEventRepository(db)

	logger := zap.NewNop()
	invoices := appbilling.NewInvoiceService(appbilling.InvoiceServiceConfig{
		ProfileRepo: profileRepo,
		CounterRepo: counterRepo,
		InvoiceRepo: invoiceRepo,
		HistoryRepo: historyRepo,
		Logger:      logger,
	})
	trigger := appbilling.NewTriggerEvaluator(appbilling.TriggerEvaluatorConfig{
		ProfileRepo: profileRepo,
		InvoiceRepo: invoiceRepo,
		Invoices:    invoices,
		Threshold:   decimal.NewFromInt(1),
		Logger:      logger,
	})
	processor := appusage.NewWebhookProcessor(appusage.WebhookProcessorConfig{
		Config:           livekit.Config{WebhookSecret: webhookTestSecret},
		IdempotencyStore: cache.NewInMemoryIdempotencyStore(),
		IdempotencyConfig: shared.IdempotencyConfig{
			TTL:     time.Hour,
			Enabled: true,
		},
		RecordRepo: recordRepo,
		Tracking:   appusage.NewTrackingService(counterRepo, logger),
		Trigger:    trigger,
		Logger:     logger,
	})

	engine := gin.New()
	api := engine.Group("/api/v1")
	NewLivekitWebhookHandler(processor).RegisterRoutes(api)

	return &webhookTestEnv{engine: engine, counterRepo: counterRepo, recordRepo: recordRepo}
}

func (env *webhookTestEnv) post(t *testing.T, payload []byte, signature string) (*httptest.ResponseRecorder, WebhookResponse) {
	t.Helper()

	req := httptest.NewRequest("POST", "/api/v1/webhooks/livekit", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(livekit.SignatureHeader, signature)
	}

	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)

	var resp WebhookResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func callEndedPayload(eventID string, durationSeconds int, userIDs ...uuid.UUID) []byte {
	participants := ""
	for i, id := range userIDs {
		if i > 0 {
			participants += ","
		}
		participants += fmt.Sprintf(`{"sid":"PA_%d","identity":"%s"}`, i, id)
	}
	return []byte(fmt.Sprintf(`{
		"event": "room_finished",
		"id": "%s",
		"room": {"sid": "RM_1", "name": "standup", "numParticipants": %d, "duration": %d,
			"participants": [%s]}
	}`, eventID, len(userIDs), durationSeconds, participants))
}

func TestLivekitWebhookHandler_HandleWebhook(t *testing.T) {
	t.Run("rejects a missing signature header", func(t *testing.T) {
		env := setupWebhookTestEnv(t)

		w, resp := env.post(t, callEndedPayload("EV_1", 600, uuid.New()), "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.False(t, resp.Received)
	})

	t.Run("rejects an invalid signature", func(t *testing.T) {
		env := setupWebhookTestEnv(t)

		payload := callEndedPayload("EV_2", 600, uuid.New())
		w, resp := env.post(t, payload, "sha256=deadbeef")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.False(t, resp.Received)
	})

	t.Run("rejects an oversized payload", func(t *testing.T) {
		env := setupWebhookTestEnv(t)

		payload := bytes.Repeat([]byte("a"), maxWebhookPayloadSize+1)
		w, _ := env.post(t, payload, livekit.ComputeSignature(webhookTestSecret, payload))
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("rejects a malformed payload", func(t *testing.T) {
		env := setupWebhookTestEnv(t)

		payload := []byte(`{"room": {}}`)
		w, resp := env.post(t, payload, livekit.ComputeSignature(webhookTestSecret, payload))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.False(t, resp.Received)
	})

	t.Run("records usage for a finished room", func(t *testing.T) {
		env := setupWebhookTestEnv(t)
		userA := uuid.New()
		userB := uuid.New()

		payload := callEndedPayload("EV_3", 600, userA, userB)
		w, resp := env.post(t, payload, livekit.ComputeSignature(webhookTestSecret, payload))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, resp.Received)
		assert.Equal(t, "EV_3", resp.EventID)
		assert.Equal(t, "room_finished", resp.EventType)

		// The 600s room is split across the two participants: 5 video
		// and 5 audio minutes each, rounded up.
		for _, userID := range []uuid.UUID{userA, userB} {
			counters, err := env.counterRepo.FindCurrent(context.Background(), userID)
			require.NoError(t, err)
			assert.Equal(t, int64(5), counters.VideoMinutesUsed)
			assert.Equal(t, int64(5), counters.AudioMinutesUsed)
		}

		record, err := env.recordRepo.FindByProviderEventID(context.Background(), "EV_3")
		require.NoError(t, err)
		assert.Equal(t, "room_finished", record.EventType)
	})

	t.Run("acknowledges a duplicate delivery without double counting", func(t *testing.T) {
		env := setupWebhookTestEnv(t)
		userID := uuid.New()

		payload := callEndedPayload("EV_4", 600, userID)
		signature := livekit.ComputeSignature(webhookTestSecret, payload)

		w, _ := env.post(t, payload, signature)
		require.Equal(t, http.StatusOK, w.Code)

		w, resp := env.post(t, payload, signature)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, resp.Received)

		counters, err := env.counterRepo.FindCurrent(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, int64(10), counters.VideoMinutesUsed)
	})

	t.Run("audit-only events do not touch the counters", func(t *testing.T) {
		env := setupWebhookTestEnv(t)

		payload := []byte(`{"event": "room_started", "id": "EV_5", "room": {"sid": "RM_9"}}`)
		w, resp := env.post(t, payload, livekit.ComputeSignature(webhookTestSecret, payload))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, resp.Received)
		assert.Equal(t, "room_started", resp.EventType)

		record, err := env.recordRepo.FindByProviderEventID(context.Background(), "EV_5")
		require.NoError(t, err)
		assert.Equal(t, "RM_9", record.RoomID)
	})
}
