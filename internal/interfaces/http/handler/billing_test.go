package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appbilling "github.com/agentchat/backend/internal/application/billing"
	"github.com/agentchat/backend/internal/domain/usage"
	"github.com/agentchat/backend/internal/infrastructure/persistence"
	"github.com/agentchat/backend/internal/infrastructure/persistence/models"
	"github.com/agentchat/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type billingTestEnv struct {
	engine      *gin.Engine
	counterRepo usage.CounterRepository
}

func setupBillingTestEnv(t *testing.T) *billingTestEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	err = db.AutoMigrate(
		&models.UserProfileModel{},
		&models.UserUsageModel{},
		&models.InvoiceModel{},
		&models.InvoiceLineItemModel{},
		&models.BillingHistoryModel{},
		&models.PaymentModel{},
	)
	require.NoError(t, err)

	profileRepo := persistence.NewUserProfileRepository(db)
	counterRepo := persistence.NewUsageCounterRepository(db)
	invoiceRepo := persistence.NewInvoiceRepository(db)
	historyRepo := persistence.NewBillingHistoryRepository(db)
	paymentRepo := persistence.NewPaymentRepository(db)

	logger := zap.NewNop()
	trials := appbilling.NewTrialService(appbilling.TrialServiceConfig{
		ProfileRepo:   profileRepo,
		HistoryRepo:   historyRepo,
		TrialDuration: 14 * 24 * time.Hour,
		Logger:        logger,
	})
	invoices := appbilling.NewInvoiceService(appbilling.InvoiceServiceConfig{
		ProfileRepo: profileRepo,
		CounterRepo: counterRepo,
		InvoiceRepo: invoiceRepo,
		HistoryRepo: historyRepo,
		Logger:      logger,
	})
	service := appbilling.NewBillingService(appbilling.BillingServiceConfig{
		ProfileRepo:  profileRepo,
		CounterRepo:  counterRepo,
		InvoiceRepo:  invoiceRepo,
		HistoryRepo:  historyRepo,
		PaymentRepo:  paymentRepo,
		Trials:       trials,
		Invoices:     invoices,
		HistoryLimit: 12,
		Logger:       logger,
	})

	engine := gin.New()
	api := engine.Group("/api/v1")
	NewBillingHandler(service).RegisterRoutes(api)

	return &billingTestEnv{engine: engine, counterRepo: counterRepo}
}

func (env *billingTestEnv) do(t *testing.T, method, path string, userID string, body any) (*httptest.ResponseRecorder, dto.Response) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}

	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func decodeData[T any](t *testing.T, resp dto.Response) T {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestBillingHandler_GetSummary(t *testing.T) {
	t.Run("requires the user header", func(t *testing.T) {
		env := setupBillingTestEnv(t)

		w, resp := env.do(t, "GET", "/api/v1/billing", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeUnauthorized, resp.Error.Code)
	})

	t.Run("rejects a malformed user header", func(t *testing.T) {
		env := setupBillingTestEnv(t)

		w, _ := env.do(t, "GET", "/api/v1/billing", "not-a-uuid", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("reports trial defaults for an unknown user", func(t *testing.T) {
		env := setupBillingTestEnv(t)

		w, resp := env.do(t, "GET", "/api/v1/billing", uuid.NewString(), nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, resp.Success)

		summary := decodeData[dto.BillingSummaryResponse](t, resp)
		assert.Equal(t, "TRIAL", summary.Tier)
		assert.Equal(t, "0", summary.MonthlyFee)
		assert.Equal(t, int64(500), summary.Limits.VideoMinutes)
		assert.Equal(t, int64(0), summary.Usage.VideoMinutes)
	})

	t.Run("includes accumulated usage and overage cost", func(t *testing.T) {
		env := setupBillingTestEnv(t)
		userID := uuid.New()

		_, resp := env.do(t, "POST", "/api/v1/billing", userID.String(),
			dto.BillingActionRequest{Action: dto.ActionUpgradeTier, Tier: "TEAM"})
		assert.True(t, resp.Success)

		_, err := env.counterRepo.Increment(context.Background(), userID, usage.Delta{VideoMinutes: 52000})
		require.NoError(t, err)

		w, resp := env.do(t, "GET", "/api/v1/billing", userID.String(), nil)
		assert.Equal(t, http.StatusOK, w.Code)

		summary := decodeData[dto.BillingSummaryResponse](t, resp)
		assert.Equal(t, "TEAM", summary.Tier)
		assert.Equal(t, int64(52000), summary.Usage.VideoMinutes)
		// 2000 minutes over the 50000 limit at 0.00072/minute
		assert.Equal(t, "1.44", summary.OverageCost)
	})
}

func TestBillingHandler_HandleAction(t *testing.T) {
	t.Run("rejects an unknown action", func(t *testing.T) {
		env := setupBillingTestEnv(t)

		w, resp := env.do(t, "POST", "/api/v1/billing", uuid.NewString(),
			map[string]string{"action": "refund_everything"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	})

	t.Run("rejects upgrade without a tier", func(t *testing.T) {
		env := setupBillingTestEnv(t)

		w, _ := env.do(t, "POST", "/api/v1/billing", uuid.NewString(),
			dto.BillingActionRequest{Action: dto.ActionUpgradeTier})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("upgrades a new user to a paid tier", func(t *testing.T) {
		env := setupBillingTestEnv(t)
		userID := uuid.New()

		w, resp := env.do(t, "POST", "/api/v1/billing", userID.String(),
			dto.BillingActionRequest{Action: dto.ActionUpgradeTier, Tier: "TEAM"})
		assert.Equal(t, http.StatusOK, w.Code)

		profile := decodeData[dto.ProfileResponse](t, resp)
		assert.Equal(t, "TEAM", profile.Tier)
		assert.Equal(t, userID.String(), profile.UserID)
	})

	t.Run("cancel without a profile is an invalid state", func(t *testing.T) {
		env := setupBillingTestEnv(t)

		w, resp := env.do(t, "POST", "/api/v1/billing", uuid.NewString(),
			dto.BillingActionRequest{Action: dto.ActionCancelSubscription})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeInvalidState, resp.Error.Code)
	})

	t.Run("generate invoice with no charges reports nothing to bill", func(t *testing.T) {
		env := setupBillingTestEnv(t)

		w, resp := env.do(t, "POST", "/api/v1/billing", uuid.NewString(),
			dto.BillingActionRequest{Action: dto.ActionGenerateInvoice})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeNothingToBill, resp.Error.Code)
	})

	t.Run("invoice and payment round trip", func(t *testing.T) {
		env := setupBillingTestEnv(t)
		userID := uuid.New()
		ctx := context.Background()

		_, resp := env.do(t, "POST", "/api/v1/billing", userID.String(),
			dto.BillingActionRequest{Action: dto.ActionUpgradeTier, Tier: "TEAM"})
		require.True(t, resp.Success)

		_, err := env.counterRepo.Increment(ctx, userID, usage.Delta{VideoMinutes: 52000})
		require.NoError(t, err)

		w, resp := env.do(t, "POST", "/api/v1/billing", userID.String(),
			dto.BillingActionRequest{Action: dto.ActionGenerateInvoice})
		require.Equal(t, http.StatusCreated, w.Code)

		invoice := decodeData[dto.InvoiceResponse](t, resp)
		assert.Equal(t, "PENDING", invoice.Status)
		assert.Equal(t, "30.44", invoice.Subtotal)
		assert.Len(t, invoice.LineItems, 2)

		// Invoicing closes the cycle; the counters start over.
		counters, err := env.counterRepo.FindCurrent(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), counters.VideoMinutesUsed)

		w, resp = env.do(t, "POST", "/api/v1/billing", userID.String(),
			dto.BillingActionRequest{
				Action:        dto.ActionProcessPayment,
				InvoiceID:     invoice.ID,
				PaymentMethod: "STRIPE",
			})
		require.Equal(t, http.StatusOK, w.Code)

		payment := decodeData[dto.PaymentResponse](t, resp)
		assert.Equal(t, invoice.ID, payment.InvoiceID)
		assert.Equal(t, invoice.Total, payment.Amount)

		// Paying twice is rejected.
		w, resp = env.do(t, "POST", "/api/v1/billing", userID.String(),
			dto.BillingActionRequest{
				Action:        dto.ActionProcessPayment,
				InvoiceID:     invoice.ID,
				PaymentMethod: "STRIPE",
			})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeInvalidState, resp.Error.Code)
	})

	t.Run("payment against another user's invoice is forbidden", func(t *testing.T) {
		env := setupBillingTestEnv(t)
		owner := uuid.New()
		ctx := context.Background()

		_, resp := env.do(t, "POST", "/api/v1/billing", owner.String(),
			dto.BillingActionRequest{Action: dto.ActionUpgradeTier, Tier: "PERSONAL"})
		require.True(t, resp.Success)

		_, err := env.counterRepo.Increment(ctx, owner, usage.Delta{VideoMinutes: 100})
		require.NoError(t, err)

		w, resp := env.do(t, "POST", "/api/v1/billing", owner.String(),
			dto.BillingActionRequest{Action: dto.ActionGenerateInvoice})
		require.Equal(t, http.StatusCreated, w.Code)
		invoice := decodeData[dto.InvoiceResponse](t, resp)

		w, resp = env.do(t, "POST", "/api/v1/billing", uuid.NewString(),
			dto.BillingActionRequest{
				Action:        dto.ActionProcessPayment,
				InvoiceID:     invoice.ID,
				PaymentMethod: "CRYPTO_ETH",
			})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeUnauthorized, resp.Error.Code)
	})
}
