package usage

import (
	"context"
	"fmt"

	"github.com/agentchat/backend/internal/domain/usage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TrackingService applies normalized usage events to the per-user cycle
// counters. It is a thin layer over the repository's atomic increment;
// all rounding and attribution happened during normalization.
type TrackingService struct {
	counterRepo usage.CounterRepository
	logger      *zap.Logger
}

// NewTrackingService creates a new TrackingService
func NewTrackingService(counterRepo usage.CounterRepository, logger *zap.Logger) *TrackingService {
	return &TrackingService{
		counterRepo: counterRepo,
		logger:      logger,
	}
}

// ApplyEvent adds a billable event's delta to the owning user's cycle
// counters and returns the updated counters. Non-billable events are
// rejected.
func (s *TrackingService) ApplyEvent(ctx context.Context, event *usage.Event) (*usage.Counters, error) {
	if !event.IsBillable() {
		return nil, fmt.Errorf("event %s carries no billable delta", event.EventType)
	}

	counters, err := s.counterRepo.Increment(ctx, event.UserID, event.Delta)
	if err != nil {
		return nil, fmt.Errorf("failed to increment usage counters: %w", err)
	}

	s.logger.Debug("Usage applied",
		zap.String("user_id", event.UserID.String()),
		zap.String("event_type", string(event.EventType)),
		zap.Int64("video_minutes", event.Delta.VideoMinutes),
		zap.Int64("audio_minutes", event.Delta.AudioMinutes),
		zap.Int64("messages", event.Delta.Messages),
		zap.String("data_mb", event.Delta.DataTransferredMB.String()))

	return counters, nil
}

// GetCurrentUsage returns the user's counters for the active cycle
func (s *TrackingService) GetCurrentUsage(ctx context.Context, userID uuid.UUID) (*usage.Counters, error) {
	return s.counterRepo.FindCurrent(ctx, userID)
}
