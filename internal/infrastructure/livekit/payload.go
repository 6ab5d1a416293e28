package livekit

import (
	"encoding/json"
	"fmt"
)

// Provider event type names. Only a subset carries billable quantities;
// all others are recorded for audit and otherwise ignored.
const (
	EventRoomFinished    = "room_finished"
	EventParticipantLeft = "participant_left"
	EventEgressEnded     = "egress_ended"
	EventRecordingEnded  = "recording_ended"
)

// WebhookEvent is the decoded provider payload. Field presence varies by
// event type: room events carry Room, participant events carry both Room
// and Participant, egress/recording events carry EgressInfo.
type WebhookEvent struct {
	Event       string           `json:"event"`
	ID          string           `json:"id"`
	CreatedAt   int64            `json:"createdAt"`
	Room        *RoomInfo        `json:"room,omitempty"`
	Participant *ParticipantInfo `json:"participant,omitempty"`
	EgressInfo  *EgressInfo      `json:"egressInfo,omitempty"`
}

// RoomInfo describes the room a lifecycle event belongs to
type RoomInfo struct {
	SID             string            `json:"sid"`
	Name            string            `json:"name"`
	NumParticipants int64             `json:"numParticipants"`
	DurationSeconds int64             `json:"duration"`
	Participants    []ParticipantInfo `json:"participants,omitempty"`
}

// ParticipantInfo describes one participant session. Metadata is an
// opaque JSON blob set by the application at join time.
type ParticipantInfo struct {
	SID      string      `json:"sid"`
	Identity string      `json:"identity"`
	Metadata string      `json:"metadata,omitempty"`
	JoinedAt int64       `json:"joinedAt"`
	LeftAt   int64       `json:"leftAt"`
	Tracks   []TrackInfo `json:"tracks,omitempty"`
}

// TrackInfo describes a published media track
type TrackInfo struct {
	SID  string `json:"sid"`
	Type string `json:"type"` // "video" or "audio"
}

// EgressInfo describes a completed export (recording, file or stream
// egress). UserID is set by the application when the egress is started.
type EgressInfo struct {
	EgressID        string `json:"egressId"`
	RoomName        string `json:"roomName"`
	EgressType      string `json:"egressType"` // "file", "stream" or empty
	UserID          string `json:"userId,omitempty"`
	DurationSeconds int64  `json:"duration"`
}

// DecodePayload parses a raw webhook body into a WebhookEvent
func DecodePayload(payload []byte) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed to decode webhook payload: %w", err)
	}
	if event.Event == "" {
		return nil, fmt.Errorf("webhook payload has no event type")
	}
	return &event, nil
}
