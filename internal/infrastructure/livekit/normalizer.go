package livekit

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/agentchat/backend/internal/domain/usage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Estimated data volume per hour of egress, in MB. The provider does not
// report transferred bytes, so billing works from these fixed estimates.
var (
	egressMBPerHour = map[string]int64{
		"file":   1000,
		"stream": 500,
	}
	egressMBPerHourDefault int64 = 100
	recordingMBPerHour     int64 = 1500
)

var secondsPerHour = decimal.NewFromInt(3600)

// Normalize converts a decoded provider event into zero or more canonical
// usage events. Events with no billable quantity, and quantities that
// cannot be attributed to a user, produce nothing: no charge is ever made
// without an attributable user.
func Normalize(event *WebhookEvent) []usage.Event {
	switch event.Event {
	case EventRoomFinished:
		return normalizeRoomFinished(event)
	case EventParticipantLeft:
		return normalizeParticipantLeft(event)
	case EventEgressEnded, EventRecordingEnded:
		return normalizeEgress(event)
	default:
		// Non-billable lifecycle event; recorded for audit only.
		return nil
	}
}

// normalizeRoomFinished distributes the total room duration evenly across
// participants: each attributable participant is billed
// ceil(duration/60/numParticipants) minutes of both video and audio.
func normalizeRoomFinished(event *WebhookEvent) []usage.Event {
	room := event.Room
	if room == nil || room.DurationSeconds <= 0 {
		return nil
	}

	participants := room.NumParticipants
	if participants <= 0 {
		participants = int64(len(room.Participants))
	}
	if participants <= 0 {
		return nil
	}

	minutes := ceilDiv(room.DurationSeconds, participants*60)

	var events []usage.Event
	for i := range room.Participants {
		participant := &room.Participants[i]
		userID, ok := resolveUserID(participant)
		if !ok {
			continue
		}
		events = append(events, usage.Event{
			EventType:     usage.EventTypeRoomFinished,
			RoomID:        room.SID,
			ParticipantID: participant.SID,
			UserID:        userID,
			Timestamp:     eventTime(event),
			Delta: usage.Delta{
				VideoMinutes: minutes,
				AudioMinutes: minutes,
			},
		})
	}
	return events
}

// normalizeParticipantLeft bills the participant's own session duration,
// rounded up to whole minutes, to the media kinds their published tracks
// indicate were active. Absent track info bills both kinds: the rules
// fail open toward billing the user, never toward under-billing.
func normalizeParticipantLeft(event *WebhookEvent) []usage.Event {
	participant := event.Participant
	if participant == nil {
		return nil
	}

	seconds := participant.LeftAt - participant.JoinedAt
	if seconds <= 0 {
		return nil
	}
	minutes := ceilDiv(seconds, 60)

	hasVideo, hasAudio := trackKinds(participant.Tracks)

	userID, ok := resolveUserID(participant)
	if !ok {
		return nil
	}

	delta := usage.Delta{}
	if hasVideo {
		delta.VideoMinutes = minutes
	}
	if hasAudio {
		delta.AudioMinutes = minutes
	}
	if delta.IsZero() {
		return nil
	}

	roomID := ""
	if event.Room != nil {
		roomID = event.Room.SID
	}

	return []usage.Event{{
		EventType:     usage.EventTypeParticipantLeft,
		RoomID:        roomID,
		ParticipantID: participant.SID,
		UserID:        userID,
		Timestamp:     eventTime(event),
		Delta:         delta,
	}}
}

// normalizeEgress converts egress duration to an estimated data volume:
// hours * MB/hour, where the rate depends on the egress type.
func normalizeEgress(event *WebhookEvent) []usage.Event {
	info := event.EgressInfo
	if info == nil || info.DurationSeconds <= 0 {
		return nil
	}

	userID, err := uuid.Parse(info.UserID)
	if err != nil || userID == uuid.Nil {
		return nil
	}

	rate := recordingMBPerHour
	if event.Event == EventEgressEnded {
		var ok bool
		rate, ok = egressMBPerHour[strings.ToLower(info.EgressType)]
		if !ok {
			rate = egressMBPerHourDefault
		}
	}

	dataMB := decimal.NewFromInt(info.DurationSeconds).
		Div(secondsPerHour).
		Mul(decimal.NewFromInt(rate))

	eventType := usage.EventTypeEgressEnded
	if event.Event == EventRecordingEnded {
		eventType = usage.EventTypeRecordingEnded
	}

	return []usage.Event{{
		EventType:     eventType,
		RoomID:        info.RoomName,
		ParticipantID: info.EgressID,
		UserID:        userID,
		Timestamp:     eventTime(event),
		Delta:         usage.Delta{DataTransferredMB: dataMB},
	}}
}

// resolveUserID extracts the billable user from a participant. The
// declared identity wins; otherwise the participant metadata blob is
// probed for a userId/user_id/identity field. Malformed metadata leaves
// the event unattributable and it is dropped: no charge without an
// attributable user.
func resolveUserID(participant *ParticipantInfo) (uuid.UUID, bool) {
	if id, err := uuid.Parse(participant.Identity); err == nil && id != uuid.Nil {
		return id, true
	}

	if participant.Metadata == "" {
		return uuid.Nil, false
	}

	var metadata map[string]any
	if err := json.Unmarshal([]byte(participant.Metadata), &metadata); err != nil {
		return uuid.Nil, false
	}

	for _, key := range []string{"userId", "user_id", "identity"} {
		raw, ok := metadata[key].(string)
		if !ok {
			continue
		}
		if id, err := uuid.Parse(raw); err == nil && id != uuid.Nil {
			return id, true
		}
	}
	return uuid.Nil, false
}

// trackKinds reports which media kinds the participant published. Absent
// track info is treated as both kinds active.
func trackKinds(tracks []TrackInfo) (hasVideo, hasAudio bool) {
	if len(tracks) == 0 {
		return true, true
	}
	for _, track := range tracks {
		switch strings.ToLower(track.Type) {
		case "video":
			hasVideo = true
		case "audio":
			hasAudio = true
		}
	}
	return hasVideo, hasAudio
}

func eventTime(event *WebhookEvent) time.Time {
	if event.CreatedAt > 0 {
		return time.Unix(event.CreatedAt, 0)
	}
	return time.Now()
}

func ceilDiv(numerator, denominator int64) int64 {
	if denominator <= 0 {
		return 0
	}
	return (numerator + denominator - 1) / denominator
}
