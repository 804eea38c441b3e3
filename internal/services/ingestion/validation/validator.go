package validation

import (
	"trackframe-worker-go/internal/models"
)

// Rejection reasons
const (
	ReasonNotObject    = "not an object"
	ReasonEmptyPayload = "empty payload"
)

// objectTrackKeys mark a payload as an object track
var objectTrackKeys = []string{"start_time", "end_time", "duration", "classes", "path", "parts"}

// Result is the outcome of validating one RawEvent
type Result struct {
	OK     bool
	Event  models.ValidatedEvent
	Reason string
}

// Validate checks the payload shape and classifies it. It never panics and
// produces a result for every input; routing on Kind happens downstream.
func Validate(raw models.RawEvent) Result {
	payload, ok := raw.Payload.(map[string]any)
	if !ok {
		return Result{Reason: ReasonNotObject}
	}
	if len(payload) == 0 {
		return Result{Reason: ReasonEmptyPayload}
	}

	kind := Classify(payload)
	// Tracks without an id cannot be correlated later
	if kind == models.KindObjectTrack {
		if _, hasID := payload["id"]; !hasID {
			kind = models.KindUnknown
		}
	}

	return Result{
		OK: true,
		Event: models.ValidatedEvent{
			Kind:       kind,
			Payload:    payload,
			Source:     raw.Source,
			Sequence:   raw.Sequence,
			OriginFile: raw.OriginFile,
		},
	}
}

// Classify guesses the payload kind from the keys it carries
func Classify(payload map[string]any) models.EventKind {
	for _, key := range objectTrackKeys {
		if _, ok := payload[key]; ok {
			return models.KindObjectTrack
		}
	}

	_, hasTimestamp := payload["timestamp"]
	_, hasImage := payload["image"]
	_, hasFrame := payload["frame"]
	if hasTimestamp && (hasImage || hasFrame) {
		return models.KindFrame
	}

	return models.KindUnknown
}
