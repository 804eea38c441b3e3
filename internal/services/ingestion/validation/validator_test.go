package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"trackframe-worker-go/internal/models"
	"trackframe-worker-go/internal/services/ingestion/validation"
)

func raw(payload any) models.RawEvent {
	return models.RawEvent{Payload: payload, Source: models.SourceReplay, Sequence: models.IntPtr(3), OriginFile: "f.json"}
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		payload any
		reason  string
	}{
		{"nil payload", nil, validation.ReasonNotObject},
		{"array payload", []any{map[string]any{"id": "x"}}, validation.ReasonNotObject},
		{"string payload", "hello", validation.ReasonNotObject},
		{"empty object", map[string]any{}, validation.ReasonEmptyPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := validation.Validate(raw(tt.payload))
			assert.False(t, res.OK)
			assert.Equal(t, tt.reason, res.Reason)
		})
	}
}

func TestValidate_Classification(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		kind    models.EventKind
	}{
		{"object track", map[string]any{"id": "t1", "start_time": "x"}, models.KindObjectTrack},
		{"object track via parts", map[string]any{"id": "t1", "parts": []any{}}, models.KindObjectTrack},
		{"object track without id downgrades", map[string]any{"duration": 2}, models.KindUnknown},
		{"frame with image", map[string]any{"timestamp": "x", "image": map[string]any{}}, models.KindFrame},
		{"frame with frame", map[string]any{"timestamp": "x", "frame": "abc"}, models.KindFrame},
		{"timestamp alone", map[string]any{"timestamp": "x"}, models.KindUnknown},
		{"track keys win over frame keys", map[string]any{"id": "t", "timestamp": "x", "image": 1, "end_time": "y"}, models.KindObjectTrack},
		{"unrelated keys", map[string]any{"foo": "bar"}, models.KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := validation.Validate(raw(tt.payload))
			assert.True(t, res.OK)
			assert.Equal(t, tt.kind, res.Event.Kind)
		})
	}
}

func TestValidate_CarriesMetadata(t *testing.T) {
	payload := map[string]any{"id": "t1", "start_time": "2025-01-01T00:00:00Z"}
	res := validation.Validate(raw(payload))

	assert.True(t, res.OK)
	assert.Equal(t, models.SourceReplay, res.Event.Source)
	assert.Equal(t, 3, *res.Event.Sequence)
	assert.Equal(t, "f.json", res.Event.OriginFile)
	assert.Equal(t, payload, res.Event.Payload)
}
