package normalization

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackframe-worker-go/internal/models"
)

var frozen = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

func frozenNow() time.Time { return frozen }

func validated(payload map[string]any) models.ValidatedEvent {
	return models.ValidatedEvent{Kind: models.KindObjectTrack, Payload: payload, Source: models.SourceLive}
}

func TestNormalize_EndToEndTrack(t *testing.T) {
	payload := map[string]any{
		"id":         "t1",
		"channel_id": json.Number("5"),
		"start_time": "2025-06-01T10:00:00Z",
		"end_time":   "2025-06-01T10:00:02Z",
		"duration":   json.Number("2"),
		"classes":    []any{map[string]any{"type": "Human", "score": json.Number("0.9")}},
	}

	ev := New(WithClock(frozenNow)).Normalize(validated(payload), "evt-1")

	assert.Equal(t, "evt-1", ev.EventID)
	assert.Equal(t, "t1", ev.TrackID)
	assert.Equal(t, "5", ev.CameraID)
	assert.Equal(t, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), ev.Timestamp)
	assert.Equal(t, models.KindObjectTrack, ev.EventType)
	assert.Equal(t, models.SourceLive, ev.Source)
	assert.Nil(t, ev.SnapshotRef)
	assert.Nil(t, ev.Payload.Image)
	assert.Equal(t, payload["classes"], ev.Payload.Classes)
}

func TestNormalize_ImageReference(t *testing.T) {
	payload := map[string]any{
		"id":         "t2",
		"channel_id": json.Number("1"),
		"start_time": "2025-06-01T10:00:00Z",
		"image": map[string]any{
			"id":        json.Number("77"),
			"type":      "jpeg",
			"timestamp": "2025-06-01T10:00:01.500Z",
			"data":      "/9j/4AAQSkZJRgABAQ...",
		},
	}

	ev := New(WithClock(frozenNow)).Normalize(validated(payload), "evt-2")

	require.NotNil(t, ev.SnapshotRef)
	assert.Equal(t, "axis-image:77", *ev.SnapshotRef)
	require.NotNil(t, ev.Payload.Image)
	assert.Equal(t, json.Number("77"), ev.Payload.Image.ID)
	assert.Equal(t, "jpeg", ev.Payload.Image.Type)
	assert.Equal(t, time.Date(2025, 6, 1, 10, 0, 1, 500_000_000, time.UTC), ev.Timestamp)

	encoded, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.NotContains(t, string(encoded), "/9j/4AAQ")
	assert.NotContains(t, string(encoded), `"data"`)
}

func TestNormalize_StripsImageDataFromParts(t *testing.T) {
	payload := map[string]any{
		"parts": []any{
			map[string]any{
				"object_track_id": "p-9",
				"image":           map[string]any{"id": "i1", "data": "AAAA"},
				"frame":           "BBBB",
			},
		},
	}

	ev := New(WithClock(frozenNow)).Normalize(validated(payload), "evt-3")

	assert.Equal(t, "p-9", ev.TrackID)
	encoded, err := json.Marshal(ev.Payload)
	require.NoError(t, err)
	assert.NotContains(t, string(encoded), "AAAA")
	assert.NotContains(t, string(encoded), "BBBB")
	assert.Contains(t, string(encoded), `"i1"`)

	// the source payload is left untouched
	part := payload["parts"].([]any)[0].(map[string]any)
	assert.Equal(t, "AAAA", part["image"].(map[string]any)["data"])
}

func TestNormalize_StripsImageDataFromEveryField(t *testing.T) {
	payload := map[string]any{
		"id": "t-1",
		"classes": []any{
			map[string]any{"type": "Human", "image": map[string]any{"id": "c1", "data": "CCCC"}},
		},
		"path": []any{
			map[string]any{"x": 0.5, "frame": map[string]any{"id": "f1", "type": "jpeg", "data": "DDDD"}},
		},
		"duration": map[string]any{"seconds": 3, "image": "EEEE"},
	}

	ev := New(WithClock(frozenNow)).Normalize(validated(payload), "evt-4")

	encoded, err := json.Marshal(ev.Payload)
	require.NoError(t, err)
	for _, data := range []string{"CCCC", "DDDD", "EEEE"} {
		assert.NotContains(t, string(encoded), data)
	}
	assert.Contains(t, string(encoded), `"c1"`)
	assert.Contains(t, string(encoded), `"f1"`)
	assert.Contains(t, string(encoded), `"Human"`)

	// the result shares no maps with the source payload
	ev.Payload.Classes.([]any)[0].(map[string]any)["type"] = "Vehicle"
	ev.Payload.Path.([]any)[0].(map[string]any)["x"] = 0.9
	class := payload["classes"].([]any)[0].(map[string]any)
	assert.Equal(t, "Human", class["type"])
	assert.Equal(t, "CCCC", class["image"].(map[string]any)["data"])
	step := payload["path"].([]any)[0].(map[string]any)
	assert.Equal(t, 0.5, step["x"])
	assert.Equal(t, "DDDD", step["frame"].(map[string]any)["data"])
}

func TestNormalize_MissingFieldsDegrade(t *testing.T) {
	ev := New(WithClock(frozenNow)).Normalize(validated(map[string]any{"duration": 1}), "evt-4")

	assert.Empty(t, ev.TrackID)
	assert.Empty(t, ev.CameraID)
	assert.Equal(t, frozen, ev.Timestamp)
	assert.Nil(t, ev.SnapshotRef)
}

func TestNormalize_TimestampPriority(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		want    time.Time
	}{
		{
			name:    "end time used when start is missing",
			payload: map[string]any{"end_time": "2025-06-01T10:00:02Z"},
			want:    time.Date(2025, 6, 1, 10, 0, 2, 0, time.UTC),
		},
		{
			name:    "empty start time is skipped",
			payload: map[string]any{"start_time": "", "end_time": "2025-06-01T10:00:02Z"},
			want:    time.Date(2025, 6, 1, 10, 0, 2, 0, time.UTC),
		},
		{
			name:    "frame timestamp beats start time",
			payload: map[string]any{"start_time": "2025-06-01T10:00:00Z", "frame": map[string]any{"timestamp": "2025-06-01T10:00:05Z"}},
			want:    time.Date(2025, 6, 1, 10, 0, 5, 0, time.UTC),
		},
		{
			name:    "unparsable start time falls back to now",
			payload: map[string]any{"start_time": "yesterday", "end_time": "2025-06-01T10:00:02Z"},
			want:    frozen,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := New(WithClock(frozenNow)).Normalize(validated(tt.payload), "x")
			assert.Equal(t, tt.want, ev.Timestamp)
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	payload := map[string]any{"id": "t1", "channel_id": json.Number("2"), "start_time": "2025-06-01T10:00:00Z"}
	n := New(WithClock(frozenNow))

	a := n.Normalize(validated(payload), "a")
	b := n.Normalize(validated(payload), "b")

	assert.NotEqual(t, a.EventID, b.EventID)
	assert.Equal(t, a.TrackID, b.TrackID)
	assert.Equal(t, a.Timestamp, b.Timestamp)
	assert.Equal(t, a.Payload, b.Payload)
}

func TestParseTimestamp(t *testing.T) {
	cet := time.FixedZone("CET", 3600)
	tests := []struct {
		name  string
		value any
		want  time.Time
	}{
		{"zulu", "2025-01-01T12:34:56Z", time.Date(2025, 1, 1, 12, 34, 56, 0, time.UTC)},
		{"lower z", "2025-01-01T12:34:56z", time.Date(2025, 1, 1, 12, 34, 56, 0, time.UTC)},
		{"offset converted to utc", "2025-01-01T13:34:56+01:00", time.Date(2025, 1, 1, 12, 34, 56, 0, time.UTC)},
		{"no zone assumed utc", "2025-01-01T12:34:56", time.Date(2025, 1, 1, 12, 34, 56, 0, time.UTC)},
		{"fractional no zone", "2025-01-01T12:34:56.250", time.Date(2025, 1, 1, 12, 34, 56, 250_000_000, time.UTC)},
		{"space separator", "2025-01-01 12:34:56", time.Date(2025, 1, 1, 12, 34, 56, 0, time.UTC)},
		{"date only", "2025-01-01", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"surrounding spaces", "  2025-01-01T12:34:56Z ", time.Date(2025, 1, 1, 12, 34, 56, 0, time.UTC)},
		{"time value", time.Date(2025, 1, 1, 13, 0, 0, 0, cet), time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)},
		{"garbage", "not a time", frozen},
		{"empty", "", frozen},
		{"nil", nil, frozen},
		{"number", json.Number("1700000000"), frozen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTimestamp(tt.value, frozenNow)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "", stringify(nil))
	assert.Equal(t, "0", stringify(json.Number("0")))
	assert.Equal(t, "5", stringify(float64(5)))
	assert.Equal(t, "cam-a", stringify("cam-a"))
	assert.Equal(t, "true", stringify(true))
}
