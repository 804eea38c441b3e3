package normalization

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"trackframe-worker-go/internal/models"
)

// SnapshotRefPrefix prefixes the opaque snapshot reference built from an image id
const SnapshotRefPrefix = "axis-image:"

// Normalizer maps validated payloads to InternalEvents
type Normalizer struct {
	now func() time.Time
}

// Option configures a Normalizer
type Option func(*Normalizer)

// WithClock overrides the clock used when no timestamp can be parsed
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) {
		n.now = now
	}
}

// New creates a Normalizer using the wall clock
func New(opts ...Option) *Normalizer {
	n := &Normalizer{now: time.Now}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize never fails: missing or malformed fields degrade to empty values
// or to the current time.
func (n *Normalizer) Normalize(ev models.ValidatedEvent, fallbackID string) models.InternalEvent {
	p := ev.Payload
	image := nestedImage(p)

	var snapshotRef *string
	var imageRef *models.ImageRef
	if image != nil {
		imageRef = &models.ImageRef{ID: stripImageData(image["id"]), Type: stripImageData(image["type"])}
		if id, ok := image["id"]; ok && id != nil {
			ref := SnapshotRefPrefix + stringify(id)
			snapshotRef = &ref
		}
	}

	return models.InternalEvent{
		EventID:     fallbackID,
		TrackID:     TrackID(p),
		CameraID:    stringify(p["channel_id"]),
		Timestamp:   ParseTimestamp(timestampSource(p, image), n.now),
		SnapshotRef: snapshotRef,
		Source:      ev.Source,
		EventType:   models.KindObjectTrack,
		Payload: models.TrackPayload{
			ChannelID: stripImageData(p["channel_id"]),
			ID:        stripImageData(p["id"]),
			StartTime: stripImageData(p["start_time"]),
			EndTime:   stripImageData(p["end_time"]),
			Duration:  stripImageData(p["duration"]),
			Classes:   stripImageData(p["classes"]),
			Path:      stripImageData(p["path"]),
			Parts:     stripImageData(p["parts"]),
			Image:     imageRef,
		},
	}
}

// TrackID returns the payload id, else the first object_track_id found in
// parts, else "".
func TrackID(p map[string]any) string {
	if id, ok := p["id"]; ok && id != nil {
		return stringify(id)
	}
	parts, ok := p["parts"].([]any)
	if !ok {
		return ""
	}
	for _, part := range parts {
		m, ok := part.(map[string]any)
		if !ok {
			continue
		}
		if id, ok := m["object_track_id"]; ok && id != nil {
			return stringify(id)
		}
	}
	return ""
}

// timestampSource picks the first usable time field: the nested image/frame
// timestamp, then start_time, then end_time.
func timestampSource(p map[string]any, image map[string]any) any {
	candidates := []any{nil, p["start_time"], p["end_time"]}
	if image != nil {
		candidates[0] = image["timestamp"]
	}
	for _, c := range candidates {
		if present(c) {
			return c
		}
	}
	return nil
}

func present(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(val) != ""
	default:
		return true
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp accepts time.Time values and ISO-8601-like strings. Strings
// without a zone are UTC. Anything unparsable falls back to now().
func ParseTimestamp(value any, now func() time.Time) time.Time {
	switch v := value.(type) {
	case time.Time:
		return v.UTC()
	case *time.Time:
		if v != nil {
			return v.UTC()
		}
	case string:
		s := strings.TrimSpace(v)
		if strings.HasSuffix(s, "z") {
			s = s[:len(s)-1] + "Z"
		}
		for _, layout := range timestampLayouts {
			// ParseInLocation treats zone-less layouts as UTC
			if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
				return t.UTC()
			}
		}
	}
	return now().UTC()
}

// nestedImage returns the image (or frame) object, if the payload carries one
func nestedImage(p map[string]any) map[string]any {
	if m, ok := p["image"].(map[string]any); ok {
		return m
	}
	if m, ok := p["frame"].(map[string]any); ok {
		return m
	}
	return nil
}

// stripImageData copies v, reducing any nested image/frame object to its id
// and type and dropping image/frame values that are not objects.
func stripImageData(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			if k == "image" || k == "frame" {
				if m, ok := item.(map[string]any); ok {
					out[k] = map[string]any{"id": m["id"], "type": m["type"]}
				}
				continue
			}
			out[k] = stripImageData(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = stripImageData(item)
		}
		return out
	default:
		return v
	}
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return fmt.Sprint(val)
	}
}
