package models

import (
	"time"
)

// EventSource identifies where a raw payload arrived from
type EventSource string

const (
	SourceLive   EventSource = "live"
	SourceReplay EventSource = "replay"
)

// String returns the string representation of EventSource
func (s EventSource) String() string {
	return string(s)
}

// EventKind is the heuristic classification of a validated payload
type EventKind string

const (
	KindObjectTrack EventKind = "object_track"
	KindFrame       EventKind = "frame"
	KindUnknown     EventKind = "unknown"
)

// String returns the string representation of EventKind
func (k EventKind) String() string {
	return string(k)
}

// RawEvent is an unvalidated payload plus arrival metadata.
// Payload holds the decoded JSON value as-is; it is usually a
// map[string]any but may be any JSON value when the input was malformed.
type RawEvent struct {
	Payload    any
	ReceivedAt time.Time
	Source     EventSource
	Sequence   *int   // 1-based position in the replay file
	OriginFile string // replay file path, empty for live events
}

// ValidatedEvent is a RawEvent payload that passed structural checks
type ValidatedEvent struct {
	Kind       EventKind
	Payload    map[string]any
	Source     EventSource
	Sequence   *int
	OriginFile string
}

// InternalEvent is the canonical event handed to downstream consumers
type InternalEvent struct {
	EventID     string       `json:"event_id"`
	TrackID     string       `json:"track_id"`
	CameraID    string       `json:"camera_id"`
	Timestamp   time.Time    `json:"timestamp"`
	SnapshotRef *string      `json:"snapshot_ref"`
	Source      EventSource  `json:"source"`
	EventType   EventKind    `json:"event_type"`
	Payload     TrackPayload `json:"payload"`
}

// TrackPayload is the allow-listed subset of an object track payload.
// Image data is never carried; only the image id and type survive.
type TrackPayload struct {
	ChannelID any       `json:"channel_id"`
	ID        any       `json:"id"`
	StartTime any       `json:"start_time"`
	EndTime   any       `json:"end_time"`
	Duration  any       `json:"duration"`
	Classes   any       `json:"classes"`
	Path      any       `json:"path"`
	Parts     any       `json:"parts"`
	Image     *ImageRef `json:"image"`
}

// ImageRef identifies a snapshot without embedding it
type ImageRef struct {
	ID   any `json:"id"`
	Type any `json:"type"`
}

// IntPtr returns a pointer to v
func IntPtr(v int) *int {
	return &v
}
