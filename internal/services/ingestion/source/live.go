package source

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"trackframe-worker-go/internal/models"
)

// ErrEmptyMessage is returned for bus messages without a body
var ErrEmptyMessage = errors.New("empty message")

// DecodeLive turns one message-bus body into a live RawEvent.
// Invalid UTF-8 is replaced rather than rejected; invalid JSON is an error
// the listener logs before dropping the message. Any JSON value is accepted
// here, shape checks belong to validation.
func DecodeLive(data []byte, receivedAt time.Time) (models.RawEvent, error) {
	text := bytes.ToValidUTF8(data, []byte("�"))
	if len(bytes.TrimSpace(text)) == 0 {
		return models.RawEvent{}, ErrEmptyMessage
	}

	value, err := decodeValue(text)
	if err != nil {
		return models.RawEvent{}, fmt.Errorf("invalid json: %w", err)
	}

	return models.RawEvent{
		Payload:    value,
		ReceivedAt: receivedAt.UTC(),
		Source:     models.SourceLive,
	}, nil
}
