package source

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"trackframe-worker-go/internal/models"
)

// ErrMalformedReplay is returned when a replay file is neither JSON Lines,
// a JSON array nor a single JSON value.
var ErrMalformedReplay = errors.New("malformed replay file")

// ReadReplayFile loads a replay file and returns its RawEvents in file order.
// Accepted layouts: one JSON object per line, a JSON array of objects, or a
// single JSON object. Elements that are not objects are skipped but still
// consume their sequence number.
func ReadReplayFile(path string) ([]models.RawEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read replay file: %w", err)
	}
	return ParseReplay(data, path, time.Now)
}

// ParseReplay is ReadReplayFile on an in-memory document
func ParseReplay(data []byte, origin string, now func() time.Time) ([]models.RawEvent, error) {
	items, err := decodeReplay(data)
	if err != nil {
		log.Warn().Err(err).Str("replay_file", origin).Msg("Replay file could not be parsed")
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedReplay, origin, err)
	}

	events := make([]models.RawEvent, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			log.Debug().
				Str("replay_file", origin).
				Int("replay_seq", i+1).
				Msg("Skipping non-object replay element")
			continue
		}
		events = append(events, models.RawEvent{
			Payload:    obj,
			ReceivedAt: now().UTC(),
			Source:     models.SourceReplay,
			Sequence:   models.IntPtr(i + 1),
			OriginFile: origin,
		})
	}
	return events, nil
}

func decodeReplay(data []byte) ([]any, error) {
	text := bytes.TrimSpace(data)
	if len(text) == 0 {
		return nil, nil
	}

	// Multi-line documents are JSON Lines only if every non-empty line is an object
	if bytes.Contains(text, []byte("\n")) {
		if rows, ok := decodeLines(text); ok {
			return rows, nil
		}
	}

	value, err := decodeValue(text)
	if err != nil {
		return nil, err
	}
	switch v := value.(type) {
	case []any:
		return v, nil
	case map[string]any:
		return []any{v}, nil
	default:
		return nil, nil
	}
}

func decodeLines(text []byte) ([]any, bool) {
	var rows []any
	for _, line := range bytes.Split(text, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		value, err := decodeValue(line)
		if err != nil {
			return nil, false
		}
		if _, ok := value.(map[string]any); !ok {
			return nil, false
		}
		rows = append(rows, value)
	}
	return rows, true
}

// decodeValue parses exactly one JSON value, keeping numbers as json.Number
func decodeValue(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON value")
	}
	return value, nil
}
