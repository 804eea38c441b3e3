package ingestion

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"trackframe-worker-go/internal/metrics"
	"trackframe-worker-go/internal/models"
	"trackframe-worker-go/internal/services/ingestion/dispatch"
	"trackframe-worker-go/internal/services/ingestion/normalization"
	"trackframe-worker-go/internal/services/ingestion/source"
	"trackframe-worker-go/internal/services/ingestion/validation"
)

// ErrNoDispatcher is returned by NewService when no sink is given
var ErrNoDispatcher = errors.New("ingestion: dispatcher is required")

// RawSink persists raw events verbatim, e.g. rawlog.Store
type RawSink interface {
	Append(raw models.RawEvent) error
}

// Stats is a snapshot of ingestion counters
type Stats struct {
	Received       int64 `json:"received"`
	Rejected       int64 `json:"rejected"`
	Skipped        int64 `json:"skipped"`
	Dispatched     int64 `json:"dispatched"`
	RawLogFailures int64 `json:"raw_log_failures"`
}

// Service runs Validate -> Normalize -> Dispatch for live and replayed
// events alike. It is safe for concurrent use.
type Service struct {
	dispatcher dispatch.Dispatcher
	normalizer *normalization.Normalizer
	rawSink    RawSink
	newID      func() string

	received       atomic.Int64
	rejected       atomic.Int64
	skipped        atomic.Int64
	dispatched     atomic.Int64
	rawLogFailures atomic.Int64
}

// Option configures a Service
type Option func(*Service)

// WithRawSink enables best-effort raw event persistence
func WithRawSink(sink RawSink) Option {
	return func(s *Service) {
		s.rawSink = sink
	}
}

// WithIDGenerator replaces the uuid event id generator
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		s.newID = gen
	}
}

func WithNormalizer(n *normalization.Normalizer) Option {
	return func(s *Service) {
		s.normalizer = n
	}
}

func NewService(dispatcher dispatch.Dispatcher, opts ...Option) (*Service, error) {
	if dispatcher == nil {
		return nil, ErrNoDispatcher
	}

	s := &Service{
		dispatcher: dispatcher,
		normalizer: normalization.New(),
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// HandleRawEvent returns true iff an InternalEvent was produced and dispatched.
// It never panics on bad input.
func (s *Service) HandleRawEvent(raw models.RawEvent) (dispatched bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("source", raw.Source.String()).Msg("Panic while handling raw event")
			dispatched = false
		}
	}()

	s.received.Add(1)
	metrics.EventsReceived.WithLabelValues(raw.Source.String()).Inc()

	res := validation.Validate(raw)
	if !res.OK {
		s.rejected.Add(1)
		metrics.EventsRejected.WithLabelValues(res.Reason).Inc()
		withOrigin(log.Warn(), raw).
			Str("reason", res.Reason).
			Msg("Rejected raw event")
		return false
	}

	if s.rawSink != nil {
		if err := s.rawSink.Append(raw); err != nil {
			s.rawLogFailures.Add(1)
			metrics.RawLogFailures.Inc()
			withOrigin(log.Warn(), raw).Err(err).Msg("Failed to persist raw event, continuing")
		}
	}

	if res.Event.Kind != models.KindObjectTrack {
		s.skipped.Add(1)
		metrics.EventsSkipped.WithLabelValues(res.Event.Kind.String()).Inc()
		withOrigin(log.Info(), raw).
			Str("kind", res.Event.Kind.String()).
			Msg("Event kind not yet mappable, skipping")
		return false
	}

	ev := s.normalizer.Normalize(res.Event, s.newID())
	s.dispatcher.Dispatch(ev)

	s.dispatched.Add(1)
	metrics.EventsDispatched.WithLabelValues(raw.Source.String()).Inc()
	log.Debug().
		Str("event_id", ev.EventID).
		Str("track_id", ev.TrackID).
		Str("camera_id", ev.CameraID).
		Time("timestamp", ev.Timestamp).
		Str("source", ev.Source.String()).
		Msg("Dispatched internal event")
	return true
}

// RunReplay feeds a replay file through HandleRawEvent in file order and
// returns how many events were dispatched. A malformed file yields
// source.ErrMalformedReplay and dispatches nothing.
func (s *Service) RunReplay(path string) (int, error) {
	start := time.Now()
	events, err := source.ReadReplayFile(path)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, raw := range events {
		if s.HandleRawEvent(raw) {
			count++
		}
	}

	log.Info().
		Str("replay_file", path).
		Int("events", len(events)).
		Int("dispatched", count).
		Dur("duration", time.Since(start)).
		Msg("Replay finished")
	return count, nil
}

func (s *Service) Stats() Stats {
	return Stats{
		Received:       s.received.Load(),
		Rejected:       s.rejected.Load(),
		Skipped:        s.skipped.Load(),
		Dispatched:     s.dispatched.Load(),
		RawLogFailures: s.rawLogFailures.Load(),
	}
}

func withOrigin(e *zerolog.Event, raw models.RawEvent) *zerolog.Event {
	e = e.Str("source", raw.Source.String())
	if raw.OriginFile != "" {
		e = e.Str("replay_file", raw.OriginFile)
	}
	if raw.Sequence != nil {
		e = e.Int("replay_seq", *raw.Sequence)
	}
	return e
}
