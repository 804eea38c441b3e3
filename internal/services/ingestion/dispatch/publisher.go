package dispatch

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"trackframe-worker-go/internal/metrics"
	"trackframe-worker-go/internal/models"
	"trackframe-worker-go/internal/services/messaging"
)

// Publisher forwards InternalEvents to the message bus as JSON on
// "<prefix>.<camera_id>", or "<prefix>.unknown" when the camera is not known.
type Publisher struct {
	bus    messaging.Publisher
	prefix string
}

func NewPublisher(bus messaging.Publisher, prefix string) *Publisher {
	if prefix == "" {
		prefix = "events.internal"
	}
	return &Publisher{bus: bus, prefix: prefix}
}

// Subject returns the bus subject an event is published on
func (p *Publisher) Subject(ev models.InternalEvent) string {
	camera := ev.CameraID
	if camera == "" {
		camera = "unknown"
	}
	return fmt.Sprintf("%s.%s", p.prefix, camera)
}

func (p *Publisher) Dispatch(ev models.InternalEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		metrics.DispatchErrors.WithLabelValues("bus").Inc()
		log.Error().Err(err).Str("event_id", ev.EventID).Msg("Failed to encode internal event")
		return
	}

	subject := p.Subject(ev)
	if err := p.bus.Publish(subject, payload); err != nil {
		metrics.DispatchErrors.WithLabelValues("bus").Inc()
		log.Error().Err(err).Str("event_id", ev.EventID).Str("subject", subject).Msg("Failed to publish internal event")
		return
	}

	log.Debug().Str("event_id", ev.EventID).Str("subject", subject).Msg("Internal event published")
}
