package messaging

import (
	"context"
	"fmt"

	"trackframe-worker-go/internal/config"
)

// Subscription is an active topic subscription
type Subscription interface {
	Unsubscribe() error
}

// Subscriber delivers message bodies for a topic to handler
type Subscriber interface {
	Subscribe(topic string, handler func([]byte)) (Subscription, error)
}

// Publisher sends data to a topic; non-byte values are JSON-encoded
type Publisher interface {
	Publish(topic string, data interface{}) error
}

// Bus is a connected message bus client
type Bus interface {
	Subscriber
	Publisher
	Kind() string
	IsConnected() bool
	Shutdown(ctx context.Context) error
}

// Connect opens the bus selected by cfg.BusKind
func Connect(cfg *config.Config) (Bus, error) {
	switch cfg.BusKind {
	case config.BusNATS:
		svc, err := NewService(cfg)
		if err != nil {
			return nil, err
		}
		return svc, nil
	case config.BusMQTT:
		svc, err := NewMQTTService(cfg)
		if err != nil {
			return nil, err
		}
		return svc, nil
	default:
		return nil, fmt.Errorf("unsupported bus kind %q", cfg.BusKind)
	}
}
