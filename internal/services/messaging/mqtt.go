package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"trackframe-worker-go/internal/config"
)

const mqttOpTimeout = 5 * time.Second

// MQTTService is the MQTT implementation of Bus. Subscriptions are restored
// after reconnects since paho does not keep them on a clean session.
type MQTTService struct {
	client mqtt.Client
	cfg    *config.Config

	mu     sync.Mutex
	routes map[string]mqtt.MessageHandler
}

func NewMQTTService(cfg *config.Config) (*MQTTService, error) {
	s := &MQTTService{
		cfg:    cfg,
		routes: make(map[string]mqtt.MessageHandler),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.MQTTBroker)
	opts.SetClientID(cfg.MQTTClientID)
	if cfg.MQTTUsername != "" {
		opts.SetUsername(cfg.MQTTUsername)
		opts.SetPassword(cfg.MQTTPassword)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetConnectTimeout(cfg.MQTTConnectTimeout)

	opts.OnConnect = func(c mqtt.Client) {
		log.Info().Str("broker", cfg.MQTTBroker).Str("client_id", cfg.MQTTClientID).Msg("MQTT connection established")
		s.resubscribe(c)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Str("broker", cfg.MQTTBroker).Msg("MQTT connection lost, will auto-reconnect")
	}

	s.client = mqtt.NewClient(opts)

	token := s.client.Connect()
	if !token.WaitTimeout(cfg.MQTTConnectTimeout) {
		// stop the background connect retry
		s.client.Disconnect(0)
		return nil, fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connection failed: %w", err)
	}

	return s, nil
}

// Publish sends data with the configured QoS, not retained
func (s *MQTTService) Publish(topic string, data interface{}) error {
	payload, err := encode(data)
	if err != nil {
		return err
	}

	token := s.client.Publish(topic, s.qos(), false, payload)
	if !token.WaitTimeout(mqttOpTimeout) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}
	return nil
}

func (s *MQTTService) Subscribe(topic string, handler func([]byte)) (Subscription, error) {
	route := func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Payload())
	}

	token := s.client.Subscribe(topic, s.qos(), route)
	if !token.WaitTimeout(mqttOpTimeout) {
		return nil, fmt.Errorf("subscribe timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("subscribe failed: %w", err)
	}

	s.mu.Lock()
	s.routes[topic] = route
	s.mu.Unlock()

	return &mqttSubscription{service: s, topic: topic}, nil
}

func (s *MQTTService) Kind() string {
	return config.BusMQTT
}

func (s *MQTTService) IsConnected() bool {
	return s.client != nil && s.client.IsConnectionOpen()
}

func (s *MQTTService) Shutdown(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	quiesce := uint(250)
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left > 0 && left < 250*time.Millisecond {
			quiesce = uint(left.Milliseconds())
		}
	}
	s.client.Disconnect(quiesce)
	log.Info().Msg("MQTT disconnected")
	return nil
}

func (s *MQTTService) unsubscribe(topic string) error {
	s.mu.Lock()
	delete(s.routes, topic)
	s.mu.Unlock()

	token := s.client.Unsubscribe(topic)
	if !token.WaitTimeout(mqttOpTimeout) {
		return fmt.Errorf("unsubscribe timeout")
	}
	return token.Error()
}

func (s *MQTTService) resubscribe(c mqtt.Client) {
	s.mu.Lock()
	routes := make(map[string]mqtt.MessageHandler, len(s.routes))
	for topic, route := range s.routes {
		routes[topic] = route
	}
	s.mu.Unlock()

	for topic, route := range routes {
		token := c.Subscribe(topic, s.qos(), route)
		if token.WaitTimeout(mqttOpTimeout) && token.Error() == nil {
			log.Debug().Str("topic", topic).Msg("MQTT subscription restored")
			continue
		}
		log.Warn().Err(token.Error()).Str("topic", topic).Msg("Failed to restore MQTT subscription")
	}
}

func (s *MQTTService) qos() byte {
	if s.cfg.MQTTQoS < 0 || s.cfg.MQTTQoS > 2 {
		return 0
	}
	return byte(s.cfg.MQTTQoS)
}

type mqttSubscription struct {
	service *MQTTService
	topic   string
	once    sync.Once
	err     error
}

func (m *mqttSubscription) Unsubscribe() error {
	m.once.Do(func() {
		m.err = m.service.unsubscribe(m.topic)
	})
	return m.err
}
