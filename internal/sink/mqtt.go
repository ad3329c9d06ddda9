package sink

import (
	"context"
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"weighstation/internal/config"
	"weighstation/internal/models"
)

const disconnectQuiesceMs = 250

// MQTTSink publishes each record as JSON to a broker topic. It is an
// optional live feed for dashboards; a failed publish is dropped, the CSV
// and Firebase sinks remain the durable paths.
type MQTTSink struct {
	client mqtt.Client
	topic  string
}

func NewMQTT(cfg config.MQTTConfig) (*MQTTSink, error) {
	opts := mqtt.NewClientOptions().AddBroker(cfg.Server).SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return &MQTTSink{client: client, topic: cfg.Topic}, nil
}

func (s *MQTTSink) Name() string { return "mqtt" }

func (s *MQTTSink) Store(_ context.Context, rec models.WeightRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	token := s.client.Publish(s.topic, 0, false, b)
	token.Wait()
	return token.Error()
}

func (s *MQTTSink) Close() error {
	if s.client != nil {
		s.client.Disconnect(disconnectQuiesceMs)
	}
	return nil
}
