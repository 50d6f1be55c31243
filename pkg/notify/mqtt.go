package notify

import (
	"errors"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	perrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/itohio/aquaprobe/pkg/config"
	"github.com/itohio/aquaprobe/pkg/probe"
)

// PublishTimeout bounds the wait for a single publish acknowledgement.
const PublishTimeout = 5 * time.Second

// Publisher is the subset of mqtt.Client used to publish readings.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTT publishes every field of a reading to <prefix>/<field>.
type MQTT struct {
	client   Publisher
	prefix   string
	qos      byte
	retained bool
	log      logrus.FieldLogger
	close    func()
}

// DialMQTT connects to the configured broker.
func DialMQTT(cfg config.MQTTConfig, log logrus.FieldLogger) (*MQTT, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.WithError(err).Warn("MQTT connection lost")
		})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, perrors.Wrapf(token.Error(), "connect to MQTT broker %s", cfg.Broker)
	}
	log.WithField("broker", cfg.Broker).Info("Connected to MQTT broker")

	m := NewMQTT(client, cfg, log)
	m.close = func() { client.Disconnect(250) }
	return m, nil
}

// NewMQTT wraps an already connected client.
func NewMQTT(client Publisher, cfg config.MQTTConfig, log logrus.FieldLogger) *MQTT {
	return &MQTT{
		client:   client,
		prefix:   cfg.TopicPrefix,
		qos:      cfg.QoS,
		retained: cfg.Retained,
		log:      log,
	}
}

// Topic returns the topic a field is published to.
func (m *MQTT) Topic(field string) string {
	if m.prefix == "" {
		return field
	}
	return m.prefix + "/" + field
}

// Notify publishes the text payload of every field.
func (m *MQTT) Notify(r probe.Reading) error {
	var errs []error
	for _, f := range r.Fields() {
		topic := m.Topic(f.Name)
		token := m.client.Publish(topic, m.qos, m.retained, f.Value)
		if !token.WaitTimeout(PublishTimeout) {
			errs = append(errs, perrors.Errorf("publish %s: timeout", topic))
			continue
		}
		if err := token.Error(); err != nil {
			errs = append(errs, perrors.Wrapf(err, "publish %s", topic))
		}
	}
	return errors.Join(errs...)
}

// Close disconnects from the broker.
func (m *MQTT) Close() error {
	if m.close != nil {
		m.close()
	}
	return nil
}
