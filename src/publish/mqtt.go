package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/ryansname/switchsum/src/config"
)

const mqttTimeout = 30 * time.Second

// MQTTMessage represents an outgoing MQTT message
type MQTTMessage struct {
	Topic   string
	Payload []byte
	QoS     byte
	Retain  bool
}

// mqttClient is the part of mqtt.Client the sink uses
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTT publishes each report row as a retained JSON message
type MQTT struct {
	client mqttClient
	topic  string
	logger logrus.FieldLogger
}

// NewMQTT connects to the broker
func NewMQTT(cfg config.MQTT, logger logrus.FieldLogger) (*MQTT, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetConnectTimeout(mqttTimeout)
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		logger.WithError(err).Warn("MQTT connection lost")
	})

	client := mqtt.NewClient(opts)
	logger.WithField("broker", cfg.Broker).Info("Connecting to MQTT broker")
	if token := client.Connect(); !token.WaitTimeout(mqttTimeout) || token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %v", cfg.Broker, token.Error())
	}
	return &MQTT{client: client, topic: cfg.Topic, logger: logger}, nil
}

// Name implements Publisher
func (s *MQTT) Name() string { return "mqtt" }

// mqttMessages lays b out as {prefix}/{scenario}/{report}/{row}, plus a
// {prefix}/{scenario}/{report} message naming the run and row count.
func mqttMessages(prefix string, b Batch) ([]MQTTMessage, error) {
	base := prefix + "/" + strconv.Itoa(b.ScenarioID) + "/" + b.Report

	type reportInfo struct {
		RunID   string   `json:"run_id"`
		Columns []string `json:"columns"`
		Rows    int      `json:"rows"`
	}
	payload, err := json.Marshal(reportInfo{RunID: b.RunID.String(), Columns: b.Header, Rows: len(b.Rows)})
	if err != nil {
		return nil, err
	}
	out := []MQTTMessage{{Topic: base, Payload: payload, QoS: 1, Retain: true}}

	for i, r := range b.Records() {
		payload, err := json.Marshal(r)
		if err != nil {
			return nil, err
		}
		out = append(out, MQTTMessage{
			Topic:   base + "/" + strconv.Itoa(i),
			Payload: payload,
			QoS:     1,
			Retain:  true,
		})
	}
	return out, nil
}

// Publish implements Publisher
func (s *MQTT) Publish(ctx context.Context, batches []Batch) error {
	for _, b := range batches {
		msgs, err := mqttMessages(s.topic, b)
		if err != nil {
			return err
		}
		for _, msg := range msgs {
			if err := ctx.Err(); err != nil {
				return err
			}
			token := s.client.Publish(msg.Topic, msg.QoS, msg.Retain, msg.Payload)
			if !token.WaitTimeout(mqttTimeout) {
				return fmt.Errorf("mqtt publish %s: timed out", msg.Topic)
			}
			if token.Error() != nil {
				return fmt.Errorf("mqtt publish %s: %w", msg.Topic, token.Error())
			}
		}
		s.logger.WithFields(logrus.Fields{"report": b.Report, "messages": len(msgs)}).Debug("Published report over MQTT")
	}
	return nil
}

// Close implements Publisher
func (s *MQTT) Close() error {
	s.client.Disconnect(250)
	return nil
}
