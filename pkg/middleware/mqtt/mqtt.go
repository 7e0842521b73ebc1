// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package mqtt adapts rosserial topics to an MQTT broker.
//
// Device publications are forwarded to <prefix>/<topic>, and broker
// messages arriving on <prefix>/<topic> are handed back for publication
// to the device. The adapter carries payloads verbatim; message-type
// translation is the broker consumers' concern.
package mqtt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
)

// Errors returned by the adapter.
var (
	ErrNotRunning     = errors.New("mqtt adapter not running")
	ErrAlreadyRunning = errors.New("mqtt adapter already running")
	ErrConnectFailed  = errors.New("mqtt connect failed")
)

// Config holds the broker connection settings.
type Config struct {
	Broker         string        `yaml:"broker"`
	ClientID       string        `yaml:"clientId"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	QoS            byte          `yaml:"qos"`
	Prefix         string        `yaml:"prefix"`
	ConnectTimeout time.Duration `yaml:"connectTimeout"`
}

// Adapter is one MQTT session forwarding rosserial topics.
type Adapter struct {
	config Config
	logger *logrus.Logger

	mu      sync.Mutex
	client  paho.Client
	running bool
}

// New creates an adapter with the given configuration.
func New(config Config, logger *logrus.Logger) *Adapter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Adapter{config: config, logger: logger}
}

// Config returns the adapter's configuration.
func (a *Adapter) Config() Config {
	return a.config
}

// IsRunning reports whether the adapter holds a broker connection.
func (a *Adapter) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

// validateConfig validates the broker configuration and applies defaults.
func (a *Adapter) validateConfig() error {
	if a.config.Broker == "" {
		return errors.New("broker URL is required")
	}
	if a.config.ClientID == "" {
		return errors.New("client ID is required")
	}
	if a.config.QoS > 2 {
		return errors.New("QoS must be 0, 1, or 2")
	}
	if a.config.Prefix == "" {
		a.config.Prefix = "ros"
	}
	if a.config.ConnectTimeout <= 0 {
		a.config.ConnectTimeout = 30 * time.Second
	}
	return nil
}

// Start validates the configuration and connects to the broker.
func (a *Adapter) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		return ErrAlreadyRunning
	}
	if err := a.validateConfig(); err != nil {
		return err
	}

	a.logger.WithFields(logrus.Fields{
		"broker":    a.config.Broker,
		"client_id": a.config.ClientID,
		"prefix":    a.config.Prefix,
	}).Info("Connecting to MQTT broker")

	opts := paho.NewClientOptions()
	opts.AddBroker(a.config.Broker)
	opts.SetClientID(a.config.ClientID)
	opts.SetUsername(a.config.Username)
	opts.SetPassword(a.config.Password)
	opts.SetAutoReconnect(true)
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		a.logger.WithError(err).Error("MQTT connection lost")
	}

	a.client = paho.NewClient(opts)
	token := a.client.Connect()
	if !token.WaitTimeout(a.config.ConnectTimeout) {
		return fmt.Errorf("%w: timeout after %s", ErrConnectFailed, a.config.ConnectTimeout)
	}
	if token.Error() != nil {
		return fmt.Errorf("%w: %v", ErrConnectFailed, token.Error())
	}

	a.running = true
	a.logger.Info("MQTT adapter started")
	return nil
}

// Stop disconnects from the broker.
func (a *Adapter) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running {
		return
	}
	a.client.Disconnect(250)
	a.running = false
	a.logger.Info("MQTT adapter stopped")
}

// brokerTopic maps a rosserial topic name onto the broker namespace.
func (a *Adapter) brokerTopic(topicName string) string {
	return a.config.Prefix + "/" + topicName
}

// PublishTopic forwards one device publication to the broker.
func (a *Adapter) PublishTopic(topicName string, payload []byte) error {
	a.mu.Lock()
	client, running := a.client, a.running
	a.mu.Unlock()

	if !running {
		return ErrNotRunning
	}

	token := client.Publish(a.brokerTopic(topicName), a.config.QoS, false, payload)
	if token.Error() != nil {
		a.logger.WithError(token.Error()).WithField("topic", topicName).Error("MQTT publish failed")
		return token.Error()
	}

	a.logger.WithFields(logrus.Fields{
		"topic":        topicName,
		"payload_size": len(payload),
	}).Debug("Forwarded publication to broker")
	return nil
}

// SubscribeTopic routes broker messages for topicName to handler. The
// handler receives the raw payload bytes.
func (a *Adapter) SubscribeTopic(topicName string, handler func(payload []byte)) error {
	a.mu.Lock()
	client, running := a.client, a.running
	a.mu.Unlock()

	if !running {
		return ErrNotRunning
	}

	token := client.Subscribe(a.brokerTopic(topicName), a.config.QoS, func(_ paho.Client, m paho.Message) {
		a.logger.WithFields(logrus.Fields{
			"topic":        topicName,
			"payload_size": len(m.Payload()),
		}).Debug("Broker message for device")
		handler(m.Payload())
	})
	if !token.WaitTimeout(a.config.ConnectTimeout) {
		return fmt.Errorf("subscribe to %s timed out", topicName)
	}
	if token.Error() != nil {
		return token.Error()
	}

	a.logger.WithField("topic", topicName).Info("Subscribed on broker")
	return nil
}
