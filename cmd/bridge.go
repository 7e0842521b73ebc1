// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/julianpas/poark.rosserial/pkg/middleware/mqtt"
	"github.com/julianpas/poark.rosserial/pkg/rosserial"
)

var bridgeConfigPath string

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Run the host bridge against a device",
	Long: `Run a full rosserial node against the connected device.

The bridge advertises and subscribes the topics listed in the YAML config,
answers the device's negotiation requests, keeps time synchronized, and
drives the spin loop until the link closes or the process is interrupted.

With an mqtt section in the config, frames received from the device are
forwarded to the broker under <prefix>/<topic>, and broker messages on a
publisher's topic are sent down to the device.

Example config:

  publishers:
    - topic: cmd_vel
      type: geometry_msgs/Twist
  subscribers:
    - topic: odom
      type: nav_msgs/Odometry
  mqtt:
    broker: tcp://localhost:1883
    clientId: rosserial-bridge

Supports serial, TCP, and WebSocket connections.`,
	RunE: runBridge,
}

func init() {
	rootCmd.AddCommand(bridgeCmd)
	bridgeCmd.Flags().StringVarP(&bridgeConfigPath, "config", "c", "", "Bridge topic configuration (YAML)")
}

// TopicSpec names one bridged topic.
type TopicSpec struct {
	Topic string `yaml:"topic"`
	Type  string `yaml:"type"`
}

// BridgeConfig is the YAML bridge configuration. Publishers are topics the
// bridge sends toward the device; subscribers are topics it receives from
// the device.
type BridgeConfig struct {
	Publishers  []TopicSpec  `yaml:"publishers"`
	Subscribers []TopicSpec  `yaml:"subscribers"`
	MQTT        *mqtt.Config `yaml:"mqtt"`
}

func loadBridgeConfig(path string) (*BridgeConfig, error) {
	var config BridgeConfig
	if path == "" {
		return &config, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &config, nil
}

// deviceBound is one broker message waiting for the spin loop to send it.
type deviceBound struct {
	topicID uint16
	payload []byte
}

func runBridge(cmd *cobra.Command, args []string) error {
	config, err := loadBridgeConfig(bridgeConfigPath)
	if err != nil {
		return err
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}

	node := rosserial.NewNode(rosserial.NewStreamLink(conn), rosserial.SystemClock())
	defer node.Shutdown()

	logger.WithField("connection", connInfo).Info("Bridge starting")

	var adapter *mqtt.Adapter
	if config.MQTT != nil {
		adapter = mqtt.New(*config.MQTT, logger)
		if err := adapter.Start(); err != nil {
			return err
		}
		defer adapter.Stop()
	}

	// Broker messages land on paho's goroutines; the spin loop is the only
	// writer on the link, so they queue here until it drains them.
	outbound := make(chan deviceBound, 64)

	for _, spec := range config.Subscribers {
		spec := spec
		sub := &rosserial.Subscriber{
			TopicName:   spec.Topic,
			MessageType: spec.Type,
			Handler: func(payload []byte) bool {
				if adapter != nil {
					p := make([]byte, len(payload))
					copy(p, payload)
					if err := adapter.PublishTopic(spec.Topic, p); err != nil {
						logger.WithError(err).Warn("Broker forward failed")
					}
					return true
				}
				logger.WithFields(logrus.Fields{
					"topic":        spec.Topic,
					"payload_size": len(payload),
				}).Info("Device publication")
				return true
			},
		}
		id, err := node.Subscribe(sub)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", spec.Topic, err)
		}
		logger.WithFields(logrus.Fields{"topic": spec.Topic, "id": id}).Debug("Subscribed")
	}

	for _, spec := range config.Publishers {
		spec := spec
		id, err := node.Advertise(&rosserial.Publisher{TopicName: spec.Topic, MessageType: spec.Type})
		if err != nil {
			return fmt.Errorf("advertise %s: %w", spec.Topic, err)
		}
		logger.WithFields(logrus.Fields{"topic": spec.Topic, "id": id}).Debug("Advertised")

		if adapter != nil {
			err := adapter.SubscribeTopic(spec.Topic, func(payload []byte) {
				select {
				case outbound <- deviceBound{topicID: id, payload: payload}:
				default:
					logger.WithField("topic", spec.Topic).Warn("Device-bound queue full, dropping")
				}
			})
			if err != nil {
				return err
			}
		}
	}

	// Wake the peer: ask it to negotiate its side of the topic table.
	negotiate, err := rosserial.Encode(rosserial.TopicNegotiation, nil)
	if err != nil {
		return err
	}
	if _, err := conn.Write(negotiate); err != nil {
		return fmt.Errorf("negotiation request failed: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	wasConnected := false
	statsTicker := time.NewTicker(30 * time.Second)
	defer statsTicker.Stop()

	for {
		select {
		case <-sigCh:
			logger.Info("Bridge shutting down")
			return nil
		case <-statsTicker.C:
			stats := node.Stats()
			logger.WithFields(logrus.Fields{
				"frames": stats.ValidFrames,
				"bytes":  stats.BytesConsumed,
				"errors": stats.ErrorCount(),
			}).Info("Link statistics")
		case msg := <-outbound:
			if err := node.Publish(msg.topicID, rosserial.RawMessage(msg.payload)); err != nil {
				logger.WithError(err).Warn("Device publish failed")
			}
		default:
		}

		n, err := node.Spin()
		if err != nil {
			if err == io.EOF {
				logger.Info("Link closed")
				return nil
			}
			return fmt.Errorf("link error: %w", err)
		}

		if connected := node.Connected(); connected != wasConnected {
			wasConnected = connected
			if connected {
				logger.Info("Device connected")
			} else {
				logger.Warn("Device connection lost")
			}
		}

		if n == 0 {
			// Idle link; yield instead of spinning hot.
			time.Sleep(2 * time.Millisecond)
		}
	}
}
