package main

import (
	"context"
	"encoding/json"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/scrollwatch/scrollwatch/scroll"
)

// MQTTMessage represents an outgoing MQTT message.
type MQTTMessage struct {
	Topic   string
	Payload []byte
	QoS     byte
	Retain  bool
}

// MQTTSender wraps the outgoing channel with helpers for the messages
// the daemon publishes.
type MQTTSender struct {
	ch chan<- MQTTMessage
}

// NewMQTTSender creates a sender over the given channel.
func NewMQTTSender(ch chan<- MQTTMessage) *MQTTSender {
	return &MQTTSender{ch: ch}
}

// Send queues a raw message.
func (s *MQTTSender) Send(msg MQTTMessage) {
	s.ch <- msg
}

// PublishClass reflects one class toggle as a retained "1"/"0" topic, so
// late subscribers see the current class set immediately.
func (s *MQTTSender) PublishClass(classPrefix, name string, active bool) {
	payload := []byte("0")
	if active {
		payload = []byte("1")
	}
	s.ch <- MQTTMessage{
		Topic:   classPrefix + "/" + name,
		Payload: payload,
		QoS:     0,
		Retain:  true,
	}
}

// AnnounceTracker publishes the active tracker configuration as a
// retained message, so shims and dashboards can discover the thresholds
// and class names in play.
func (s *MQTTSender) AnnounceTracker(topic string, cfg scroll.Config) error {
	payload, err := json.Marshal(map[string]any{
		"scroll_threshold":      cfg.ScrollThreshold,
		"reverse_scroll_offset": cfg.ReverseScrollOffset,
		"fold_threshold":        cfg.FoldThreshold,
		"scrolled_class":        cfg.ScrolledClass,
		"reverse_scroll_class":  cfg.ReverseScrollClass,
		"past_fold_class":       cfg.PastFoldClass,
	})
	if err != nil {
		return err
	}

	s.Send(MQTTMessage{
		Topic:   topic,
		Payload: payload,
		QoS:     1,
		Retain:  true,
	})
	return nil
}

// mqttSenderWorker publishes outgoing messages, queuing them until the
// viewport worker hands over a connected client.
func mqttSenderWorker(
	ctx context.Context,
	outgoingChan <-chan MQTTMessage,
	clientChan <-chan mqtt.Client,
) {
	log.Println("MQTT sender worker started")

	var client mqtt.Client
	var messageQueue []MQTTMessage

	publish := func(msg MQTTMessage) {
		token := client.Publish(msg.Topic, msg.QoS, msg.Retain, msg.Payload)
		token.Wait()
		if token.Error() != nil {
			log.Printf("Failed to publish to %s: %v\n", msg.Topic, token.Error())
		}
	}

	for {
		select {
		case newClient := <-clientChan:
			log.Println("MQTT sender worker received new client")
			client = newClient

			if client != nil && client.IsConnected() {
				for _, msg := range messageQueue {
					publish(msg)
				}
				if n := len(messageQueue); n > 0 {
					log.Printf("MQTT sender worker flushed %d queued messages\n", n)
				}
				messageQueue = nil
			}

		case msg := <-outgoingChan:
			if client != nil && client.IsConnected() {
				publish(msg)
			} else {
				messageQueue = append(messageQueue, msg)
			}

		case <-ctx.Done():
			log.Println("MQTT sender worker stopped")
			return
		}
	}
}
