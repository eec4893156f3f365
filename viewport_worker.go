package main

import (
	"context"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// ViewportMessage is one raw inbound MQTT message from the viewport shim.
type ViewportMessage struct {
	Topic string
	Value string
}

// viewportWorker manages the MQTT connection, forwards inbound viewport
// messages to the track worker, and hands the connected client to the
// sender worker so outbound publishes share the connection.
func viewportWorker(
	ctx context.Context,
	broker string,
	topics []string,
	username, password, clientID string,
	msgChan chan<- ViewportMessage,
	clientChan chan<- mqtt.Client,
) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:1883", broker))
	opts.SetClientID(clientID)
	opts.SetUsername(username)
	opts.SetPassword(password)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetryInterval(5 * time.Second)

	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Printf("MQTT connection lost: %v\n", err)
	})

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Printf("Connected to MQTT broker at %s\n", broker)

		// Hand the fresh client to the sender worker.
		select {
		case clientChan <- client:
		case <-ctx.Done():
			return
		}

		for _, topic := range topics {
			token := client.Subscribe(topic, 0, func(client mqtt.Client, msg mqtt.Message) {
				value := string(msg.Payload())

				// Shims publish an empty retained value on teardown.
				if value == "" {
					return
				}

				select {
				case msgChan <- ViewportMessage{Topic: msg.Topic(), Value: value}:
				case <-ctx.Done():
					return
				}
			})

			if token.Wait() && token.Error() != nil {
				log.Printf("Failed to subscribe to topic %s: %v\n", topic, token.Error())
			} else {
				log.Printf("Subscribed to topic: %s\n", topic)
			}
		}
	})

	client := mqtt.NewClient(opts)

	log.Printf("Connecting to MQTT broker at %s...\n", broker)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Printf("Failed to connect to MQTT broker: %v\n", token.Error())
		return
	}

	<-ctx.Done()

	if client.IsConnected() {
		client.Disconnect(250)
		log.Println("Disconnected from MQTT broker")
	}
}
