package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/joho/godotenv"
)

// SafeGo launches a goroutine with panic recovery and retry logic.
// On panic, retries with exponential backoff (max 10 retries).
// Retry count resets if the worker ran for 2+ minutes before failing.
// After exhausting retries, cancels the context to trigger shutdown.
//
// This is also the propagation boundary for observer panics: anything an
// observer throws during a tick surfaces here, in the worker that owns
// the sampling loop.
func SafeGo(
	ctx context.Context,
	cancel context.CancelFunc,
	name string,
	fn func(ctx context.Context),
) {
	const maxRetries = 10
	const maxDelay = 10 * time.Minute
	const resetAfter = 2 * time.Minute

	go func() {
		retries := 0
		delay := time.Second

		for {
			startTime := time.Now()
			var panicValue any

			func() {
				defer func() {
					panicValue = recover()
				}()
				fn(ctx)
			}()

			// Returned normally: covers both cancellation and completion.
			if panicValue == nil {
				return
			}

			if time.Since(startTime) >= resetAfter {
				retries = 0
				delay = time.Second
			}

			retries++
			log.Printf("Panic in %s (attempt %d/%d): %v\n", name, retries, maxRetries, panicValue)

			if retries >= maxRetries {
				log.Printf("%s failed after %d retries, shutting down\n", name, maxRetries)
				cancel()
				return
			}

			log.Printf("%s will retry in %v\n", name, delay)
			select {
			case <-time.After(delay):
				delay = min(delay*2, maxDelay)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func main() {
	simMode := flag.Bool("sim", false, "run an interactive simulated viewport instead of connecting to MQTT")
	flag.Parse()

	log.Println("Starting scrollwatch...")

	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Error loading .env file: %v\n", err)
	}

	cfg, err := LoadDaemonConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	if *simMode {
		SafeGo(ctx, cancel, "sim-worker", func(ctx context.Context) {
			simWorker(ctx, cancel, cfg)
		})
		waitForShutdown(ctx, cancel)
		return
	}

	if cfg.Username == "" || cfg.Password == "" {
		log.Fatal("MQTT_USERNAME and MQTT_PASSWORD must be set in .env file")
	}

	topics := cfg.Topics()

	msgChan := make(chan ViewportMessage, 64)
	readingChan := make(chan ScrollReading, 64)
	outgoingChan := make(chan MQTTMessage, 100) // Larger buffer for queuing
	clientChan := make(chan mqtt.Client, 1)     // Buffered to prevent blocking onConnect

	SafeGo(ctx, cancel, "mqtt-sender-worker", func(ctx context.Context) {
		mqttSenderWorker(ctx, outgoingChan, clientChan)
	})

	sender := NewMQTTSender(outgoingChan)

	SafeGo(ctx, cancel, "track-worker", func(ctx context.Context) {
		trackWorker(ctx, cfg, msgChan, readingChan, sender)
	})

	SafeGo(ctx, cancel, "stats-worker", func(ctx context.Context) {
		statsWorker(ctx, readingChan, sender, topics.Telemetry)
	})

	SafeGo(ctx, cancel, "viewport-worker", func(ctx context.Context) {
		viewportWorker(ctx, cfg.Broker, cfg.SubscribeTopics(),
			cfg.Username, cfg.Password, cfg.ClientID, msgChan, clientChan)
	})

	waitForShutdown(ctx, cancel)
}

// waitForShutdown blocks until an interrupt arrives or a worker cancels
// the context.
func waitForShutdown(ctx context.Context, cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Println("\nShutting down...")
	case <-ctx.Done():
		log.Println("\nShutting down...")
	}
	cancel()
}
