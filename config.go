package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/scrollwatch/scrollwatch/scroll"
)

// DaemonConfig holds everything the scrollwatch daemon reads at startup.
// Broker credentials come from the environment (after godotenv), the
// tracker tuning from SCROLLWATCH_* variables.
type DaemonConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string

	TopicPrefix   string
	FrameInterval time.Duration

	Tracker scroll.Config
}

// Topics are the MQTT topic paths derived from the configured prefix.
type Topics struct {
	ScrollY      string // in: raw vertical offset (float payload)
	Height       string // in: viewport height (float payload)
	TrackerSet   string // in: JSON retune request
	TrackerReset string // in: any payload clears the reverse-scroll signal

	TrackerConfig string // out, retained: active configuration
	State         string // out: snapshot per changed tick
	Telemetry     string // out: velocity percentile windows
	ClassPrefix   string // out, retained: <prefix>/class/<name> = "1"/"0"
}

// Topics derives the topic set for this daemon instance.
func (c DaemonConfig) Topics() Topics {
	p := c.TopicPrefix
	return Topics{
		ScrollY:       p + "/viewport/scroll_y",
		Height:        p + "/viewport/height",
		TrackerSet:    p + "/tracker/set",
		TrackerReset:  p + "/tracker/reset",
		TrackerConfig: p + "/tracker/config",
		State:         p + "/state",
		Telemetry:     p + "/telemetry",
		ClassPrefix:   p + "/class",
	}
}

// SubscribeTopics lists every topic the viewport worker subscribes to.
func (c DaemonConfig) SubscribeTopics() []string {
	t := c.Topics()
	return []string{t.ScrollY, t.Height, t.TrackerSet, t.TrackerReset}
}

// LoadDaemonConfig builds the configuration from the environment.
// Tracker tuning is validated here so the daemon fails at startup, not
// on the first tick.
func LoadDaemonConfig() (DaemonConfig, error) {
	tracker := scroll.DefaultConfig()
	tracker.ScrollThreshold = envFloat("SCROLLWATCH_SCROLL_THRESHOLD", tracker.ScrollThreshold)
	tracker.ReverseScrollOffset = envFloat("SCROLLWATCH_REVERSE_OFFSET", tracker.ReverseScrollOffset)
	tracker.FoldThreshold = envFloat("SCROLLWATCH_FOLD_THRESHOLD", tracker.FoldThreshold)
	tracker.ScrolledClass = envString("SCROLLWATCH_SCROLLED_CLASS", tracker.ScrolledClass)
	tracker.ReverseScrollClass = envString("SCROLLWATCH_REVERSE_CLASS", tracker.ReverseScrollClass)
	tracker.PastFoldClass = envString("SCROLLWATCH_PAST_FOLD_CLASS", tracker.PastFoldClass)

	cfg := DaemonConfig{
		Broker:        envString("SCROLLWATCH_BROKER", "localhost"),
		ClientID:      envString("SCROLLWATCH_CLIENT_ID", "scrollwatch"),
		Username:      os.Getenv("MQTT_USERNAME"),
		Password:      os.Getenv("MQTT_PASSWORD"),
		TopicPrefix:   envString("SCROLLWATCH_TOPIC_PREFIX", "scrollwatch"),
		FrameInterval: time.Duration(envFloat("SCROLLWATCH_FRAME_MS", 16) * float64(time.Millisecond)),
		Tracker:       tracker,
	}

	if err := cfg.Tracker.Validate(); err != nil {
		return DaemonConfig{}, fmt.Errorf("tracker config: %w", err)
	}
	return cfg, nil
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
