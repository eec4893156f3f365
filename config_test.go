package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrollwatch/scrollwatch/scroll"
)

func TestLoadDaemonConfig_Defaults(t *testing.T) {
	cfg, err := LoadDaemonConfig()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Broker)
	assert.Equal(t, "scrollwatch", cfg.TopicPrefix)
	assert.Equal(t, scroll.DefaultConfig(), cfg.Tracker)
}

func TestLoadDaemonConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SCROLLWATCH_SCROLL_THRESHOLD", "250")
	t.Setenv("SCROLLWATCH_FOLD_THRESHOLD", "-100")
	t.Setenv("SCROLLWATCH_TOPIC_PREFIX", "site/scroll")

	cfg, err := LoadDaemonConfig()
	require.NoError(t, err)

	assert.Equal(t, 250.0, cfg.Tracker.ScrollThreshold)
	assert.Equal(t, -100.0, cfg.Tracker.FoldThreshold)
	assert.Equal(t, "site/scroll", cfg.TopicPrefix)
}

func TestLoadDaemonConfig_FractionalFrameInterval(t *testing.T) {
	t.Setenv("SCROLLWATCH_FRAME_MS", "16.5")

	cfg, err := LoadDaemonConfig()
	require.NoError(t, err)

	assert.Equal(t, 16500*time.Microsecond, cfg.FrameInterval)
}

func TestLoadDaemonConfig_EmptyClassDisablesClassifier(t *testing.T) {
	t.Setenv("SCROLLWATCH_PAST_FOLD_CLASS", "")

	cfg, err := LoadDaemonConfig()
	require.NoError(t, err)

	assert.Empty(t, cfg.Tracker.PastFoldClass)
}

func TestLoadDaemonConfig_RejectsInvalidTracker(t *testing.T) {
	t.Setenv("SCROLLWATCH_REVERSE_OFFSET", "0")

	_, err := LoadDaemonConfig()

	assert.ErrorIs(t, err, scroll.ErrReverseScrollOffset)
}

func TestTopics_DerivedFromPrefix(t *testing.T) {
	cfg := DaemonConfig{TopicPrefix: "site/scroll"}
	topics := cfg.Topics()

	assert.Equal(t, "site/scroll/viewport/scroll_y", topics.ScrollY)
	assert.Equal(t, "site/scroll/tracker/set", topics.TrackerSet)
	assert.Equal(t, "site/scroll/class", topics.ClassPrefix)
	assert.ElementsMatch(t, []string{
		"site/scroll/viewport/scroll_y",
		"site/scroll/viewport/height",
		"site/scroll/tracker/set",
		"site/scroll/tracker/reset",
	}, cfg.SubscribeTopics())
}
