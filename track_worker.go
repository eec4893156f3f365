package main

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/scrollwatch/scrollwatch/scroll"
)

// latestViewport is the daemon's scroll.Viewport: a cell holding the
// most recent offset and height published by the shim. The frame loop
// reads it once per tick, so bursts of MQTT samples between frames
// collapse into one changed tick.
type latestViewport struct {
	mu     sync.Mutex
	y      float64
	height float64
}

func (v *latestViewport) SetScrollY(y float64) {
	v.mu.Lock()
	v.y = y
	v.mu.Unlock()
}

func (v *latestViewport) SetHeight(h float64) {
	v.mu.Lock()
	v.height = h
	v.mu.Unlock()
}

func (v *latestViewport) ScrollY() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.y
}

func (v *latestViewport) Height() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.height
}

// mqttClassList reflects class toggles onto retained MQTT topics.
type mqttClassList struct {
	sender      *MQTTSender
	classPrefix string
}

func (c *mqttClassList) Add(name string)    { c.sender.PublishClass(c.classPrefix, name, true) }
func (c *mqttClassList) Remove(name string) { c.sender.PublishClass(c.classPrefix, name, false) }

// statePayload is the JSON snapshot published per changed tick.
type statePayload struct {
	ScrollY         float64 `json:"scroll_y"`
	PrevScrollY     float64 `json:"prev_scroll_y"`
	Delta           float64 `json:"delta"`
	ReverseScrolled bool    `json:"reverse_scrolled"`
	Scrolled        bool    `json:"scrolled"`
	PastFold        bool    `json:"past_fold"`
}

func snapshotPayload(snap scroll.Snapshot) ([]byte, error) {
	return json.Marshal(statePayload{
		ScrollY:         snap.ScrollY,
		PrevScrollY:     snap.PrevScrollY,
		Delta:           snap.Delta,
		ReverseScrolled: snap.ReverseScrolled,
		Scrolled:        snap.Scrolled,
		PastFold:        snap.PastFold,
	})
}

// retuneRequest is the JSON body accepted on the tracker/set topic.
// Omitted fields keep their current values; class names are fixed for
// the daemon's lifetime.
type retuneRequest struct {
	ScrollThreshold     *float64 `json:"scroll_threshold"`
	ReverseScrollOffset *float64 `json:"reverse_scroll_offset"`
	FoldThreshold       *float64 `json:"fold_threshold"`
}

// apply merges the request into cfg.
func (r retuneRequest) apply(cfg scroll.Config) scroll.Config {
	if r.ScrollThreshold != nil {
		cfg.ScrollThreshold = *r.ScrollThreshold
	}
	if r.ReverseScrollOffset != nil {
		cfg.ReverseScrollOffset = *r.ReverseScrollOffset
	}
	if r.FoldThreshold != nil {
		cfg.FoldThreshold = *r.FoldThreshold
	}
	return cfg
}

// trackWorker owns the scroll session. Viewport samples update the
// latest-value cell, the session's frame loop does the actual sampling,
// and each changed tick is published as a state snapshot and forwarded
// to the stats worker. Retune requests restart the tracker through the
// session; the publishing observer survives every restart.
func trackWorker(
	ctx context.Context,
	cfg DaemonConfig,
	msgChan <-chan ViewportMessage,
	readingChan chan<- ScrollReading,
	sender *MQTTSender,
) {
	topics := cfg.Topics()
	view := &latestViewport{}
	classes := &mqttClassList{sender: sender, classPrefix: topics.ClassPrefix}
	sched := scroll.TimerScheduler{Interval: cfg.FrameInterval}

	sess := scroll.NewSession(view, classes, sched)
	defer sess.Close()

	sess.Observers().Add(func(snap scroll.Snapshot) {
		payload, err := snapshotPayload(snap)
		if err != nil {
			log.Printf("Failed to marshal state snapshot: %v\n", err)
			return
		}
		sender.Send(MQTTMessage{Topic: topics.State, Payload: payload, QoS: 0, Retain: false})

		// Non-blocking: telemetry is best effort and must not stall the
		// frame loop.
		select {
		case readingChan <- ScrollReading{Value: snap.ScrollY, Timestamp: time.Now()}:
		default:
		}
	})

	trackerCfg := cfg.Tracker
	if err := sess.Configure(trackerCfg); err != nil {
		log.Printf("Track worker failed to start: %v\n", err)
		return
	}
	if err := sender.AnnounceTracker(topics.TrackerConfig, trackerCfg); err != nil {
		log.Printf("Failed to announce tracker config: %v\n", err)
	}
	log.Printf("Track worker started (threshold=%.0f reverse=%.0f fold=%.0f)\n",
		trackerCfg.ScrollThreshold, trackerCfg.ReverseScrollOffset, trackerCfg.FoldThreshold)

	for {
		select {
		case msg := <-msgChan:
			switch msg.Topic {
			case topics.ScrollY:
				y, err := strconv.ParseFloat(msg.Value, 64)
				if err != nil || y < 0 {
					log.Printf("Ignoring bad scroll offset %q\n", msg.Value)
					continue
				}
				view.SetScrollY(y)

			case topics.Height:
				h, err := strconv.ParseFloat(msg.Value, 64)
				if err != nil || h <= 0 {
					log.Printf("Ignoring bad viewport height %q\n", msg.Value)
					continue
				}
				view.SetHeight(h)

			case topics.TrackerSet:
				var req retuneRequest
				if err := json.Unmarshal([]byte(msg.Value), &req); err != nil {
					log.Printf("Ignoring bad retune request: %v\n", err)
					continue
				}
				next := req.apply(trackerCfg)
				if err := sess.Configure(next); err != nil {
					log.Printf("Rejected retune request: %v\n", err)
					continue
				}
				trackerCfg = next
				if err := sender.AnnounceTracker(topics.TrackerConfig, trackerCfg); err != nil {
					log.Printf("Failed to announce tracker config: %v\n", err)
				}
				log.Printf("Tracker retuned (threshold=%.0f reverse=%.0f fold=%.0f)\n",
					trackerCfg.ScrollThreshold, trackerCfg.ReverseScrollOffset, trackerCfg.FoldThreshold)

			case topics.TrackerReset:
				sess.Reset()
			}

		case <-ctx.Done():
			log.Println("Track worker stopped")
			return
		}
	}
}
