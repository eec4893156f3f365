package main

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"time"
)

// ScrollReading is a timestamped scroll offset sample, one per changed
// tick.
type ScrollReading struct {
	Value     float64
	Timestamp time.Time
}

// VelocityWindows holds one percentile of scroll velocity across 1, 5
// and 15 second windows. Velocity is signed: negative means upward.
type VelocityWindows struct {
	_1  float64
	_5  float64
	_15 float64
}

// weightedValue represents a velocity with its duration weight for
// percentile calculation.
type weightedValue struct {
	value    float64
	duration float64
}

// calculateTimeWeightedPercentiles returns P1, P50 and P99 in a single
// pass where each value is weighted by how long it persisted. The pairs
// slice must be sorted by value in ascending order.
func calculateTimeWeightedPercentiles(pairs []weightedValue, totalDuration float64) (p1, p50, p99 float64) {
	if len(pairs) == 0 {
		return 0, 0, 0
	}
	if len(pairs) == 1 {
		v := pairs[0].value
		return v, v, v
	}

	target1 := totalDuration * 0.01
	target50 := totalDuration * 0.50
	target99 := totalDuration * 0.99

	var cumulative float64
	var found1, found50, found99 bool

	for _, pair := range pairs {
		cumulative += pair.duration

		if !found1 && cumulative >= target1 {
			p1 = pair.value
			found1 = true
		}
		if !found50 && cumulative >= target50 {
			p50 = pair.value
			found50 = true
		}
		if !found99 && cumulative >= target99 {
			p99 = pair.value
			found99 = true
			break
		}
	}

	// Fallback to the last value for any not found (shouldn't happen).
	lastValue := pairs[len(pairs)-1].value
	if !found1 {
		p1 = lastValue
	}
	if !found50 {
		p50 = lastValue
	}
	if !found99 {
		p99 = lastValue
	}
	return p1, p50, p99
}

// velocityPairs converts offset readings into duration-weighted velocity
// samples for the window ending at now. Each consecutive reading pair
// yields one velocity, weighted by the gap between the samples.
func velocityPairs(readings []ScrollReading, window time.Duration, now time.Time) ([]weightedValue, float64) {
	cutoff := now.Add(-window)

	var pairs []weightedValue
	var total float64
	for i := 1; i < len(readings); i++ {
		prev, cur := readings[i-1], readings[i]
		if cur.Timestamp.Before(cutoff) {
			continue
		}
		dt := cur.Timestamp.Sub(prev.Timestamp).Seconds()
		if dt <= 0 {
			continue
		}
		pairs = append(pairs, weightedValue{
			value:    (cur.Value - prev.Value) / dt,
			duration: dt,
		})
		total += dt
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].value < pairs[j].value })
	return pairs, total
}

// computeVelocityWindows calculates the velocity percentiles over each
// time window.
func computeVelocityWindows(readings []ScrollReading, now time.Time) (p1, p50, p99 VelocityWindows) {
	compute := func(window time.Duration) (float64, float64, float64) {
		pairs, total := velocityPairs(readings, window, now)
		return calculateTimeWeightedPercentiles(pairs, total)
	}

	p1._1, p50._1, p99._1 = compute(1 * time.Second)
	p1._5, p50._5, p99._5 = compute(5 * time.Second)
	p1._15, p50._15, p99._15 = compute(15 * time.Second)
	return p1, p50, p99
}

// pruneReadings drops readings that can no longer contribute to any
// window, keeping one sample before the cutoff so the oldest in-window
// reading still has a velocity partner.
func pruneReadings(readings []ScrollReading, cutoff time.Time) []ScrollReading {
	first := 0
	for i, r := range readings {
		if !r.Timestamp.Before(cutoff) {
			break
		}
		first = i
	}
	return readings[first:]
}

type velocityWindowsJSON struct {
	W1  float64 `json:"1s"`
	W5  float64 `json:"5s"`
	W15 float64 `json:"15s"`
}

type telemetryPayload struct {
	Offset float64             `json:"offset"`
	P1     velocityWindowsJSON `json:"velocity_p1"`
	P50    velocityWindowsJSON `json:"velocity_p50"`
	P99    velocityWindowsJSON `json:"velocity_p99"`
}

func windowsJSON(w VelocityWindows) velocityWindowsJSON {
	return velocityWindowsJSON{W1: w._1, W5: w._5, W15: w._15}
}

// statsWorker accumulates offset readings and periodically publishes
// scroll velocity percentiles as telemetry.
func statsWorker(
	ctx context.Context,
	readingChan <-chan ScrollReading,
	sender *MQTTSender,
	topic string,
) {
	log.Println("Stats worker started")

	const keep = 15 * time.Second
	var readings []ScrollReading

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case r := <-readingChan:
			readings = append(readings, r)
			readings = pruneReadings(readings, r.Timestamp.Add(-keep))

		case now := <-ticker.C:
			if len(readings) < 2 {
				continue
			}
			p1, p50, p99 := computeVelocityWindows(readings, now)
			payload, err := json.Marshal(telemetryPayload{
				Offset: readings[len(readings)-1].Value,
				P1:     windowsJSON(p1),
				P50:    windowsJSON(p50),
				P99:    windowsJSON(p99),
			})
			if err != nil {
				log.Printf("Failed to marshal telemetry: %v\n", err)
				continue
			}
			sender.Send(MQTTMessage{Topic: topic, Payload: payload, QoS: 0, Retain: false})

		case <-ctx.Done():
			log.Println("Stats worker stopped")
			return
		}
	}
}
