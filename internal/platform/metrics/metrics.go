// Package metrics provides observability for the parsing daemon.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers performance metrics for the parse -> process ->
// signal pipeline.
type Collector struct {
	// Parser metrics
	LinesParsed    int64
	LinesSkipped   int64
	ParseLatencySum int64 // nanoseconds
	ParseLatencyMax int64

	// Signal/encounter metrics
	SignalsDispatched  int64
	EncountersStarted  int64
	EncountersClosed   int64
	BossesDetected     int64
	PhaseChanges       int64

	// Overlay metrics
	OverlayConnectionsActive int64
	OverlayMessagesOut       int64
	OverlayErrors            int64

	// System
	StartTime time.Time
	mu        sync.RWMutex
	lastLine  time.Time
}

var collector = &Collector{
	StartTime: time.Now(),
}

// Get returns the global collector.
func Get() *Collector {
	return collector
}

// RecordLineParsed records one processed log line's latency.
func (c *Collector) RecordLineParsed(latency time.Duration, ok bool) {
	if ok {
		atomic.AddInt64(&c.LinesParsed, 1)
	} else {
		atomic.AddInt64(&c.LinesSkipped, 1)
	}
	atomic.AddInt64(&c.ParseLatencySum, int64(latency))
	if int64(latency) > atomic.LoadInt64(&c.ParseLatencyMax) {
		atomic.StoreInt64(&c.ParseLatencyMax, int64(latency))
	}
	c.mu.Lock()
	c.lastLine = time.Now()
	c.mu.Unlock()
}

// RecordSignals records how many signals one event produced.
func (c *Collector) RecordSignals(n int) {
	atomic.AddInt64(&c.SignalsDispatched, int64(n))
}

// RecordEncounterStarted records a new encounter entering combat.
func (c *Collector) RecordEncounterStarted() {
	atomic.AddInt64(&c.EncountersStarted, 1)
}

// RecordEncounterClosed records an encounter leaving the ring.
func (c *Collector) RecordEncounterClosed() {
	atomic.AddInt64(&c.EncountersClosed, 1)
}

// RecordBossDetected records a boss encounter detection.
func (c *Collector) RecordBossDetected() {
	atomic.AddInt64(&c.BossesDetected, 1)
}

// RecordPhaseChange records a boss phase transition.
func (c *Collector) RecordPhaseChange() {
	atomic.AddInt64(&c.PhaseChanges, 1)
}

// RecordOverlayConnection records overlay WebSocket connection churn.
func (c *Collector) RecordOverlayConnection(delta int64) {
	atomic.AddInt64(&c.OverlayConnectionsActive, delta)
}

// RecordOverlayMessage records one outbound overlay push.
func (c *Collector) RecordOverlayMessage() {
	atomic.AddInt64(&c.OverlayMessagesOut, 1)
}

// RecordOverlayError records an overlay write/connection error.
func (c *Collector) RecordOverlayError() {
	atomic.AddInt64(&c.OverlayErrors, 1)
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	linesParsed := atomic.LoadInt64(&c.LinesParsed)
	var parseAvg float64
	total := linesParsed + atomic.LoadInt64(&c.LinesSkipped)
	if total > 0 {
		parseAvg = float64(atomic.LoadInt64(&c.ParseLatencySum)) / float64(total) / 1e6 // ms
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"parser": map[string]interface{}{
			"lines_parsed":   linesParsed,
			"lines_skipped":  atomic.LoadInt64(&c.LinesSkipped),
			"avg_latency_ms": parseAvg,
			"max_latency_ms": float64(atomic.LoadInt64(&c.ParseLatencyMax)) / 1e6,
			"last_line":      c.lastLine.Format(time.RFC3339),
		},

		"signals": map[string]interface{}{
			"dispatched":         atomic.LoadInt64(&c.SignalsDispatched),
			"encounters_started": atomic.LoadInt64(&c.EncountersStarted),
			"encounters_closed":  atomic.LoadInt64(&c.EncountersClosed),
			"bosses_detected":    atomic.LoadInt64(&c.BossesDetected),
			"phase_changes":      atomic.LoadInt64(&c.PhaseChanges),
		},

		"overlay": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.OverlayConnectionsActive),
			"messages_out":       atomic.LoadInt64(&c.OverlayMessagesOut),
			"errors":             atomic.LoadInt64(&c.OverlayErrors),
		},
	}
}

// Handler returns an HTTP handler for the /metrics (JSON) endpoint.
func Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		json.NewEncoder(w).Encode(collector.Snapshot())
	}
}

// PrometheusHandler returns metrics in Prometheus text exposition format.
func PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		c := collector

		fmt.Fprintf(w, "# HELP baras_lines_parsed Total combat log lines parsed\n")
		fmt.Fprintf(w, "# TYPE baras_lines_parsed counter\n")
		fmt.Fprintf(w, "baras_lines_parsed %d\n\n", atomic.LoadInt64(&c.LinesParsed))

		fmt.Fprintf(w, "# HELP baras_lines_skipped Total lines that did not parse as combat events\n")
		fmt.Fprintf(w, "# TYPE baras_lines_skipped counter\n")
		fmt.Fprintf(w, "baras_lines_skipped %d\n\n", atomic.LoadInt64(&c.LinesSkipped))

		fmt.Fprintf(w, "# HELP baras_parse_latency_max_ms Maximum per-line parse latency\n")
		fmt.Fprintf(w, "# TYPE baras_parse_latency_max_ms gauge\n")
		fmt.Fprintf(w, "baras_parse_latency_max_ms %.4f\n\n", float64(atomic.LoadInt64(&c.ParseLatencyMax))/1e6)

		fmt.Fprintf(w, "# HELP baras_signals_dispatched Total signals fanned out to handlers\n")
		fmt.Fprintf(w, "# TYPE baras_signals_dispatched counter\n")
		fmt.Fprintf(w, "baras_signals_dispatched %d\n\n", atomic.LoadInt64(&c.SignalsDispatched))

		fmt.Fprintf(w, "# HELP baras_encounters_total Encounters opened and closed\n")
		fmt.Fprintf(w, "# TYPE baras_encounters_total counter\n")
		fmt.Fprintf(w, "baras_encounters_total{state=\"started\"} %d\n", atomic.LoadInt64(&c.EncountersStarted))
		fmt.Fprintf(w, "baras_encounters_total{state=\"closed\"} %d\n\n", atomic.LoadInt64(&c.EncountersClosed))

		fmt.Fprintf(w, "# HELP baras_bosses_detected Total boss encounter detections\n")
		fmt.Fprintf(w, "# TYPE baras_bosses_detected counter\n")
		fmt.Fprintf(w, "baras_bosses_detected %d\n\n", atomic.LoadInt64(&c.BossesDetected))

		fmt.Fprintf(w, "# HELP baras_overlay_connections Active overlay WebSocket connections\n")
		fmt.Fprintf(w, "# TYPE baras_overlay_connections gauge\n")
		fmt.Fprintf(w, "baras_overlay_connections %d\n\n", atomic.LoadInt64(&c.OverlayConnectionsActive))

		fmt.Fprintf(w, "# HELP baras_overlay_messages_total Total overlay pushes\n")
		fmt.Fprintf(w, "# TYPE baras_overlay_messages_total counter\n")
		fmt.Fprintf(w, "baras_overlay_messages_total %d\n\n", atomic.LoadInt64(&c.OverlayMessagesOut))

		fmt.Fprintf(w, "# HELP baras_overlay_errors_total Total overlay connection/write errors\n")
		fmt.Fprintf(w, "# TYPE baras_overlay_errors_total counter\n")
		fmt.Fprintf(w, "baras_overlay_errors_total %d\n", atomic.LoadInt64(&c.OverlayErrors))
	}
}
