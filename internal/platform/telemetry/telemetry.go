// Package telemetry records structured scheduling events and counters and
// serves them in Prometheus text exposition format, without importing a
// metrics SDK. The Recorder is injected into the scheduling core as its
// observability hook.
package telemetry

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Recorder emits structured events to the log and keeps per-event counters.
// It is safe for concurrent use.
type Recorder struct {
	log     zerolog.Logger
	mu      sync.Mutex
	counts  map[string]uint64
	started time.Time
}

// NewRecorder returns a Recorder writing events through log.
func NewRecorder(log zerolog.Logger) *Recorder {
	return &Recorder{
		log:     log,
		counts:  make(map[string]uint64),
		started: time.Now(),
	}
}

// Emit records one occurrence of event and logs it with its fields.
func (r *Recorder) Emit(event string, fields map[string]interface{}) {
	r.mu.Lock()
	r.counts[event]++
	r.mu.Unlock()

	evt := r.log.Info().Str("event", event)
	for k, v := range fields {
		evt = evt.Interface(k, v)
	}
	evt.Msg("domain event")
}

// Count returns how many times event has been emitted.
func (r *Recorder) Count(event string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[event]
}

type counterEntry struct {
	name  string
	value uint64
}

// snapshot returns a sorted copy of the counters for stable exposition.
func (r *Recorder) snapshot() []counterEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]counterEntry, 0, len(r.counts))
	for name, value := range r.counts {
		out = append(out, counterEntry{name, value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// PrometheusHandler returns an Echo handler serving the counters in
// Prometheus text exposition format.
func (r *Recorder) PrometheusHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		var b strings.Builder

		b.WriteString("# HELP agenda_uptime_seconds Seconds since the recorder started.\n")
		b.WriteString("# TYPE agenda_uptime_seconds gauge\n")
		fmt.Fprintf(&b, "agenda_uptime_seconds %.0f\n", time.Since(r.started).Seconds())

		b.WriteString("# HELP agenda_events_total Total domain events by kind.\n")
		b.WriteString("# TYPE agenda_events_total counter\n")
		for _, entry := range r.snapshot() {
			fmt.Fprintf(&b, "agenda_events_total{event=%q} %d\n", sanitize(entry.name), entry.value)
		}

		return c.Blob(http.StatusOK, "text/plain; version=0.0.4", []byte(b.String()))
	}
}

// sanitize keeps label values inside the plain character set Prometheus
// scrapers expect.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '_', r == '-':
			return r
		}
		return '_'
	}, s)
}
