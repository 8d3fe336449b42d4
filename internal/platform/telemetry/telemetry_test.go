package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestRecorder_EmitCounts(t *testing.T) {
	r := NewRecorder(zerolog.Nop())

	r.Emit("service.scheduled", map[string]interface{}{"site": "Sede Norte"})
	r.Emit("service.scheduled", nil)
	r.Emit("service.rejected", nil)

	if got := r.Count("service.scheduled"); got != 2 {
		t.Errorf("expected 2 scheduled events, got %d", got)
	}
	if got := r.Count("service.rejected"); got != 1 {
		t.Errorf("expected 1 rejected event, got %d", got)
	}
	if got := r.Count("service.deleted"); got != 0 {
		t.Errorf("expected 0 deleted events, got %d", got)
	}
}

func TestRecorder_ConcurrentEmit(t *testing.T) {
	r := NewRecorder(zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Emit("service.scheduled", nil)
		}()
	}
	wg.Wait()

	if got := r.Count("service.scheduled"); got != 50 {
		t.Errorf("expected 50 events, got %d", got)
	}
}

func TestPrometheusHandler(t *testing.T) {
	r := NewRecorder(zerolog.Nop())
	r.Emit("service.scheduled", nil)
	r.Emit("service.bulk_cancelled", nil)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := r.PrometheusHandler()(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "# TYPE agenda_events_total counter") {
		t.Error("missing counter type line")
	}
	if !strings.Contains(body, `agenda_events_total{event="service.scheduled"} 1`) {
		t.Errorf("missing scheduled counter, body:\n%s", body)
	}
	if !strings.Contains(body, "agenda_uptime_seconds") {
		t.Error("missing uptime gauge")
	}
}

func TestSanitize(t *testing.T) {
	if got := sanitize("service.scheduled"); got != "service.scheduled" {
		t.Errorf("unexpected: %q", got)
	}
	if got := sanitize(`weird"label` + "\n"); got != "weird_label_" {
		t.Errorf("unexpected: %q", got)
	}
}
