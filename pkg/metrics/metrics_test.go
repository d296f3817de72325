package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestManagerRegistersMetrics(t *testing.T) {
	m := NewManager(WithNamespace("testns"))

	m.attemptsTotal.WithLabelValues("success").Inc()
	m.retriesTotal.Inc()
	m.batchSize.Set(42)
	m.stepDwellSeconds.Observe(1.5)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	for _, want := range []string{
		"testns_replay_attempts_total",
		"testns_replay_retries_total",
		"testns_batch_size 42",
		"testns_step_dwell_seconds",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("scrape output missing %q", want)
		}
	}
}

func TestGlobalHelpers(t *testing.T) {
	// The helpers must not panic and must show up in the global scrape.
	RecordAttempt("failure")
	RecordRetry()
	RecordClick()
	RecordKeyProcessed()
	RecordDetectionTimeout()
	RecordAbort()
	ObserveStepDwell(0.25)
	UpdateBatchSize(3)
	RecordCalibrationCapture()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	Handler().ServeHTTP(rec, req)

	if !strings.Contains(rec.Body.String(), "hbmxml_keys_processed_total") {
		t.Error("global scrape missing keys_processed counter")
	}
}
