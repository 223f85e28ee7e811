package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestDefaultBuckets(t *testing.T) {
	buckets := DefaultBuckets()
	if len(buckets) == 0 || buckets[0] != 0.0005 {
		t.Fatalf("unexpected buckets %v", buckets)
	}
}

func TestObserveCountsOperationsAndFailures(t *testing.T) {
	rec, err := NewPrometheusRecorder(PrometheusConfig{})
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}

	rec.Observe("insert", 2*time.Millisecond, nil)
	rec.Observe("update", time.Millisecond, nil)
	rec.Observe("update", time.Millisecond, errors.New("store down"))

	if got := testutil.ToFloat64(rec.operations.WithLabelValues("insert")); got != 1 {
		t.Fatalf("expected 1 insert, got %v", got)
	}
	if got := testutil.ToFloat64(rec.operations.WithLabelValues("update")); got != 2 {
		t.Fatalf("expected 2 updates, got %v", got)
	}
	if got := testutil.ToFloat64(rec.failures.WithLabelValues("update")); got != 1 {
		t.Fatalf("expected 1 failed update, got %v", got)
	}
	if got := testutil.CollectAndCount(rec.duration); got != 2 {
		t.Fatalf("expected 2 histogram series, got %d", got)
	}
}

func TestNewPrometheusRecorderRejectsDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPrometheusRecorder(PrometheusConfig{Registry: reg}); err != nil {
		t.Fatalf("first recorder: %v", err)
	}
	if _, err := NewPrometheusRecorder(PrometheusConfig{Registry: reg}); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	rec, err := NewPrometheusRecorder(PrometheusConfig{Namespace: "accounts"})
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	rec.Observe("delete", time.Millisecond, nil)

	srv := httptest.NewServer(rec.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "accounts_persistence_operations_total") {
		t.Fatalf("expected namespaced metric in output:\n%s", body)
	}
}

func TestNilRecorderObserveIsNoop(t *testing.T) {
	var rec *PrometheusRecorder
	rec.Observe("insert", time.Millisecond, nil)
}
