package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInit(t *testing.T) {
	// Call Init multiple times to test idempotency.
	Init()
	Init()

	if crawlerItemsTotal == nil || crawlerBytesTotal == nil ||
		crawlerFetchDuration == nil || httpRequestsTotal == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}
}

func TestObserveItem(t *testing.T) {
	Init()
	counter := crawlerItemsTotal.WithLabelValues("chapter", "success")
	before := testutil.ToFloat64(counter)
	ObserveItem("chapter", "success")
	ObserveItem("chapter", "success")
	if got := testutil.ToFloat64(counter); got != before+2 {
		t.Errorf("expected chapter success counter %f, got %f", before+2, got)
	}
}

func TestObserveBytesIgnoresEmpty(t *testing.T) {
	Init()
	before := testutil.ToFloat64(crawlerBytesTotal.WithLabelValues("image"))
	ObserveBytes("image", 0)
	ObserveBytes("image", 128)
	if got := testutil.ToFloat64(crawlerBytesTotal.WithLabelValues("image")); got != before+128 {
		t.Errorf("expected image bytes %f, got %f", before+128, got)
	}
}

func TestObserveFetchAndQueueDepth(t *testing.T) {
	ObserveFetch("catalog", 20*time.Millisecond)
	if n := testutil.CollectAndCount(crawlerFetchDuration); n <= 0 {
		t.Errorf("expected fetch duration to be observed, got %d", n)
	}

	SetQueueDepth(7)
	if got := testutil.ToFloat64(crawlerQueueDepth); got != 7 {
		t.Errorf("expected queue depth 7, got %f", got)
	}
}

func TestObserveRateLimitDelay(t *testing.T) {
	ObserveRateLimitDelay("w.linovelib.com", 150*time.Millisecond)
	if n := testutil.CollectAndCount(crawlerRateLimitDelay); n <= 0 {
		t.Errorf("expected rate limit delay to be observed, got %d", n)
	}
}
