package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew_RegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.StatementsProcessed.WithLabelValues("account/de").Inc()
	m.ItemsEmitted.WithLabelValues("transaction").Add(3)

	if got := testutil.ToFloat64(m.StatementsProcessed.WithLabelValues("account/de")); got != 1 {
		t.Fatalf("statements processed: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ItemsEmitted.WithLabelValues("transaction")); got != 3 {
		t.Fatalf("items emitted: got %v, want 3", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected registered metric families")
	}
}

func TestNew_IndependentRegistries(t *testing.T) {
	// Two instances must not collide, as each test builds its own.
	New(prometheus.NewRegistry())
	New(prometheus.NewRegistry())
}
