package stats

import (
	"testing"
	"time"
)

func TestWindowSnapshotPercentiles(t *testing.T) {
	w := NewWindow(time.Hour)
	for _, ms := range []int{100, 200, 300, 400, 500} {
		w.Record("Teachback", time.Duration(ms)*time.Millisecond, false, 0)
	}

	snap := w.Snapshot()
	if snap.Builds != 5 {
		t.Fatalf("expected builds=5, got %d", snap.Builds)
	}
	if snap.MinMs != 100 || snap.MaxMs != 500 {
		t.Fatalf("expected min=100 max=500, got min=%d max=%d", snap.MinMs, snap.MaxMs)
	}
	if snap.AvgMs != 300 {
		t.Fatalf("expected avg=300, got %f", snap.AvgMs)
	}
	if snap.P50Ms != 300 {
		t.Fatalf("expected p50=300, got %f", snap.P50Ms)
	}
	if snap.P95Ms != 480 {
		t.Fatalf("expected p95=480, got %f", snap.P95Ms)
	}
	if snap.P99Ms != 496 {
		t.Fatalf("expected p99=496, got %f", snap.P99Ms)
	}
}

func TestWindowByType(t *testing.T) {
	w := NewWindow(time.Hour)
	w.Record("Quick-Reference", 50*time.Millisecond, false, 2)
	w.Record("Teachback", 80*time.Millisecond, true, 1)
	w.Record("Teachback", 120*time.Millisecond, false, 0)

	by := w.ByType()
	if len(by) != 2 {
		t.Fatalf("expected 2 document types, got %d", len(by))
	}
	tb := by["Teachback"]
	if tb.Builds != 2 || tb.Failed != 1 || tb.Warnings != 1 {
		t.Errorf("expected 2 builds, 1 failed, 1 warning, got %+v", tb)
	}

	all := w.Snapshot()
	if all.Builds != 3 || all.Warnings != 3 {
		t.Errorf("expected 3 builds and 3 warnings overall, got %+v", all)
	}
}

func TestWindowPrunesExpiredSamples(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	w := NewWindow(10 * time.Minute)
	w.now = func() time.Time { return now }

	w.Record("Teachback", 100*time.Millisecond, false, 0)
	now = now.Add(15 * time.Minute)

	if snap := w.Snapshot(); snap.Builds != 0 {
		t.Fatalf("expected builds=0 after prune, got %d", snap.Builds)
	}
	if len(w.ByType()) != 0 {
		t.Error("expected emptied document types to be dropped")
	}

	w.Record("Teachback", 200*time.Millisecond, false, 0)
	snap := w.Snapshot()
	if snap.Builds != 1 || snap.MinMs != 200 {
		t.Fatalf("expected one fresh 200ms build, got %+v", snap)
	}
}

func TestWindowRecordClampsNegativeDuration(t *testing.T) {
	w := NewWindow(time.Hour)
	w.Record("Teachback", -10*time.Millisecond, false, 0)
	snap := w.Snapshot()
	if snap.Builds != 1 {
		t.Fatalf("expected builds=1, got %d", snap.Builds)
	}
	if snap.MinMs != 0 || snap.MaxMs != 0 {
		t.Fatalf("expected clamped duration=0, got min=%d max=%d", snap.MinMs, snap.MaxMs)
	}
}
