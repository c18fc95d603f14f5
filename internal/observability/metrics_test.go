package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveDirectoryCall_CountsByOpAndOutcome(t *testing.T) {
	before := testutil.ToFloat64(directoryCalls.WithLabelValues("lookup", "not_member"))
	ObserveDirectoryCall("lookup", "not_member", 20*time.Millisecond)
	ObserveDirectoryCall("lookup", "not_member", 30*time.Millisecond)
	if got := testutil.ToFloat64(directoryCalls.WithLabelValues("lookup", "not_member")) - before; got != 2 {
		t.Fatalf("directory calls delta = %v; want 2", got)
	}
}

func TestCounters(t *testing.T) {
	okBefore := testutil.ToFloat64(probeKeys.WithLabelValues("ok"))
	failBefore := testutil.ToFloat64(probeKeys.WithLabelValues("failed"))
	CountProbeKey(true)
	CountProbeKey(false)
	CountProbeKey(false)
	if testutil.ToFloat64(probeKeys.WithLabelValues("ok"))-okBefore != 1 ||
		testutil.ToFloat64(probeKeys.WithLabelValues("failed"))-failBefore != 2 {
		t.Fatalf("probe key counters off")
	}

	insBefore := testutil.ToFloat64(upserts.WithLabelValues("inserted"))
	CountUpsert("inserted")
	if testutil.ToFloat64(upserts.WithLabelValues("inserted"))-insBefore != 1 {
		t.Fatalf("upsert counter off")
	}

	depBefore := testutil.ToFloat64(verifications.WithLabelValues("departed"))
	CountVerification("departed")
	if testutil.ToFloat64(verifications.WithLabelValues("departed"))-depBefore != 1 {
		t.Fatalf("verification counter off")
	}

	runBefore := testutil.ToFloat64(harvestRuns.WithLabelValues("succeeded"))
	ObserveHarvest("succeeded", time.Second)
	if testutil.ToFloat64(harvestRuns.WithLabelValues("succeeded"))-runBefore != 1 {
		t.Fatalf("harvest run counter off")
	}

	colBefore := testutil.ToFloat64(schemaChanges.WithLabelValues("column"))
	CountSchemaChanges(1, 3)
	if testutil.ToFloat64(schemaChanges.WithLabelValues("column"))-colBefore != 3 {
		t.Fatalf("schema change counter off")
	}
}

func TestSetRosterSize(t *testing.T) {
	SetRosterSize(1001, 12, 3)
	if got := testutil.ToFloat64(rosterSize.WithLabelValues("1001", "active")); got != 12 {
		t.Fatalf("active gauge = %v", got)
	}
	if got := testutil.ToFloat64(rosterSize.WithLabelValues("1001", "departed")); got != 3 {
		t.Fatalf("departed gauge = %v", got)
	}
}
