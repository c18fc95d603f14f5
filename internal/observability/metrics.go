package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Roster harvesting collectors. Label sets are closed enums except channel,
// which is bounded by HARVEST_CHANNEL_IDS.
var (
	directoryCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tgstats_directory_calls_total",
			Help: "Remote directory calls by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)

	directoryLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tgstats_directory_call_duration_seconds",
			Help:    "Duration of remote directory calls, retries included.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	probeKeys = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tgstats_probe_keys_total",
			Help: "Probe keys enumerated, by outcome (ok|failed).",
		},
		[]string{"outcome"},
	)

	upserts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tgstats_participant_upserts_total",
			Help: "Roster upserts by result (inserted|updated|reactivated|failed).",
		},
		[]string{"result"},
	)

	verifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tgstats_departure_verifications_total",
			Help: "Departure sweep verifications by result (member|departed|ambiguous|failed).",
		},
		[]string{"result"},
	)

	harvestRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tgstats_harvest_runs_total",
			Help: "Harvest runs by terminal status.",
		},
		[]string{"status"},
	)

	harvestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tgstats_harvest_duration_seconds",
			Help:    "Wall time of a full crawl plus sweep.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
	)

	rosterSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tgstats_roster_participants",
			Help: "Participants per channel and state after the last run.",
		},
		[]string{"channel", "state"},
	)

	schemaChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tgstats_schema_changes_total",
			Help: "Additive schema changes applied at startup, by kind (table|column).",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(
		directoryCalls, directoryLatency, probeKeys, upserts, verifications,
		harvestRuns, harvestDuration, rosterSize, schemaChanges,
	)
}

// ObserveDirectoryCall records one logical directory call.
func ObserveDirectoryCall(op, outcome string, d time.Duration) {
	directoryCalls.WithLabelValues(op, outcome).Inc()
	directoryLatency.WithLabelValues(op).Observe(d.Seconds())
}

// CountProbeKey records the outcome of one probe key.
func CountProbeKey(ok bool) {
	if ok {
		probeKeys.WithLabelValues("ok").Inc()
		return
	}
	probeKeys.WithLabelValues("failed").Inc()
}

// CountUpsert records one roster upsert result.
func CountUpsert(result string) { upserts.WithLabelValues(result).Inc() }

// CountVerification records one departure verification result.
func CountVerification(result string) { verifications.WithLabelValues(result).Inc() }

// ObserveHarvest records a finished run.
func ObserveHarvest(status string, d time.Duration) {
	harvestRuns.WithLabelValues(status).Inc()
	harvestDuration.Observe(d.Seconds())
}

// SetRosterSize publishes the active/departed counts of a channel.
func SetRosterSize(channelID, active, departed int64) {
	ch := strconv.FormatInt(channelID, 10)
	rosterSize.WithLabelValues(ch, "active").Set(float64(active))
	rosterSize.WithLabelValues(ch, "departed").Set(float64(departed))
}

// CountSchemaChanges records tables created and columns added by a reconcile.
func CountSchemaChanges(tables, columns int) {
	schemaChanges.WithLabelValues("table").Add(float64(tables))
	schemaChanges.WithLabelValues("column").Add(float64(columns))
}
