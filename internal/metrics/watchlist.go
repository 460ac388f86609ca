package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	refreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "watchlist_refresh_total",
		Help: "Total number of watch list refreshes by result",
	}, []string{"result"})

	refreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "watchlist_refresh_duration_seconds",
		Help:    "Duration of watch list refreshes",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	})

	entriesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "watchlist_entries",
		Help: "Number of recordings in the latest published watch list",
	})

	excludedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "watchlist_excluded_total",
		Help: "Total number of candidates left out of the watch list by reason",
	}, []string{"reason"})
)

// RecordRefresh records the outcome of a refresh.
// result ∈ {success,source_error,publish_error,unknown}
func RecordRefresh(result string, d time.Duration) {
	refreshTotal.WithLabelValues(normalizeRefreshResult(result)).Inc()
	refreshDuration.Observe(d.Seconds())
}

// SetWatchListEntries sets the size of the published list.
func SetWatchListEntries(n int) {
	entriesGauge.Set(float64(n))
}

// AddExcluded adds n exclusions for reason.
// reason ∈ {earlier_episode,watched,auto_expire_off,recently_deleted,unknown}
func AddExcluded(reason string, n int) {
	if n <= 0 {
		return
	}
	excludedTotal.WithLabelValues(normalizeExcludedReason(reason)).Add(float64(n))
}

func normalizeRefreshResult(result string) string {
	switch r := strings.ToLower(strings.TrimSpace(result)); r {
	case "success", "source_error", "publish_error":
		return r
	default:
		return "unknown"
	}
}

func normalizeExcludedReason(reason string) string {
	switch r := strings.ToLower(strings.TrimSpace(reason)); r {
	case "earlier_episode", "watched", "auto_expire_off", "recently_deleted":
		return r
	default:
		return "unknown"
	}
}
