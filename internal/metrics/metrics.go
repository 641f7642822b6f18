package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	Runs = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feedsync_runs_total",
		Help: "Total sync runs",
	})
	RunErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feedsync_run_errors_total",
		Help: "Sync runs that ended in a fatal error",
	})
	RunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "feedsync_run_duration_seconds",
		Help:    "Sync run duration seconds",
		Buckets: prometheus.DefBuckets,
	})
	ItemsFetched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feedsync_items_fetched_total",
		Help: "Items added to the feed per source",
	}, []string{"source"})
	FetchErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feedsync_fetch_errors_total",
		Help: "Fetch failures per source and kind",
	}, []string{"source", "kind"})
	APIRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feedsync_api_requests_total",
		Help: "Total API page requests",
	}, []string{"endpoint"})
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feedsync_command_runs_total",
		Help: "CLI command invocations",
	}, []string{"command"})
	CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feedsync_command_errors_total",
		Help: "CLI command failures",
	}, []string{"command"})
)

func init() {
	prometheus.MustRegister(Runs, RunErrors, RunDuration, ItemsFetched, FetchErrors, APIRequests, CommandRuns, CommandErrors)
}

// ObserveRunDuration records a run duration
func ObserveRunDuration(start time.Time) {
	RunDuration.Observe(time.Since(start).Seconds())
}

func AddItems(source string, n int) { ItemsFetched.WithLabelValues(source).Add(float64(n)) }

func IncFetchError(source, kind string) { FetchErrors.WithLabelValues(source, kind).Inc() }

// IncAPIRequest increments the request counter for an endpoint.
func IncAPIRequest(endpoint string) { APIRequests.WithLabelValues(endpoint).Inc() }

func IncCommandRun(cmd string)   { CommandRuns.WithLabelValues(cmd).Inc() }
func IncCommandError(cmd string) { CommandErrors.WithLabelValues(cmd).Inc() }

// WriteTextfile dumps the default registry to path for node_exporter's
// textfile collector. An empty path is a no-op.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
