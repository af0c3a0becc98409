package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rawlower_parsing_seconds",
		Help:    "Time spent parsing a source file.",
		Buckets: prometheus.DefBuckets,
	})

	LoweringDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rawlower_lowering_seconds",
		Help:    "Time spent lowering a syntax tree into its item set.",
		Buckets: prometheus.DefBuckets,
	})

	FirewallHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rawlower_firewall_hits_total",
		Help: "Total number of lowerings whose fingerprint matched the cached item set.",
	})

	FirewallMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rawlower_firewall_misses_total",
		Help: "Total number of lowerings that produced a structurally new item set.",
	})

	ItemSetEntities = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rawlower_item_set_entities",
		Help: "Number of entities across all cached item sets, by kind.",
	}, []string{"kind"})

	FilesTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rawlower_files_tracked",
		Help: "Number of files with a cached item set.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rawlower_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	ProcessErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rawlower_process_errors_total",
		Help: "Total number of file processing failures, by error code.",
	}, []string{"code"})
)
