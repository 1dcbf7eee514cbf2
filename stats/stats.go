// Package stats exposes ingest counters for the router. Metrics are
// registered on the default Prometheus registry; ListenAndServe publishes
// them when a listen address is configured.
package stats

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FramesRead = promauto.NewCounter(prometheus.CounterOpts{
		Name: "n2krouter_frames_read_total",
		Help: "CAN frames read from the device.",
	})
	ReadErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "n2krouter_read_errors_total",
		Help: "Device read errors, excluding timeouts.",
	})
	ReassemblyErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "n2krouter_reassembly_errors_total",
		Help: "Fast-packet sequences reset due to out-of-order or malformed frames.",
	})
	DecodeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "n2krouter_decode_errors_total",
		Help: "Messages dropped because their payload could not be decoded.",
	})
	FilteredMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "n2krouter_filtered_messages_total",
		Help: "Messages dropped by the per-PGN source filter.",
	})
	RejectedSamples = promauto.NewCounter(prometheus.CounterOpts{
		Name: "n2krouter_rejected_samples_total",
		Help: "Position samples discarded by validation.",
	})
	StatusesEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "n2krouter_vessel_statuses_emitted_total",
		Help: "Vessel status reports emitted by the monitor.",
	})
	MetricsEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "n2krouter_metric_aggregates_emitted_total",
		Help: "Environmental metric aggregates emitted by the monitor.",
	})
	RecordsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "n2krouter_records_dropped_total",
		Help: "Records dropped on full hand-off queues or after persistence retries.",
	})
	GateClosedSkips = promauto.NewCounter(prometheus.CounterOpts{
		Name: "n2krouter_gate_closed_skips_total",
		Help: "Records not persisted because the time-sync gate was closed.",
	})
)

// ListenAndServe serves /metrics on the given address. Blocks.
func ListenAndServe(address string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(address, mux)
}
