package telemetry

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RecordsConverted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tributary_records_converted_total",
		Help: "Raw stream records converted into source records.",
	}, []string{"shard"})

	ConversionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tributary_conversion_errors_total",
		Help: "Records that failed conversion.",
	}, []string{"shard"})

	RecordsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tributary_records_delivered_total",
		Help: "Source records handed to the sinks.",
	})

	CheckpointCommits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tributary_checkpoint_commits_total",
		Help: "Positions committed to the offset store.",
	}, []string{"shard"})
)

// Expose serves /metrics and /healthz on the given port.
func Expose(port int) {
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		_ = http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
	}()
}
