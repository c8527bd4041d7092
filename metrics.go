package mitiq

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("mitiq.executor")

var (
	backendCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mitiq_executor_backend_calls_total",
		Help: "Backend invocations by dispatch mode and declared result type",
	}, []string{"dispatch", "result"})

	backendCallErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mitiq_executor_backend_call_errors_total",
		Help: "Backend invocations that returned an error",
	}, []string{"dispatch"})

	backendCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mitiq_executor_backend_call_duration_seconds",
		Help:    "Wall time of one backend invocation",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 16),
	}, []string{"dispatch"})

	circuitsExecuted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mitiq_executor_circuits_executed_total",
		Help: "Circuits sent to a backend",
	})

	circuitsDeduplicated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mitiq_executor_circuits_deduplicated_total",
		Help: "Circuits answered from an identical circuit's result",
	})

	rateLimitWaits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mitiq_executor_rate_limit_waits_total",
		Help: "Backend calls delayed by the rate limiter",
	})

	nonHermitianObservables = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mitiq_executor_non_hermitian_observables_total",
		Help: "Evaluations started with a non-Hermitian observable",
	})
)

func recordBackendCall(backend Backend, start time.Time, circuits int, err error) {
	dispatch := backend.Dispatch().String()
	backendCallDuration.WithLabelValues(dispatch).Observe(time.Since(start).Seconds())

	if err != nil {
		backendCallErrors.WithLabelValues(dispatch).Inc()
		return
	}

	backendCalls.WithLabelValues(dispatch, backend.Returns().String()).Inc()
	circuitsExecuted.Add(float64(circuits))
}
