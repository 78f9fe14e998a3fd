package metrics

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type Outcome string

const (
	Success                  Outcome       = "success"
	Error                    Outcome       = "error"
	MetricRequestTimeout     time.Duration = 5 * time.Second
	MetricRequestIdleTimeout time.Duration = 10 * time.Second
)

func (O Outcome) String() string {
	return string(O)
}

var (
	once                             sync.Once
	metricsRouter                    *chi.Mux
	operationDurationHistogram       *prometheus.HistogramVec
	clientRequestDurationHistogram   *prometheus.HistogramVec
	pollerDurationHistogram          *prometheus.HistogramVec
	invariantRejectionCounter        *prometheus.CounterVec
	queueSendErrorCounter            prometheus.Counter
	transferFailureCounter           prometheus.Counter
	totalAssetsGauge                 prometheus.Gauge
	totalLiabilitiesGauge            prometheus.Gauge
	currentDeficitGauge              prometheus.Gauge
	escrowBalanceGauge               prometheus.Gauge
	activeContractsGauge             prometheus.Gauge
	dbLatency                        *prometheus.HistogramVec
)

// Init initializes the metrics package.
func Init(metricsPort int) {
	once.Do(func() {
		initMetricsRouter(metricsPort)
		registerMetrics()
	})
}

// initMetricsRouter initializes the metrics router.
func initMetricsRouter(metricsPort int) {
	metricsRouter = chi.NewRouter()
	metricsRouter.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})
	// Create a custom server with timeout settings
	metricsAddr := fmt.Sprintf(":%d", metricsPort)
	server := &http.Server{
		Addr:         metricsAddr,
		Handler:      metricsRouter,
		ReadTimeout:  MetricRequestTimeout,
		WriteTimeout: MetricRequestTimeout,
		IdleTimeout:  MetricRequestIdleTimeout,
	}

	// Start the server in a separate goroutine
	go func() {
		log.Printf("Starting metrics server on %s", metricsAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msgf("Error starting metrics server on %s", metricsAddr)
		}
	}()
}

// registerMetrics initializes and register the Prometheus metrics.
func registerMetrics() {
	defaultHistogramBucketsSeconds := []float64{0.1, 0.5, 1, 2.5, 5, 10, 30}

	operationDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_operation_duration_seconds",
			Help:    "Histogram of ledger operation durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"operation", "status"},
	)

	// client requests are the ones sending to other service
	clientRequestDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "client_request_duration_seconds",
			Help:    "Histogram of outgoing client request durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"baseurl", "method", "path", "status"},
	)

	pollerDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "poller_duration_seconds",
			Help:    "Histogram of poller durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"type", "status"},
	)

	invariantRejectionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invariant_rejection_count",
			Help: "The total number of operations rejected by a protection check",
		},
		[]string{"operation", "reason"},
	)

	// add a counter for the number of errors from the fail to push message into queue
	queueSendErrorCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "queue_send_error_count",
			Help: "The total number of errors when sending messages to the queue",
		},
	)

	transferFailureCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "custody_transfer_failure_count",
			Help: "Number of failed custody transfers after bookkeeping completed",
		},
	)

	totalAssetsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_total_assets",
			Help: "Last recorded total assets of the ledger",
		},
	)

	totalLiabilitiesGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_total_liabilities",
			Help: "Last recorded total liabilities of the ledger",
		},
	)

	currentDeficitGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_current_deficit",
			Help: "Last recorded solvency deficit, zero while solvent",
		},
	)

	escrowBalanceGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "escrow_balance",
			Help: "Last recorded escrow buffer balance",
		},
	)

	activeContractsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_contracts_count",
			Help: "Number of contracts currently in the ACTIVE state",
		},
	)

	dbLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "db_latency_seconds",
			Help: "DB latency in seconds splitted by method and execution status",
		},
		[]string{"method", "status"},
	)

	prometheus.MustRegister(
		operationDurationHistogram,
		clientRequestDurationHistogram,
		pollerDurationHistogram,
		invariantRejectionCounter,
		queueSendErrorCounter,
		transferFailureCounter,
		totalAssetsGauge,
		totalLiabilitiesGauge,
		currentDeficitGauge,
		escrowBalanceGauge,
		activeContractsGauge,
		dbLatency,
	)
}

func RecordOperationDuration(d time.Duration, operation string, failure bool) {
	status := Success
	if failure {
		status = Error
	}

	operationDurationHistogram.WithLabelValues(operation, status.String()).Observe(d.Seconds())
}

func RecordDbLatency(d time.Duration, method string, failure bool) {
	status := Success
	if failure {
		status = Error
	}

	dbLatency.WithLabelValues(method, status.String()).Observe(d.Seconds())
}

func RecordInvariantRejection(operation, reason string) {
	invariantRejectionCounter.WithLabelValues(operation, reason).Inc()
}

func RecordSolvencySnapshot(assets, liabilities, deficit float64) {
	totalAssetsGauge.Set(assets)
	totalLiabilitiesGauge.Set(liabilities)
	currentDeficitGauge.Set(deficit)
}

func RecordEscrowBalance(balance float64) {
	escrowBalanceGauge.Set(balance)
}

func RecordActiveContractsCount(count int) {
	activeContractsGauge.Set(float64(count))
}

func IncTransferFailures() {
	transferFailureCounter.Inc()
}

// StartClientRequestDurationTimer starts a timer to measure outgoing client request duration.
func StartClientRequestDurationTimer(baseUrl, method, path string) func(statusCode int) {
	startTime := time.Now()
	return func(statusCode int) {
		duration := time.Since(startTime).Seconds()
		clientRequestDurationHistogram.WithLabelValues(
			baseUrl,
			method,
			path,
			fmt.Sprintf("%d", statusCode),
		).Observe(duration)
	}
}

func RecordQueueSendError() {
	queueSendErrorCounter.Inc()
}
