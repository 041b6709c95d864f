package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
)

var (
	moderationActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_actions_total",
			Help: "Total number of moderation engine operations",
		},
		[]string{"action", "outcome"},
	)

	warnEscalationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "warn_escalations_total",
			Help: "Warnings that reached the threshold and escalated to a ban",
		},
	)

	gbanFanOutChatsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gban_fanout_chats_total",
			Help: "Per-chat outcomes of global ban/unban fan-outs",
		},
		[]string{"result"},
	)

	gbanFanOutDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gban_fanout_duration_seconds",
			Help:    "Wall time of whole global ban/unban fan-outs",
			Buckets: prometheus.DefBuckets,
		},
	)
)

type metricsServer struct {
	addr string
	srv  *http.Server
}

// Init registers the metric set and the tracer provider. Call once at
// startup, before NewMetricsServer.
func Init() {
	prometheus.MustRegister(
		moderationActionsTotal,
		warnEscalationsTotal,
		gbanFanOutChatsTotal,
		gbanFanOutDuration,
	)

	tp := trace.NewTracerProvider()
	otel.SetTracerProvider(tp)
}

// NewMetricsServer returns a lifecycle component serving /metrics on addr.
func NewMetricsServer(addr string) *metricsServer {
	return &metricsServer{addr: addr}
}

func (m *metricsServer) Start(_ context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	m.srv = &http.Server{Addr: m.addr, Handler: mux}
	go func() {
		if err := m.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("metrics server failed")
		}
	}()
	return nil
}

func (m *metricsServer) Stop(ctx context.Context) error {
	if m.srv == nil {
		return nil
	}
	return m.srv.Shutdown(ctx)
}

// RecordModerationAction counts one engine operation outcome.
func RecordModerationAction(action, outcome string) {
	moderationActionsTotal.WithLabelValues(action, outcome).Inc()
}

func RecordWarnEscalation() {
	warnEscalationsTotal.Inc()
}

// RecordFanOutChat counts a single per-chat fan-out result ("ok"/"failed").
func RecordFanOutChat(result string) {
	gbanFanOutChatsTotal.WithLabelValues(result).Inc()
}

func ObserveFanOutDuration(d time.Duration) {
	gbanFanOutDuration.Observe(d.Seconds())
}
