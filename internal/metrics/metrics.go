package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "councilbot"

// Metrics holds the Prometheus collectors for the bot and the ingestion
// pipeline. It satisfies usecase.Observer.
type Metrics struct {
	MessagesProcessed  prometheus.Counter
	ProcessingDuration prometheus.Histogram
	Fallbacks          *prometheus.CounterVec
	Commands           *prometheus.CounterVec
	HandlerErrors      *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MessagesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_processed_total",
			Help:      "Total number of messages that completed the ingestion pipeline",
		}),

		// LLM calls dominate, so buckets reach up to a minute.
		ProcessingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_processing_duration_seconds",
			Help:      "Time spent processing one message",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),

		Fallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifier_fallbacks_total",
			Help:      "Number of times a classifier stage fell back to a default result",
		}, []string{"stage"}),

		Commands: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Bot commands received by name",
		}, []string{"command"}),

		HandlerErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handler_errors_total",
			Help:      "Errors returned to chat users by handler",
		}, []string{"handler"}),
	}
}

func (m *Metrics) MessageProcessed(d time.Duration) {
	m.MessagesProcessed.Inc()
	m.ProcessingDuration.Observe(d.Seconds())
}

func (m *Metrics) ClassifierFallback(stage string) {
	m.Fallbacks.WithLabelValues(stage).Inc()
}

func (m *Metrics) RecordCommand(command string) {
	m.Commands.WithLabelValues(command).Inc()
}

func (m *Metrics) RecordError(handler string) {
	m.HandlerErrors.WithLabelValues(handler).Inc()
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Metrics server shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("Metrics endpoint enabled", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
