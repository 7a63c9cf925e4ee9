package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	xerrors "taskdesk/internal/errors"
	"taskdesk/internal/task"
)

// OutcomeOK labels operations that returned no error.
const OutcomeOK = "ok"

// Collector records registry operations as Prometheus metrics.
type Collector struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	tasks      *prometheus.GaugeVec
	users      prometheus.Gauge
}

// NewCollector registers the registry metrics on a fresh Prometheus registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Collector{
		registry: reg,
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskdesk_registry_operations_total",
				Help: "Total registry operations by outcome.",
			},
			[]string{"operation", "outcome"},
		),
		tasks: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "taskdesk_registry_tasks",
				Help: "Number of tasks currently held by the registry.",
			},
			[]string{"state"},
		),
		users: factory.NewGauge(prometheus.GaugeOpts{
			Name: "taskdesk_registry_users",
			Help: "Number of registered users.",
		}),
	}
}

// Observe implements task.Observer.
func (c *Collector) Observe(op task.Operation, err error, stats task.Stats) {
	outcome := OutcomeOK
	if err != nil {
		outcome = string(xerrors.CodeOf(err))
	}
	c.operations.WithLabelValues(string(op), outcome).Inc()
	c.tasks.WithLabelValues("open").Set(float64(stats.Open))
	c.tasks.WithLabelValues("completed").Set(float64(stats.Completed))
	c.users.Set(float64(stats.Users))
}

// Gatherer exposes the underlying registry for scraping and tests.
func (c *Collector) Gatherer() prometheus.Gatherer {
	return c.registry
}

// Handler exposes the metrics in Prometheus text exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// StartServer launches a standalone HTTP server exposing the /metrics endpoint
// until ctx is cancelled.
func StartServer(ctx context.Context, addr string, handler http.Handler) error {
	if addr == "" {
		return errors.New("metrics address is empty")
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return err
	}
}

var _ task.Observer = (*Collector)(nil)
