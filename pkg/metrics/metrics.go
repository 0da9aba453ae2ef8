// Package metrics exposes the bridge's Prometheus counters.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"net"
	"net/http"
	"time"
)

var (
	LayoutEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "keylamp",
		Subsystem: "bus",
		Name:      "layout_events_total",
		Help:      "Layout change events received, by whether the layout has a color",
	}, []string{"recognized"})

	ColorWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "keylamp",
		Subsystem: "serial",
		Name:      "color_writes_total",
		Help:      "Color bytes written to the lamp",
	}, []string{"color"})

	SuppressedWrites = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "keylamp",
		Subsystem: "serial",
		Name:      "suppressed_writes_total",
		Help:      "Color sends skipped because the lamp already shows that color",
	})

	Faults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "keylamp",
		Subsystem: "serial",
		Name:      "faults_total",
		Help:      "Fatal serial faults",
	}, []string{"kind"})

	ProbeAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "keylamp",
		Subsystem: "serial",
		Name:      "probe_attempts_total",
		Help:      "Serial candidates probed, by outcome",
	}, []string{"outcome"})

	BusAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "keylamp",
		Subsystem: "bus",
		Name:      "await_attempts_total",
		Help:      "Attempts made to resolve the input source interface",
	})

	SupervisorState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "keylamp",
		Subsystem: "supervisor",
		Name:      "state",
		Help:      "1 for the supervisor's current state, 0 otherwise",
	}, []string{"state"})
)

// Serve exposes /metrics on addr until ctx is done. An empty addr disables it.
func Serve(ctx context.Context, addr string, log *zap.SugaredLogger) error {
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	log.Infow("serving metrics", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve metrics: %w", err)
	}
}
