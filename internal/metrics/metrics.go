// Package metrics exposes Prometheus counters for the player.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/set-night/vcplayer/internal/domain"
)

var (
	PlaysStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vcplayer_plays_started_total",
		Help: "Streams started on a call engine",
	})
	PlayFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vcplayer_play_failures_total",
		Help: "Failed stream starts by error kind",
	}, []string{"kind"})
	StreamEnds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vcplayer_stream_ends_total",
		Help: "Stream ended events by outcome",
	}, []string{"outcome"})
	Joins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vcplayer_assistant_joins_total",
		Help: "Assistant join attempts by result",
	}, []string{"result"})
	ReaperEnds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vcplayer_reaper_ends_total",
		Help: "Sessions ended for lack of listeners",
	})
	AutoLeaves = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vcplayer_auto_leaves_total",
		Help: "Chats left by the scheduled auto leave",
	})
	Downloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vcplayer_downloads_total",
		Help: "Track downloads by result",
	}, []string{"result"})
	DownloadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vcplayer_download_duration_seconds",
		Help:    "Track download duration seconds",
		Buckets: prometheus.DefBuckets,
	})
	Updates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vcplayer_updates_total",
		Help: "Bot updates processed by type",
	}, []string{"type"})
	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vcplayer_rate_limited_total",
		Help: "Commands dropped by the rate limit",
	})
	HandlerPanics = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vcplayer_handler_panics_total",
		Help: "Panics recovered in update handlers",
	})
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vcplayer_active_sessions",
		Help: "Rooms with an active session",
	})
)

// ErrorKind maps an error to a short label value.
func ErrorKind(err error) string {
	var joinErr *domain.JoinError
	var rpcErr *domain.RPCError
	var dlErr *domain.DownloadError
	switch {
	case err == nil:
		return "none"
	case errors.As(err, &joinErr):
		return "join"
	case errors.As(err, &dlErr):
		return "download"
	case errors.Is(err, domain.ErrNoAssistants):
		return "no_assistants"
	case errors.Is(err, domain.ErrNoActiveCall):
		return "no_active_call"
	case errors.Is(err, domain.ErrNotInCall):
		return "not_in_call"
	case errors.Is(err, domain.ErrConnectionLost):
		return "connection_lost"
	case errors.Is(err, domain.ErrServerError):
		return "server_error"
	case errors.Is(err, domain.ErrNoAudioSource):
		return "no_audio_source"
	case errors.Is(err, domain.ErrMediaNotFound):
		return "media_not_found"
	case errors.As(err, &rpcErr):
		return "rpc"
	default:
		return "other"
	}
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("metrics server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
