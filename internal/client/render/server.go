package render

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gfsdash/internal/client/metrics"
	"github.com/dmitrijs2005/gfsdash/internal/client/view"
	"github.com/dmitrijs2005/gfsdash/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// LastViewer gives the most recently applied view.
type LastViewer interface {
	LastView() (view.View, bool)
}

// NewRouter mounts the live view endpoints:
//
//	GET /ws        websocket stream of Message
//	GET /api/view  latest view as JSON, 204 when none
//	GET /metrics   prometheus exposition
//	GET /healthz
func NewRouter(hub *Hub, views LastViewer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/ws", hub.ServeHTTP)
	r.Get("/api/view", func(w http.ResponseWriter, r *http.Request) {
		v, ok := views.LastView()
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(v)
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return r
}

// LiveServer serves NewRouter on addr until its context ends.
type LiveServer struct {
	address string
	hub     *Hub
	views   LastViewer
	logger  logging.Logger
}

func NewLiveServer(addr string, hub *Hub, views LastViewer, l logging.Logger) *LiveServer {
	return &LiveServer{address: addr, hub: hub, views: views, logger: l.With("component", "live")}
}

func (s *LiveServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           NewRouter(s.hub, s.views),
		ReadHeaderTimeout: 5 * time.Second,
	}
	// hijacked websocket connections are not tracked by Shutdown
	srv.RegisterOnShutdown(s.hub.Close)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping live view server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting live view server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
