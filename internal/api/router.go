package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aviation-impact-accelerator/aia-analysis-contrail-avoidance/internal/pipeline"
	"github.com/aviation-impact-accelerator/aia-analysis-contrail-avoidance/internal/storage/sqlite"
	"github.com/aviation-impact-accelerator/aia-analysis-contrail-avoidance/internal/websocket"
	"github.com/aviation-impact-accelerator/aia-analysis-contrail-avoidance/pkg/logger"
)

// Router wires the API handlers and the WebSocket endpoint
type Router struct {
	handler  *Handler
	wsServer *websocket.Server
	logger   *logger.Logger
}

// NewRouter creates a new API router
func NewRouter(runner *pipeline.Runner, store *sqlite.PartitionStore, wsServer *websocket.Server, log *logger.Logger) *Router {
	return &Router{
		handler:  NewHandler(runner, store, log),
		wsServer: wsServer,
		logger:   log.Named("api-router"),
	}
}

// Routes returns the HTTP handler for all API routes
func (rt *Router) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", rt.handler.GetStatus)
		r.Get("/days", rt.handler.GetDays)
		r.Get("/days/{day}/flights", rt.handler.GetDayFlights)
		r.Get("/days/{day}/records", rt.handler.GetDayRecords)
	})

	if rt.wsServer != nil {
		r.Get("/ws", rt.wsServer.HandleConnection)
	}

	return r
}
