package api

import (
	"valutatrade/internal/api/handler"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(h *handler.Handler) *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(middleware.Heartbeat("/healthz"))

	router.Handle("/metrics", promhttp.Handler())

	router.Get("/api/v1/rates/{from:[A-Za-z0-9]{2,5}}/{to:[A-Za-z0-9]{2,5}}", h.GetRate)
	router.Get("/api/v1/rates/{from:[A-Za-z0-9]{2,5}}/{to:[A-Za-z0-9]{2,5}}/history", h.GetHistory)
	router.Post("/api/v1/updates", h.RunUpdate)
	router.Get("/api/v1/scheduler", h.SchedulerStatus)
	router.Post("/api/v1/scheduler/start", h.SchedulerStart)
	router.Post("/api/v1/scheduler/stop", h.SchedulerStop)
	return router
}
