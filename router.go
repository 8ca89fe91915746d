package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/user/signup-go/apperror"
	_ "github.com/user/signup-go/docs" // registers the Swagger spec
)

// healthResponse is the body of GET /health.
type healthResponse struct {
	Status string `json:"status" example:"ok"`
}

// newRouter builds the chi router with global middleware and all routes.
// IMPORTANT: chi requires all middleware to be registered before any routes.
func newRouter(app *application) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Timeout(app.cfg.Server.RequestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: app.cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	// Panics become a JSON 500 in the same shape as every other error.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
					app.logger.Error(r.Context(), "panic while handling request", "panic", rvr, "path", r.URL.Path)
					writeError(w, apperror.NewInternalError("An unexpected error occurred", nil))
				}
			}()
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", handleHealth(app.store))
	r.Method(http.MethodGet, "/metrics", app.metrics.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api/users", app.handlers.RegisterRoutes)

	return r
}

// handleHealth godoc
// @Summary Health check
// @Description Reports whether the account store is reachable.
// @Tags System
// @Produce json
// @Success 200 {object} main.healthResponse "OK"
// @Failure 503 {object} main.healthResponse "Storage unreachable"
// @Router /health [get]
func handleHealth(store pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status, body := http.StatusOK, healthResponse{Status: "ok"}
		if err := store.Ping(ctx); err != nil {
			status, body = http.StatusServiceUnavailable, healthResponse{Status: "unavailable"}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}

// writeError is a local helper for the panic recovery middleware.
func writeError(w http.ResponseWriter, appErr *apperror.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode())
	if err := json.NewEncoder(w).Encode(appErr.ToResponse()); err != nil {
		http.Error(w, `{"error":"Failed to encode error response"}`, http.StatusInternalServerError)
	}
}
