package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/preventix/preventix/internal/domain/repositories"
)

// Router builds the REST route table. ready is consulted by the readiness
// probe; pass nil to report ready unconditionally.
func (h *Handler) Router(ready repositories.HealthChecker) *mux.Router {
	r := mux.NewRouter()
	r.Use(LogRequest)

	// Public endpoints
	r.HandleFunc("/auth/register", h.Register).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)
	r.HandleFunc("/auth/refresh", h.Refresh).Methods(http.MethodPost)

	// Authenticated endpoints
	r.Handle("/auth/me", h.RequireAuth(http.HandlerFunc(h.Me))).Methods(http.MethodGet)
	r.Handle("/auth/me", h.RequireAuth(http.HandlerFunc(h.UpdateMe))).Methods(http.MethodPut)
	r.Handle("/predict", h.RequireAuth(http.HandlerFunc(h.Predict))).Methods(http.MethodPost)
	r.Handle("/predict/current-pdf", h.RequireAuth(http.HandlerFunc(h.PredictPDF))).Methods(http.MethodPost)
	r.Handle("/assessments/recent", h.RequireAuth(http.HandlerFunc(h.RecentAssessments))).Methods(http.MethodGet)
	r.Handle("/assessments/{id}/pdf", h.RequireAuth(http.HandlerFunc(h.AssessmentPDF))).Methods(http.MethodGet)

	// Probes and metrics
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/readiness", func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ready.HealthCheck(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte("NOT READY"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("READY"))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return r
}
