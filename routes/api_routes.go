// routes/api_routes.go
package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LilVoxy/sakila_analytics/websocket"
)

// SetupRoutes registers the monitor API, the live run feed and the metrics endpoint
func SetupRoutes(router *mux.Router, h *Handler, wsManager *websocket.Manager) {
	router.Use(corsMiddleware)

	// Live run events
	router.HandleFunc("/ws", wsManager.HandleConnections).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", h.GetStatus).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/runs", h.GetRuns).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/runs/{id:[0-9]+}/report", h.GetRunReport).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/sync/incremental", h.TriggerIncremental).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/validate", h.RunValidation).Methods(http.MethodPost, http.MethodOptions)

	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
