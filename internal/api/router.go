package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// NewRouter assembles the HTTP routes for one handler.
func NewRouter(h *Handler, logger *zap.Logger) *mux.Router {
	r := mux.NewRouter()

	r.Use(corsMiddleware, loggingMiddleware(logger))

	r.HandleFunc("/batch", h.handleAddFiles).Methods(http.MethodPost)
	r.HandleFunc("/batch", h.handleState).Methods(http.MethodGet)
	r.HandleFunc("/batch", h.handleClear).Methods(http.MethodDelete)
	r.HandleFunc("/batch/process", h.handleProcess).Methods(http.MethodPost)
	r.HandleFunc("/batch/stats", h.handleStatistics).Methods(http.MethodGet)
	r.HandleFunc("/item/{id}/result", h.handleItemResult).Methods(http.MethodGet)
	r.HandleFunc("/item/{id}/retry", h.handleRetry).Methods(http.MethodPost)
	r.HandleFunc("/item/{id}/resize", h.handleResize).Methods(http.MethodPut)
	r.HandleFunc("/item/{id}", h.handleCancel).Methods(http.MethodDelete)
	r.HandleFunc("/resize", h.handleResize).Methods(http.MethodPut)
	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Info("request received",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
			)
			next.ServeHTTP(w, r)
		})
	}
}
