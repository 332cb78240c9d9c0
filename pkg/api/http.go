package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"campusboard/pkg/api/handlers"
	"campusboard/pkg/store"
)

// Handler returns the board's JSON API under /v1 plus health endpoints.
// Authentication and telemetry are applied by the caller as outer
// middleware.
func Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", healthzHandler).Methods(http.MethodGet)
	r.HandleFunc("/readyz", readyzHandler).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	handlers.RegisterPosts(v1)
	handlers.RegisterFeed(v1)
	handlers.RegisterReactions(v1)
	handlers.RegisterModeration(v1)

	return r
}

func healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func readyzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !store.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"not ready"}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
