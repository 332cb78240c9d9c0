package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"campusboard/pkg/auth"
	"campusboard/pkg/config"
	"campusboard/pkg/store"
	"campusboard/pkg/telemetry"
	"campusboard/pkg/utils"
)

// RegisterModeration registers the report route.
func RegisterModeration(r *mux.Router) {
	r.HandleFunc("/posts/{id}/report", reportPost).Methods(http.MethodPost)
}

type reportResponse struct {
	ReportCount int    `json:"report_count"`
	Threshold   int    `json:"threshold"`
	Removed     bool   `json:"removed"`
	Message     string `json:"message"`
}

// reportPost handles POST /posts/{id}/report. Each user counts once per
// item; a repeat filing is a 409.
func reportPost(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	user := auth.UserFromContext(r.Context())
	if user == "" {
		utils.JSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id := mux.Vars(r)["id"]

	res, err := store.ReportPost(user, id, config.ReportThreshold())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	telemetry.ReportsFiled.Inc()

	msg := "report recorded"
	if res.Removed {
		msg = "content removed"
	}
	_ = json.NewEncoder(w).Encode(reportResponse{
		ReportCount: res.ReportCount,
		Threshold:   res.Threshold,
		Removed:     res.Removed,
		Message:     msg,
	})
}
