package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"campusboard/pkg/auth"
	"campusboard/pkg/store"
	"campusboard/pkg/telemetry"
	"campusboard/pkg/utils"
	"campusboard/pkg/validation"
)

// RegisterReactions registers the reaction toggle route.
func RegisterReactions(r *mux.Router) {
	r.HandleFunc("/posts/{id}/react", toggleReaction).Methods(http.MethodPost)
}

type reactReq struct {
	Type string `json:"type"`
}

// toggleReaction handles POST /posts/{id}/react. The response is the
// committed state: the caller's reaction after the toggle ("" when it was
// cleared) plus the full count map. Clients adopt it verbatim.
func toggleReaction(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	user := auth.UserFromContext(r.Context())
	if user == "" {
		utils.JSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id := mux.Vars(r)["id"]
	var req reactReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := validation.ValidateReactionType(req.Type); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := store.ToggleReaction(user, id, req.Type)
	if err != nil {
		telemetry.ReactionsToggled.WithLabelValues("error").Inc()
		writeStoreError(w, err)
		return
	}
	if res.UserReaction == "" {
		telemetry.ReactionsToggled.WithLabelValues("cleared").Inc()
	} else {
		telemetry.ReactionsToggled.WithLabelValues("set").Inc()
	}
	_ = json.NewEncoder(w).Encode(res)
}
