package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"campusboard/pkg/auth"
	"campusboard/pkg/models"
	"campusboard/pkg/store"
	"campusboard/pkg/telemetry"
	"campusboard/pkg/utils"
	"campusboard/pkg/validation"
)

// RegisterPosts registers the post creation route.
func RegisterPosts(r *mux.Router) {
	r.HandleFunc("/posts", createPost).Methods(http.MethodPost)
}

type createPostReq struct {
	Topic    string `json:"topic"`
	Body     string `json:"body"`
	ParentID string `json:"parent_id,omitempty"`
}

// createPost handles POST /posts. The body is either a top-level post
// (topic + body) or a reply (parent_id + body; the topic comes from the
// parent). The author is always the authenticated identity.
func createPost(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	user := auth.UserFromContext(r.Context())
	if user == "" {
		utils.JSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req createPostReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}

	candidate := models.Post{Author: user, Topic: req.Topic, Body: req.Body, ParentID: req.ParentID}
	if err := validation.ValidatePost(candidate); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	var (
		p   *models.Post
		err error
	)
	if req.ParentID != "" {
		p, err = store.CreateReply(user, req.ParentID, req.Body)
	} else {
		p, err = store.CreatePost(user, req.Topic, req.Body)
	}
	if err != nil {
		writeStoreError(w, err)
		return
	}
	telemetry.PostsCreated.Inc()
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(p)
}

// writeStoreError maps store sentinel errors onto the HTTP taxonomy.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrRemoved):
		// removed content is indistinguishable from absent content
		utils.JSONError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrAlreadyReported):
		utils.JSONError(w, http.StatusConflict, "already reported")
	case errors.Is(err, store.ErrReplyDepth):
		utils.JSONError(w, http.StatusBadRequest, "cannot reply to a reply")
	case errors.Is(err, store.ErrNotOpen):
		utils.JSONError(w, http.StatusServiceUnavailable, "store not ready")
	default:
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
	}
}
