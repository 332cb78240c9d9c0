package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"campusboard/pkg/auth"
	"campusboard/pkg/config"
	"campusboard/pkg/models"
	"campusboard/pkg/store"
	"campusboard/pkg/utils"
	"campusboard/pkg/validation"
)

// RegisterFeed registers the feed and topic listing routes.
func RegisterFeed(r *mux.Router) {
	r.HandleFunc("/feed/{topic}", listFeed).Methods(http.MethodGet)
	r.HandleFunc("/topics", listTopics).Methods(http.MethodGet)
}

type feedResponse struct {
	Topic         string            `json:"topic"`
	Posts         []models.FeedPost `json:"posts"`
	Limit         int               `json:"limit"`
	Offset        int               `json:"offset"`
	UserReactions map[string]string `json:"user_reactions,omitempty"`
}

// listFeed handles GET /feed/{topic}?limit=&offset=. Authenticated callers
// additionally get user_reactions covering every returned post and reply.
func listFeed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	topic := mux.Vars(r)["topic"]
	if err := validation.ValidateTopic(topic); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit := config.PageSize()
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			offset = n
		}
	}

	posts, err := store.ListFeed(topic, limit, offset)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	resp := feedResponse{Topic: topic, Posts: posts, Limit: limit, Offset: offset}
	if user := auth.UserFromContext(r.Context()); user != "" {
		ids := make([]string, 0, len(posts))
		for _, p := range posts {
			ids = append(ids, p.ID)
			for _, rp := range p.Replies {
				ids = append(ids, rp.ID)
			}
		}
		reactions, err := store.UserReactions(user, ids)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		resp.UserReactions = reactions
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// listTopics handles GET /topics.
func listTopics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string][]string{"topics": config.Topics()})
}
