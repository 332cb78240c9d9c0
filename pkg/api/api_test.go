package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"campusboard/pkg/api"
	"campusboard/pkg/auth"
	"campusboard/pkg/config"
	"campusboard/pkg/store"
	"campusboard/pkg/validation"
)

// newServer wires the full request path: gateway middleware over the API
// router, backed by a fresh store and a known signing key.
func newServer(t *testing.T, threshold int) *httptest.Server {
	t.Helper()

	cfg := &config.Config{}
	cfg.Security.SigningKeys = []string{"test-signing-key"}
	cfg.Board.ReportThreshold = threshold
	config.SetCurrent(cfg)
	config.SetRuntime(&config.RuntimeConfig{
		SigningKeys: map[string]struct{}{"test-signing-key": {}},
	})
	validation.SetRules(validation.Rules{})
	store.SetReactionTypes(nil)

	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	sec := auth.SecConfig{RPS: 1000, Burst: 1000}
	srv := httptest.NewServer(auth.GatewayMiddleware(sec)(api.Handler()))
	t.Cleanup(srv.Close)
	return srv
}

func bearer(t *testing.T, username string) string {
	t.Helper()
	tok, err := auth.SignToken(username, time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + tok
}

func doJSON(t *testing.T, method, url, authz string, body interface{}, out interface{}) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func createPost(t *testing.T, srv *httptest.Server, authz, topic, body string) map[string]interface{} {
	t.Helper()
	var p map[string]interface{}
	code := doJSON(t, http.MethodPost, srv.URL+"/v1/posts", authz, map[string]string{"topic": topic, "body": body}, &p)
	if code != http.StatusCreated {
		t.Fatalf("create post: status %d", code)
	}
	return p
}

func TestCreatePostRequiresAuth(t *testing.T) {
	srv := newServer(t, 20)
	code := doJSON(t, http.MethodPost, srv.URL+"/v1/posts", "", map[string]string{"topic": "General", "body": "hi"}, nil)
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
	code = doJSON(t, http.MethodPost, srv.URL+"/v1/posts", "Bearer not-a-token", map[string]string{"topic": "General", "body": "hi"}, nil)
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", code)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	srv := newServer(t, 20)
	tok, err := auth.SignToken("ghost", -time.Minute)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	code := doJSON(t, http.MethodPost, srv.URL+"/v1/posts", "Bearer "+tok, map[string]string{"topic": "General", "body": "hi"}, nil)
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %d", code)
	}
}

func TestFeedRejectsBadCredential(t *testing.T) {
	srv := newServer(t, 20)

	// no credential: public read works
	if code := doJSON(t, http.MethodGet, srv.URL+"/v1/feed/General", "", nil, nil); code != http.StatusOK {
		t.Fatalf("anonymous feed should be served, got %d", code)
	}

	// a presented credential must verify, even on public read paths
	if code := doJSON(t, http.MethodGet, srv.URL+"/v1/feed/General", "Bearer this-is-not-a-valid-token", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("garbage token on feed: expected 401, got %d", code)
	}
	expired, err := auth.SignToken("ghost", -time.Minute)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if code := doJSON(t, http.MethodGet, srv.URL+"/v1/feed/General", "Bearer "+expired, nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("expired token on feed: expected 401, got %d", code)
	}
	if code := doJSON(t, http.MethodGet, srv.URL+"/v1/topics", "Bearer this-is-not-a-valid-token", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("garbage token on topics: expected 401, got %d", code)
	}
}

func TestInvalidJSONKeepsJSONContentType(t *testing.T) {
	srv := newServer(t, 20)
	authz := bearer(t, "alice")
	p := createPost(t, srv, authz, "General", "hi")

	for _, url := range []string{
		srv.URL + "/v1/posts",
		fmt.Sprintf("%s/v1/posts/%s/react", srv.URL, p["id"]),
	} {
		req, err := http.NewRequest(http.MethodPost, url, bytes.NewBufferString("{not json"))
		if err != nil {
			t.Fatalf("new request: %v", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", authz)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("do request: %v", err)
		}
		var body map[string]string
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("error body must be JSON: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", url, resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
			t.Fatalf("%s: expected application/json, got %q", url, ct)
		}
		if body["error"] == "" {
			t.Fatalf("%s: expected error field, got %v", url, body)
		}
	}
}

func TestPostValidation(t *testing.T) {
	srv := newServer(t, 20)
	authz := bearer(t, "alice")

	cases := []struct {
		name string
		body map[string]string
	}{
		{"empty body", map[string]string{"topic": "General", "body": "   "}},
		{"unknown topic", map[string]string{"topic": "Gossip", "body": "hi"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if code := doJSON(t, http.MethodPost, srv.URL+"/v1/posts", authz, tc.body, nil); code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", code)
			}
		})
	}
}

func TestFeedFlow(t *testing.T) {
	srv := newServer(t, 20)
	alice := bearer(t, "alice")
	bob := bearer(t, "bob")

	p := createPost(t, srv, alice, "Memes", "first meme")
	postID := p["id"].(string)

	// reply
	var reply map[string]interface{}
	code := doJSON(t, http.MethodPost, srv.URL+"/v1/posts", bob, map[string]string{"parent_id": postID, "body": "lol"}, &reply)
	if code != http.StatusCreated {
		t.Fatalf("create reply: status %d", code)
	}
	if reply["topic"] != "Memes" {
		t.Fatalf("reply should inherit the parent topic, got %v", reply["topic"])
	}

	// replying to a reply is refused
	code = doJSON(t, http.MethodPost, srv.URL+"/v1/posts", alice, map[string]string{"parent_id": reply["id"].(string), "body": "nested"}, nil)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for nested reply, got %d", code)
	}

	// bob reacts
	var toggle map[string]interface{}
	code = doJSON(t, http.MethodPost, fmt.Sprintf("%s/v1/posts/%s/react", srv.URL, postID), bob, map[string]string{"type": "smack"}, &toggle)
	if code != http.StatusOK {
		t.Fatalf("toggle: status %d", code)
	}
	if toggle["user_reaction"] != "smack" {
		t.Fatalf("unexpected toggle result: %v", toggle)
	}

	// anonymous feed: items but no user_reactions
	var anon struct {
		Posts []struct {
			ID      string `json:"id"`
			Replies []struct {
				ID string `json:"id"`
			} `json:"replies"`
		} `json:"posts"`
		UserReactions map[string]string `json:"user_reactions"`
	}
	code = doJSON(t, http.MethodGet, srv.URL+"/v1/feed/Memes", "", nil, &anon)
	if code != http.StatusOK {
		t.Fatalf("anonymous feed: status %d", code)
	}
	if len(anon.Posts) != 1 || len(anon.Posts[0].Replies) != 1 {
		t.Fatalf("unexpected feed shape: %+v", anon.Posts)
	}
	if anon.UserReactions != nil {
		t.Fatalf("anonymous callers should not get user_reactions: %v", anon.UserReactions)
	}

	// authenticated feed hydrates bob's reactions for posts and replies
	var authed struct {
		Posts         []json.RawMessage `json:"posts"`
		UserReactions map[string]string `json:"user_reactions"`
	}
	code = doJSON(t, http.MethodGet, srv.URL+"/v1/feed/Memes", bob, nil, &authed)
	if code != http.StatusOK {
		t.Fatalf("feed: status %d", code)
	}
	if authed.UserReactions[postID] != "smack" {
		t.Fatalf("expected bob's smack on %s, got %v", postID, authed.UserReactions)
	}
	if _, ok := authed.UserReactions[reply["id"].(string)]; !ok {
		t.Fatalf("replies must be covered by user_reactions: %v", authed.UserReactions)
	}

	// unknown topic is a validation error
	if code := doJSON(t, http.MethodGet, srv.URL+"/v1/feed/Nonsense", "", nil, nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown topic, got %d", code)
	}
}

func TestReactUnknownPost(t *testing.T) {
	srv := newServer(t, 20)
	authz := bearer(t, "alice")
	code := doJSON(t, http.MethodPost, srv.URL+"/v1/posts/nope/react", authz, map[string]string{"type": "smack"}, nil)
	if code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
	// bad reaction type
	p := createPost(t, srv, authz, "General", "hi")
	code = doJSON(t, http.MethodPost, fmt.Sprintf("%s/v1/posts/%s/react", srv.URL, p["id"]), authz, map[string]string{"type": "wave"}, nil)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown reaction type, got %d", code)
	}
}

func TestReportFlow(t *testing.T) {
	srv := newServer(t, 2)
	alice := bearer(t, "alice")

	p := createPost(t, srv, alice, "General", "borderline")
	postID := p["id"].(string)
	reportURL := fmt.Sprintf("%s/v1/posts/%s/report", srv.URL, postID)

	var first struct {
		ReportCount int  `json:"report_count"`
		Threshold   int  `json:"threshold"`
		Removed     bool `json:"removed"`
	}
	code := doJSON(t, http.MethodPost, reportURL, bearer(t, "u1"), nil, &first)
	if code != http.StatusOK {
		t.Fatalf("report: status %d", code)
	}
	if first.ReportCount != 1 || first.Removed || first.Threshold != 2 {
		t.Fatalf("unexpected first report: %+v", first)
	}

	// duplicate from the same user
	if code := doJSON(t, http.MethodPost, reportURL, bearer(t, "u1"), nil, nil); code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", code)
	}

	// second distinct reporter crosses the threshold
	var second struct {
		Removed bool `json:"removed"`
	}
	code = doJSON(t, http.MethodPost, reportURL, bearer(t, "u2"), nil, &second)
	if code != http.StatusOK {
		t.Fatalf("report: status %d", code)
	}
	if !second.Removed {
		t.Fatalf("threshold crossing should remove the post: %+v", second)
	}

	// removed content vanishes from the feed and rejects interaction
	var feed struct {
		Posts []json.RawMessage `json:"posts"`
	}
	if code := doJSON(t, http.MethodGet, srv.URL+"/v1/feed/General", "", nil, &feed); code != http.StatusOK {
		t.Fatalf("feed: status %d", code)
	}
	if len(feed.Posts) != 0 {
		t.Fatalf("removed post still visible: %d posts", len(feed.Posts))
	}
	if code := doJSON(t, http.MethodPost, reportURL, bearer(t, "u3"), nil, nil); code != http.StatusNotFound {
		t.Fatalf("expected 404 reporting removed content, got %d", code)
	}
}

func TestTopicsEndpoint(t *testing.T) {
	srv := newServer(t, 20)
	var out struct {
		Topics []string `json:"topics"`
	}
	if code := doJSON(t, http.MethodGet, srv.URL+"/v1/topics", "", nil, &out); code != http.StatusOK {
		t.Fatalf("topics: status %d", code)
	}
	if len(out.Topics) != 8 {
		t.Fatalf("expected 8 default topics, got %v", out.Topics)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newServer(t, 20)
	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: status %d", path, resp.StatusCode)
		}
	}
}
