package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/valyala/fasthttp"

	"campusboard/pkg/models"
)

// Client-side error taxonomy. Callers branch on these to decide between
// rollback-and-retry and session teardown.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotFound        = errors.New("not found")
	ErrAlreadyReported = errors.New("already reported")
	ErrTransient       = errors.New("transient error")
	ErrPending         = errors.New("operation already pending for item")
	ErrUnknownItem     = errors.New("item not in snapshot")
)

// ToggleOutcome is the server's authoritative answer to a reaction toggle.
type ToggleOutcome struct {
	UserReaction string         `json:"user_reaction"`
	Counts       map[string]int `json:"counts"`
}

// ReportOutcome is the server's answer to a report filing.
type ReportOutcome struct {
	ReportCount int  `json:"report_count"`
	Threshold   int  `json:"threshold"`
	Removed     bool `json:"removed"`
}

// FeedPage is one page of the topic feed as returned by the server.
type FeedPage struct {
	Topic         string            `json:"topic"`
	Posts         []models.FeedPost `json:"posts"`
	Limit         int               `json:"limit"`
	Offset        int               `json:"offset"`
	UserReactions map[string]string `json:"user_reactions,omitempty"`
}

// API is the slice of the board's HTTP surface the reaction controller and
// poller need.
type API interface {
	Feed(ctx context.Context, topic string, limit, offset int) (*FeedPage, error)
	Toggle(ctx context.Context, itemID, reaction string) (*ToggleOutcome, error)
	Report(ctx context.Context, itemID string) (*ReportOutcome, error)
}

// Transport is a fasthttp-backed API client. Token returns the current
// bearer token; it is consulted per request so rotation takes effect
// without rebuilding the transport.
type Transport struct {
	BaseURL string
	Token   func() string
	HTTP    *fasthttp.Client
	Timeout time.Duration
}

// NewTransport builds a Transport against baseURL using token for auth.
func NewTransport(baseURL string, token func() string) *Transport {
	return &Transport{
		BaseURL: baseURL,
		Token:   token,
		HTTP:    &fasthttp.Client{},
		Timeout: 10 * time.Second,
	}
}

func (t *Transport) Feed(ctx context.Context, topic string, limit, offset int) (*FeedPage, error) {
	var page FeedPage
	url := fmt.Sprintf("%s/v1/feed/%s?limit=%d&offset=%d", t.BaseURL, topic, limit, offset)
	if err := t.do(ctx, fasthttp.MethodGet, url, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (t *Transport) Toggle(ctx context.Context, itemID, reaction string) (*ToggleOutcome, error) {
	var out ToggleOutcome
	url := fmt.Sprintf("%s/v1/posts/%s/react", t.BaseURL, itemID)
	body, _ := json.Marshal(map[string]string{"type": reaction})
	if err := t.do(ctx, fasthttp.MethodPost, url, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *Transport) Report(ctx context.Context, itemID string) (*ReportOutcome, error) {
	var out ReportOutcome
	url := fmt.Sprintf("%s/v1/posts/%s/report", t.BaseURL, itemID)
	if err := t.do(ctx, fasthttp.MethodPost, url, []byte("{}"), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *Transport) do(ctx context.Context, method, url string, body []byte, out interface{}) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(method)
	req.SetRequestURI(url)
	req.Header.SetContentType("application/json")
	if t.Token != nil {
		if tok := t.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	if body != nil {
		req.SetBody(body)
	}

	timeout := t.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d < timeout {
			timeout = d
		}
	}
	if err := t.HTTP.DoTimeout(req, resp, timeout); err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusOK, code == http.StatusCreated:
	case code == http.StatusUnauthorized:
		return ErrUnauthenticated
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusConflict:
		return ErrAlreadyReported
	case code >= 500:
		return fmt.Errorf("%w: status %d", ErrTransient, code)
	default:
		return fmt.Errorf("unexpected status %d: %s", code, resp.Body())
	}

	if out != nil {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("invalid response body: %w", err)
		}
	}
	return nil
}
