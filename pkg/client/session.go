package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"campusboard/pkg/auth"
	"campusboard/pkg/logger"
	"campusboard/pkg/models"
)

// ErrSessionExpired is returned when the session's token is past its
// expiry. The caller should log in again.
var ErrSessionExpired = errors.New("session expired")

// Session owns everything tied to one login: the bearer token, the
// reaction controller, the current feed snapshot and the background
// poller. Close discards all of it, which is the logout semantic: a new
// login starts from a clean snapshot.
type Session struct {
	mu     sync.Mutex
	token  string
	expiry time.Time
	handle string

	api        API
	Controller *Controller

	topic  string
	posts  []models.FeedPost
	poller *Poller
}

// NewSession builds a session from a bearer token. The token's claims are
// parsed for the handle and expiry; an unparseable token is rejected.
func NewSession(baseURL, token string) (*Session, error) {
	exp, err := auth.TokenExpiry(token)
	if err != nil {
		return nil, err
	}
	s := &Session{token: token, expiry: exp}
	s.api = NewTransport(baseURL, s.currentToken)
	s.Controller = NewController(s.api)
	s.Controller.onUnauthenticated = s.invalidate
	return s, nil
}

// currentToken returns the token, or "" once invalidated or expired.
func (s *Session) currentToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" {
		return ""
	}
	if !s.expiry.IsZero() && time.Now().After(s.expiry) {
		return ""
	}
	return s.token
}

// Valid reports whether the session still holds a usable credential.
func (s *Session) Valid() bool {
	return s.currentToken() != ""
}

// invalidate drops the credential after a server-side rejection.
func (s *Session) invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" {
		logger.Warn("session_invalidated")
		s.token = ""
	}
}

// SetTopic switches the feed topic and refreshes immediately.
func (s *Session) SetTopic(ctx context.Context, topic string) error {
	s.mu.Lock()
	s.topic = topic
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// Refresh fetches the current topic's first page and folds it into the
// snapshot. Items with an in-flight toggle keep their speculative state.
func (s *Session) Refresh(ctx context.Context) error {
	if !s.Valid() {
		return ErrSessionExpired
	}
	s.mu.Lock()
	topic := s.topic
	s.mu.Unlock()
	if topic == "" {
		return nil
	}
	page, err := s.api.Feed(ctx, topic, 0, 0)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			s.invalidate()
		}
		return err
	}
	s.apply(page)
	return nil
}

// apply folds a fetched page into the snapshot and the controller.
func (s *Session) apply(page *FeedPage) {
	for _, p := range page.Posts {
		s.Controller.Track(p.Post, page.UserReactions[p.ID])
		for _, rp := range p.Replies {
			s.Controller.Track(rp, page.UserReactions[rp.ID])
		}
	}
	s.mu.Lock()
	s.posts = page.Posts
	s.mu.Unlock()
}

// Posts returns the current feed snapshot.
func (s *Session) Posts() []models.FeedPost {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.FeedPost{}, s.posts...)
}

// StartPolling begins background feed refreshes at the given interval.
func (s *Session) StartPolling(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.poller != nil {
		return
	}
	s.poller = NewPoller(s, interval)
	s.poller.Start()
}

// Close stops the poller and discards the credential and all client-side
// state.
func (s *Session) Close() {
	s.mu.Lock()
	p := s.poller
	s.poller = nil
	s.mu.Unlock()
	// stop the poller outside the lock; its loop calls Refresh, which
	// takes s.mu
	if p != nil {
		p.Stop()
	}
	s.mu.Lock()
	s.token = ""
	s.posts = nil
	s.mu.Unlock()
	// the Controller field is never reassigned after construction, so
	// concurrent readers always see a valid controller; logout just
	// empties its snapshot
	s.Controller.Reset()
	logger.Info("session_closed")
}
