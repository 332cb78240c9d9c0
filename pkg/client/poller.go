package client

import (
	"context"
	"time"

	"campusboard/pkg/logger"
)

// DefaultPollInterval matches the board's standard feed refresh cadence.
const DefaultPollInterval = 120 * time.Second

// Poller refreshes a session's feed snapshot on a fixed interval. A
// refresh is a full re-fetch; reconciliation with in-flight toggles
// happens in the controller, which keeps pending items untouched.
type Poller struct {
	session  *Session
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// NewPoller builds a poller for the session. A non-positive interval
// falls back to DefaultPollInterval.
func NewPoller(s *Session, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		session:  s,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the poll loop. It runs until Stop is called or the
// session's credential becomes unusable.
func (p *Poller) Start() {
	go p.loop()
}

func (p *Poller) loop() {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), p.interval/2)
			err := p.session.Refresh(ctx)
			cancel()
			if err == ErrSessionExpired {
				logger.Info("poller_stopping", "reason", "session expired")
				return
			}
			if err != nil {
				// transient failures just wait for the next tick
				logger.Debug("poll_refresh_failed", "error", err)
			}
		}
	}
}

// Stop halts the loop and waits for it to exit.
func (p *Poller) Stop() {
	select {
	case <-p.stop:
	default:
		close(p.stop)
	}
	<-p.done
}
