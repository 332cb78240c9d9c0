package client

import (
	"context"
	"errors"
	"sync"

	"campusboard/pkg/logger"
	"campusboard/pkg/models"
)

// ItemState is the client-side view of one item's reaction data.
type ItemState struct {
	ID           string
	Counts       map[string]int
	UserReaction string
	pending      bool
}

// Controller runs the optimistic reaction protocol over a snapshot of feed
// items. Each item is Idle or Pending; a toggle is accepted only from Idle.
// The displayed state is speculative while a request is in flight and is
// always replaced by the server's answer (or the pre-toggle snapshot on
// failure) when the request settles.
type Controller struct {
	mu    sync.Mutex
	api   API
	items map[string]*ItemState

	// onUnauthenticated fires when the server rejects the credential, so
	// the owning session can tear itself down.
	onUnauthenticated func()
}

// NewController builds a Controller over the given transport.
func NewController(api API) *Controller {
	return &Controller{api: api, items: make(map[string]*ItemState)}
}

// State returns a copy of the tracked state for itemID.
func (c *Controller) State(itemID string) (ItemState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.items[itemID]
	if !ok {
		return ItemState{}, false
	}
	return ItemState{ID: st.ID, Counts: copyCounts(st.Counts), UserReaction: st.UserReaction, pending: st.pending}, true
}

// Pending reports whether itemID has a toggle in flight.
func (c *Controller) Pending(itemID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.items[itemID]
	return ok && st.pending
}

// Track adds or refreshes an item from feed data. Items with a toggle in
// flight keep their speculative state; the settling request will reconcile
// them against the server.
func (c *Controller) Track(p models.Post, userReaction string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.items[p.ID]; ok && st.pending {
		return
	}
	c.items[p.ID] = &ItemState{ID: p.ID, Counts: copyCounts(p.Reactions), UserReaction: userReaction}
}

// Reset discards the whole snapshot. In-flight toggles settle against
// their captured item state and are not re-tracked.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*ItemState)
}

// Forget drops an item from the snapshot (e.g. after it was removed).
func (c *Controller) Forget(itemID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, itemID)
}

// Toggle runs the full optimistic cycle for one reaction press:
// guard, snapshot, speculative apply, server call, reconcile. The item is
// back in Idle on every path out of this function.
func (c *Controller) Toggle(ctx context.Context, itemID, reaction string) error {
	c.mu.Lock()
	st, ok := c.items[itemID]
	if !ok {
		c.mu.Unlock()
		return ErrUnknownItem
	}
	if st.pending {
		c.mu.Unlock()
		return ErrPending
	}
	st.pending = true

	// remember exactly what we are about to change
	prevReaction := st.UserReaction
	prevCounts := copyCounts(st.Counts)

	// speculative apply using the same toggle rule as the server
	if prevReaction == reaction {
		st.UserReaction = ""
		decrement(st.Counts, reaction)
	} else {
		if prevReaction != "" {
			decrement(st.Counts, prevReaction)
		}
		st.UserReaction = reaction
		st.Counts[reaction]++
	}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		st.pending = false
		c.mu.Unlock()
	}()

	out, err := c.api.Toggle(ctx, itemID, reaction)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		// restore the exact pre-toggle state
		st.UserReaction = prevReaction
		st.Counts = prevCounts
		logger.Warn("toggle_failed", "item", itemID, "error", err)
		if errors.Is(err, ErrUnauthenticated) && c.onUnauthenticated != nil {
			c.onUnauthenticated()
		}
		if errors.Is(err, ErrNotFound) {
			delete(c.items, itemID)
		}
		return err
	}
	// the server's answer wins, even when it matches the speculation
	st.UserReaction = out.UserReaction
	st.Counts = copyCounts(out.Counts)
	return nil
}

// Report files a report for itemID. Reporting has no optimistic phase;
// when the server says the item was removed it leaves the snapshot.
func (c *Controller) Report(ctx context.Context, itemID string) (*ReportOutcome, error) {
	out, err := c.api.Report(ctx, itemID)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) && c.onUnauthenticated != nil {
			c.onUnauthenticated()
		}
		return nil, err
	}
	if out.Removed {
		c.Forget(itemID)
	}
	return out, nil
}

func copyCounts(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// decrement lowers a count by one, clamping at zero so a stale snapshot
// can never push a displayed count negative.
func decrement(m map[string]int, key string) {
	if m[key] > 0 {
		m[key]--
	} else {
		m[key] = 0
	}
}
