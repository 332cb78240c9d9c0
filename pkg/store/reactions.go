package store

import (
	"bytes"
	"errors"

	"github.com/cockroachdb/pebble"

	"campusboard/pkg/logger"
)

// ToggleResult is the authoritative outcome of a reaction toggle: the
// user's reaction after the operation ("" when cleared) and the full count
// map for the item.
type ToggleResult struct {
	UserReaction string         `json:"user_reaction"`
	Counts       map[string]int `json:"counts"`
}

// ToggleReaction applies the single-reaction toggle rule for user on item:
// toggling the current reaction clears it, toggling a different type
// replaces it, toggling with no prior reaction sets it. The ledger row and
// the denormalized counts on the post commit in one synced batch, so a
// crash can never leave them disagreeing.
func ToggleReaction(user, item, reaction string) (*ToggleResult, error) {
	if db == nil {
		return nil, ErrNotOpen
	}
	mu := lockFor(item)
	mu.Lock()
	defer mu.Unlock()

	p, err := getPost(item)
	if err != nil {
		return nil, err
	}
	if p.Removed {
		return nil, ErrRemoved
	}

	current, err := userReaction(item, user)
	if err != nil {
		return nil, err
	}

	next := reaction
	if current == reaction {
		next = ""
	}

	b := db.NewBatch()
	defer b.Close()
	if current != "" {
		if p.Reactions[current] > 0 {
			p.Reactions[current]--
		}
	}
	if next == "" {
		if err := b.Delete(reactionKey(item, user), nil); err != nil {
			return nil, err
		}
	} else {
		p.Reactions[next]++
		if err := b.Set(reactionKey(item, user), []byte(next), nil); err != nil {
			return nil, err
		}
	}
	if err := putPost(b, p); err != nil {
		return nil, err
	}
	if err := b.Commit(pebble.Sync); err != nil {
		logger.Error("toggle_reaction_commit_failed", "item", item, "user", user, "error", err)
		return nil, err
	}
	return &ToggleResult{UserReaction: next, Counts: copyCounts(p.Reactions)}, nil
}

// UserReaction returns the user's current reaction on item, or "" when
// none is recorded.
func UserReaction(user, item string) (string, error) {
	if db == nil {
		return "", ErrNotOpen
	}
	return userReaction(item, user)
}

// UserReactions resolves the user's reaction for each of the given item
// ids in one pass. Every requested id appears in the result; items with no
// reaction map to "".
func UserReactions(user string, items []string) (map[string]string, error) {
	if db == nil {
		return nil, ErrNotOpen
	}
	out := make(map[string]string, len(items))
	for _, item := range items {
		r, err := userReaction(item, user)
		if err != nil {
			return nil, err
		}
		out[item] = r
	}
	return out, nil
}

// CountReactions derives the count map for item directly from the ledger
// rows. Used by the inspect tool and integrity tests; regular reads use the
// denormalized counts on the post record.
func CountReactions(item string) (map[string]int, error) {
	if db == nil {
		return nil, ErrNotOpen
	}
	counts := map[string]int{}
	for _, t := range reactionTypes {
		counts[t] = 0
	}
	pfx := []byte("reaction:" + item + ":")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	for iter.SeekGE(pfx); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), pfx) {
			break
		}
		counts[string(iter.Value())]++
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return counts, nil
}

func userReaction(item, user string) (string, error) {
	v, closer, err := db.Get(reactionKey(item, user))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	defer closer.Close()
	return string(v), nil
}

func copyCounts(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
