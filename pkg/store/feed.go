package store

import (
	"bytes"
	"time"

	"github.com/cockroachdb/pebble"

	"campusboard/pkg/logger"
	"campusboard/pkg/models"
)

// ListFeed returns up to limit non-removed top-level posts for topic,
// newest first, skipping the first offset visible posts. Each post carries
// its non-removed replies, oldest first. Removed posts and replies are
// filtered out entirely; offset and limit count only visible posts.
func ListFeed(topic string, limit, offset int) ([]models.FeedPost, error) {
	if db == nil {
		return nil, ErrNotOpen
	}
	if limit <= 0 {
		return []models.FeedPost{}, nil
	}
	pfx := []byte("topic:" + topic + ":post:")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	out := make([]models.FeedPost, 0, limit)
	skipped := 0
	for iter.SeekGE(pfx); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), pfx) {
			break
		}
		id := string(iter.Value())
		p, err := getPost(id)
		if err != nil {
			if err == ErrNotFound {
				// index row outlived its post; retention will prune it
				continue
			}
			return nil, err
		}
		if p.Removed {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		replies, err := listReplies(id)
		if err != nil {
			return nil, err
		}
		out = append(out, models.FeedPost{Post: *p, Replies: replies})
		if len(out) >= limit {
			break
		}
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return out, nil
}

// listReplies loads the non-removed replies of parent, oldest first.
func listReplies(parent string) ([]models.Post, error) {
	pfx := []byte("reply:" + parent + ":")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	out := []models.Post{}
	for iter.SeekGE(pfx); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), pfx) {
			break
		}
		p, err := getPost(string(iter.Value()))
		if err != nil {
			if err == ErrNotFound {
				continue
			}
			return nil, err
		}
		if p.Removed {
			continue
		}
		out = append(out, *p)
	}
	return out, iter.Error()
}

// PruneRemovedIndexes deletes feed and reply index rows whose posts were
// soft-deleted before the cutoff. The canonical post records and the
// ledgers stay in place; only the iteration surface shrinks. Returns the
// number of index rows deleted.
func PruneRemovedIndexes(cutoff time.Time) (int, error) {
	if db == nil {
		return 0, ErrNotOpen
	}
	cut := cutoff.UTC().UnixNano()
	pruned := 0
	for _, pfx := range []string{"topic:", "reply:"} {
		keys, err := ListKeys(pfx)
		if err != nil {
			return pruned, err
		}
		for _, k := range keys {
			id, err := GetKey(k)
			if err != nil {
				continue
			}
			p, err := getPost(id)
			if err != nil {
				if err == ErrNotFound {
					if derr := db.Delete([]byte(k), pebble.Sync); derr == nil {
						pruned++
					}
				}
				continue
			}
			if p.Removed && p.RemovedTS > 0 && p.RemovedTS < cut {
				if derr := db.Delete([]byte(k), pebble.Sync); derr == nil {
					pruned++
				}
			}
		}
	}
	if pruned > 0 {
		logger.Info("pruned_removed_indexes", "count", pruned)
	}
	return pruned, nil
}
