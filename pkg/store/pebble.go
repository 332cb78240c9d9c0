package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"

	"campusboard/pkg/logger"
	"campusboard/pkg/models"
)

var (
	db     *pebble.DB
	dbPath string
)

// seq reduces key collisions when multiple items share the same nanosecond
// timestamp.
var seq uint64

// Sentinel errors. Handlers map these onto the HTTP error taxonomy; the
// store never partially applies a mutation before returning one.
var (
	ErrNotOpen         = errors.New("store not opened; call store.Open first")
	ErrNotFound        = errors.New("item not found")
	ErrRemoved         = errors.New("item removed")
	ErrAlreadyReported = errors.New("already reported")
	ErrReplyDepth      = errors.New("cannot reply to a reply")
)

// reactionTypes is the active reaction vocabulary, used to zero-fill count
// maps. Set once at startup.
var reactionTypes = models.DefaultReactionTypes()

// SetReactionTypes installs the configured reaction vocabulary.
func SetReactionTypes(types []string) {
	if len(types) > 0 {
		reactionTypes = append([]string{}, types...)
	}
}

// itemLocks serializes read-modify-write cycles per item. Striped so that
// operations on different items proceed concurrently.
var itemLocks [64]sync.Mutex

func lockFor(itemID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(itemID))
	return &itemLocks[h.Sum32()%uint32(len(itemLocks))]
}

// Open opens (or creates) a Pebble database at the given path and keeps a
// global handle for simple usage in this package.
func Open(path string) error {
	var err error
	logger.Info("opening_pebble_db", "path", path)
	db, err = pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return err
	}
	dbPath = path
	logger.Info("pebble_opened", "path", path)
	return nil
}

// Close closes the opened pebble DB if present.
func Close() error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return err
	}
	db = nil
	logger.Info("pebble_closed")
	return nil
}

// Ready reports whether the store is opened and ready.
func Ready() bool {
	return db != nil
}

// Key layout:
//
//	post:<id>                                canonical post record
//	topic:<topic>:post:<inv_ts>-<seq>:<id>   feed index, newest first
//	reply:<parent>:<ts>-<seq>:<id>           reply index, oldest first
//	reaction:<item>:<user>                   reaction ledger row (raw type)
//	report:<item>:<user>                     report ledger row (JSON)
func postKey(id string) []byte { return []byte("post:" + id) }

func topicIndexKey(topic string, ts int64, s uint64, id string) []byte {
	// invert the timestamp so ascending iteration yields newest first
	return []byte(fmt.Sprintf("topic:%s:post:%020d-%06d:%s", topic, math.MaxInt64-ts, s, id))
}

func replyIndexKey(parent string, ts int64, s uint64, id string) []byte {
	return []byte(fmt.Sprintf("reply:%s:%020d-%06d:%s", parent, ts, s, id))
}

func reactionKey(item, user string) []byte { return []byte("reaction:" + item + ":" + user) }
func reportKey(item, user string) []byte   { return []byte("report:" + item + ":" + user) }

func nextSeq() uint64 { return atomic.AddUint64(&seq, 1) }

func nowNanos() int64 { return time.Now().UTC().UnixNano() }

// getPost loads the canonical post record for id. Returns ErrNotFound when
// the key is absent.
func getPost(id string) (*models.Post, error) {
	if db == nil {
		return nil, ErrNotOpen
	}
	v, closer, err := db.Get(postKey(id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer closer.Close()
	var p models.Post
	if err := json.Unmarshal(v, &p); err != nil {
		return nil, fmt.Errorf("invalid stored post %s: %w", id, err)
	}
	normalizeCounts(&p)
	return &p, nil
}

// putPost writes the canonical post record into the given batch.
func putPost(b *pebble.Batch, p *models.Post) error {
	normalizeCounts(p)
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal post: %w", err)
	}
	return b.Set(postKey(p.ID), data, nil)
}

// normalizeCounts zero-fills every configured reaction type and clamps
// negatives so downstream arithmetic never sees an absent or sub-zero value.
func normalizeCounts(p *models.Post) {
	if p.Reactions == nil {
		p.Reactions = map[string]int{}
	}
	for _, t := range reactionTypes {
		if _, ok := p.Reactions[t]; !ok {
			p.Reactions[t] = 0
		}
	}
	for t, n := range p.Reactions {
		if n < 0 {
			p.Reactions[t] = 0
		}
	}
	if p.ReportCount < 0 {
		p.ReportCount = 0
	}
}

// ListKeys returns all keys (as strings) that start with the given prefix.
// If prefix is empty it returns all keys in the DB. Used by the inspect
// tool and tests.
func ListKeys(prefix string) ([]string, error) {
	if db == nil {
		return nil, ErrNotOpen
	}
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []string
	pfx := []byte(prefix)
	if len(pfx) == 0 {
		for iter.First(); iter.Valid(); iter.Next() {
			out = append(out, string(append([]byte(nil), iter.Key()...)))
		}
		return out, iter.Error()
	}
	for iter.SeekGE(pfx); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), pfx) {
			break
		}
		out = append(out, string(append([]byte(nil), iter.Key()...)))
	}
	return out, iter.Error()
}

// GetKey returns the raw value for the given key.
func GetKey(key string) (string, error) {
	if db == nil {
		return "", ErrNotOpen
	}
	v, closer, err := db.Get([]byte(key))
	if err != nil {
		return "", err
	}
	defer closer.Close()
	return string(v), nil
}
