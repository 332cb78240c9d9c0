package store

import (
	"github.com/cockroachdb/pebble"

	"campusboard/pkg/logger"
	"campusboard/pkg/models"
	"campusboard/pkg/utils"
)

// CreatePost persists a new top-level post and its topic index row. The
// caller is expected to have validated the body and topic already.
func CreatePost(author, topic, body string) (*models.Post, error) {
	if db == nil {
		return nil, ErrNotOpen
	}
	ts := nowNanos()
	s := nextSeq()
	p := &models.Post{
		ID:        utils.GenPostID(),
		Author:    author,
		Topic:     topic,
		Body:      body,
		CreatedTS: ts,
		Reactions: map[string]int{},
	}
	b := db.NewBatch()
	defer b.Close()
	if err := putPost(b, p); err != nil {
		return nil, err
	}
	if err := b.Set(topicIndexKey(topic, ts, s, p.ID), []byte(p.ID), nil); err != nil {
		return nil, err
	}
	if err := b.Commit(pebble.Sync); err != nil {
		logger.Error("create_post_commit_failed", "id", p.ID, "error", err)
		return nil, err
	}
	logger.Info("post_created", "id", p.ID, "topic", topic, "author", author)
	return p, nil
}

// CreateReply persists a reply under parentID. Replies are one level deep:
// replying to a reply fails with ErrReplyDepth. The reply inherits the
// parent's topic but is not listed in the topic feed index.
func CreateReply(author, parentID, body string) (*models.Post, error) {
	if db == nil {
		return nil, ErrNotOpen
	}
	mu := lockFor(parentID)
	mu.Lock()
	defer mu.Unlock()

	parent, err := getPost(parentID)
	if err != nil {
		return nil, err
	}
	if parent.Removed {
		return nil, ErrRemoved
	}
	if parent.IsReply() {
		return nil, ErrReplyDepth
	}
	ts := nowNanos()
	s := nextSeq()
	p := &models.Post{
		ID:        utils.GenPostID(),
		Author:    author,
		Topic:     parent.Topic,
		Body:      body,
		CreatedTS: ts,
		ParentID:  parentID,
		Reactions: map[string]int{},
	}
	b := db.NewBatch()
	defer b.Close()
	if err := putPost(b, p); err != nil {
		return nil, err
	}
	if err := b.Set(replyIndexKey(parentID, ts, s, p.ID), []byte(p.ID), nil); err != nil {
		return nil, err
	}
	if err := b.Commit(pebble.Sync); err != nil {
		logger.Error("create_reply_commit_failed", "id", p.ID, "parent", parentID, "error", err)
		return nil, err
	}
	logger.Info("reply_created", "id", p.ID, "parent", parentID, "author", author)
	return p, nil
}

// GetPost returns the post with the given id, including removed posts.
// Callers that must not see removed content check the Removed flag.
func GetPost(id string) (*models.Post, error) {
	return getPost(id)
}
