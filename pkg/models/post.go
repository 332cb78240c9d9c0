package models

// Post is a content item: either a top-level post or a reply. Replies carry
// the parent's id in ParentID and never have replies of their own; the tree
// is exactly two levels deep and the write path enforces that.
type Post struct {
	ID     string `json:"id"`
	Author string `json:"author"`
	Topic  string `json:"topic"`
	Body   string `json:"body"`
	// Created timestamp (ns)
	CreatedTS int64 `json:"created_ts"`
	// ParentID references a top-level post; empty for top-level posts
	ParentID string `json:"parent_id,omitempty"`
	// Reactions maps reaction type -> count. Always carries every configured
	// type with an explicit zero; consumers never see a missing key.
	Reactions map[string]int `json:"reactions"`
	// ReportCount mirrors the number of report ledger rows for this item
	ReportCount int `json:"report_count"`
	// Removed marks a soft-deleted item; ledger rows are retained.
	Removed   bool  `json:"removed,omitempty"`
	RemovedTS int64 `json:"removed_ts,omitempty"`
}

// IsReply reports whether the post is a reply to a top-level post.
func (p *Post) IsReply() bool { return p.ParentID != "" }

// FeedPost is a top-level post with its replies attached, as returned by
// the feed.
type FeedPost struct {
	Post
	Replies []Post `json:"replies"`
}
