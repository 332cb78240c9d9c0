package store

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/cockroachdb/pebble"

	"campusboard/pkg/logger"
	"campusboard/pkg/models"
	"campusboard/pkg/telemetry"
)

// ReportResult is the outcome of filing a report: the item's report count
// after the filing and whether the item crossed the removal threshold.
type ReportResult struct {
	ReportCount int  `json:"report_count"`
	Threshold   int  `json:"threshold"`
	Removed     bool `json:"removed"`
}

// ReportPost files a report by user against item. Each user counts at most
// once per item; a duplicate filing fails with ErrAlreadyReported and does
// not change the count. When the count reaches threshold the item is
// soft-deleted in the same synced batch, so the flip happens exactly once
// even under concurrent filings.
func ReportPost(user, item string, threshold int) (*ReportResult, error) {
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

	if _, closer, err := db.Get(reportKey(item, user)); err == nil {
		closer.Close()
		return nil, ErrAlreadyReported
	} else if !errors.Is(err, pebble.ErrNotFound) {
		return nil, err
	}

	rec := models.ReportRecord{Item: item, User: user, TS: nowNanos()}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}

	p.ReportCount++
	removedNow := false
	if p.ReportCount >= threshold && !p.Removed {
		p.Removed = true
		p.RemovedTS = nowNanos()
		removedNow = true
	}

	b := db.NewBatch()
	defer b.Close()
	if err := b.Set(reportKey(item, user), data, nil); err != nil {
		return nil, err
	}
	if err := putPost(b, p); err != nil {
		return nil, err
	}
	if err := b.Commit(pebble.Sync); err != nil {
		logger.Error("report_commit_failed", "item", item, "user", user, "error", err)
		return nil, err
	}
	if removedNow {
		telemetry.PostsRemoved.Inc()
		logger.Warn("post_removed_by_reports", "item", item, "report_count", p.ReportCount, "threshold", threshold)
	} else {
		logger.Info("report_filed", "item", item, "report_count", p.ReportCount)
	}
	return &ReportResult{ReportCount: p.ReportCount, Threshold: threshold, Removed: p.Removed}, nil
}

// CountReports derives the report count for item from the ledger rows.
// Used by the inspect tool and integrity tests.
func CountReports(item string) (int, error) {
	if db == nil {
		return 0, ErrNotOpen
	}
	pfx := []byte("report:" + item + ":")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return 0, err
	}
	defer iter.Close()
	n := 0
	for iter.SeekGE(pfx); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), pfx) {
			break
		}
		n++
	}
	return n, iter.Error()
}
