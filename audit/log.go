// Package audit is the append-only trail of integrity checks. Each
// file accumulates checks in order, newest first, and nothing ever
// rewrites or removes an entry short of deleting the whole file.
package audit

import (
	"fmt"
	"sort"

	"github.com/fileguard/integrity-services/constants"
	"github.com/fileguard/integrity-services/models/registry"
	"github.com/fileguard/integrity-services/network"
)

type Log struct {
	redisClient *network.RedisClient
}

func NewLog(redisClient *network.RedisClient) *Log {
	return &Log{
		redisClient: redisClient,
	}
}

// Append records one integrity check along with the file record
// whose state that check implies. The two land in a single
// transaction, so the record's verification state always agrees
// with the newest entry in the trail.
func (auditLog *Log) Append(record *registry.FileRecord, check *registry.IntegrityCheck) error {
	return auditLog.redisClient.FileRecordCommit(record, check)
}

// AppendDownload is Append for a finished download. It also bumps
// the file's download counter in the same transaction.
func (auditLog *Log) AppendDownload(record *registry.FileRecord, check *registry.IntegrityCheck) error {
	return auditLog.redisClient.DownloadCommit(record, check)
}

// History returns a file's checks, newest first. A limit of zero
// or less means the default of fifty. An unknown file yields an
// empty history, not an error. Telling "no checks yet" from "no
// such file" is the caller's job, via the file record.
func (auditLog *Log) History(fileID string, limit int64) ([]*registry.IntegrityCheck, error) {
	if limit <= 0 {
		limit = constants.DefaultHistoryLimit
	}
	return auditLog.redisClient.CheckHistory(fileID, limit)
}

// Recent returns the newest checks across all of an owner's files,
// each with the filename attached for display. An empty ownerID
// means all owners. Entries come back newest first. The feed is
// assembled from the per-file trails at read time, so deleting a
// file needs no feed cleanup.
func (auditLog *Log) Recent(ownerID string, limit int) ([]*registry.CheckEvent, error) {
	if limit <= 0 {
		limit = constants.RecentChecksLimit
	}
	ownerIDs := []string{ownerID}
	if ownerID == "" {
		var err error
		ownerIDs, err = auditLog.redisClient.OwnerIDs()
		if err != nil {
			return nil, err
		}
	}
	events := []*registry.CheckEvent{}
	for _, id := range ownerIDs {
		records, err := auditLog.redisClient.FileRecordList(id)
		if err != nil {
			return nil, err
		}
		for _, record := range records {
			// No single file can contribute more than limit
			// entries to a feed of that size.
			checks, err := auditLog.redisClient.CheckHistory(record.ID, int64(limit))
			if err != nil {
				return nil, fmt.Errorf("Recent (%s): %v", record.Identifier(), err)
			}
			for _, check := range checks {
				events = append(events, registry.NewCheckEvent(record, check))
			}
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].CheckedAt.Equal(events[j].CheckedAt) {
			return events[i].ID < events[j].ID
		}
		return events[i].CheckedAt.After(events[j].CheckedAt)
	})
	if len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}
