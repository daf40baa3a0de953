// Package stats builds the read-only dashboard summary. It scans
// the owner's file records and the tail of the audit trail and
// mutates nothing, so a summary may lag an in-flight verify by a
// moment. That is fine for a dashboard.
package stats

import (
	"fmt"

	"github.com/fileguard/integrity-services/audit"
	"github.com/fileguard/integrity-services/constants"
	"github.com/fileguard/integrity-services/models/registry"
	"github.com/fileguard/integrity-services/network"
)

type Aggregator struct {
	auditLog    *audit.Log
	redisClient *network.RedisClient
}

func NewAggregator(redisClient *network.RedisClient) *Aggregator {
	return &Aggregator{
		auditLog:    audit.NewLog(redisClient),
		redisClient: redisClient,
	}
}

// DashboardStats summarizes one owner's files: counts and sizes,
// how many are currently verified or corrupted, total completed
// downloads, and the ten most recent checks across all files. A
// file awaiting its first comparison counts in neither the verified
// nor the corrupted column.
func (agg *Aggregator) DashboardStats(ownerID string) (*registry.DashboardStats, error) {
	records, err := agg.redisClient.FileRecordList(ownerID)
	if err != nil {
		return nil, fmt.Errorf("DashboardStats (%s): %v", ownerID, err)
	}
	dashboardStats := &registry.DashboardStats{
		RecentChecks: []*registry.CheckEvent{},
	}
	for _, record := range records {
		dashboardStats.TotalFiles++
		dashboardStats.TotalSizeBytes += record.SizeBytes
		dashboardStats.TotalDownloads += record.DownloadCount
		switch record.VerificationState {
		case constants.StateVerified:
			dashboardStats.VerifiedCount++
		case constants.StateCorrupted:
			dashboardStats.CorruptedCount++
		}
	}
	recentChecks, err := agg.auditLog.Recent(ownerID, constants.RecentChecksLimit)
	if err != nil {
		return nil, fmt.Errorf("DashboardStats (%s): %v", ownerID, err)
	}
	dashboardStats.RecentChecks = recentChecks
	return dashboardStats, nil
}
