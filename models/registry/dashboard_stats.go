package registry

import (
	"encoding/json"
)

// DashboardStats is the read-only summary projection for one owner.
type DashboardStats struct {
	CorruptedCount int64         `json:"corrupted_count"`
	RecentChecks   []*CheckEvent `json:"recent_checks"`
	TotalDownloads int64         `json:"total_downloads"`
	TotalFiles     int64         `json:"total_files"`
	TotalSizeBytes int64         `json:"total_size_bytes"`
	VerifiedCount  int64         `json:"verified_count"`
}

func (s *DashboardStats) ToJSON() (string, error) {
	bytes, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}
