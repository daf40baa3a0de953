package registry_test

import (
	"encoding/json"
	"testing"

	"github.com/fileguard/integrity-services/constants"
	"github.com/fileguard/integrity-services/models/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCheckEvent(t *testing.T) {
	event := registry.NewCheckEvent(fileRecord, manualCheck)
	assert.Equal(t, "report.txt", event.FileName)
	assert.Equal(t, manualCheck.ID, event.ID)
	assert.Equal(t, manualCheck.CheckType, event.CheckType)
	assert.Equal(t, manualCheck.ObservedDigest, event.ObservedDigest)
}

// The embedded check fields serialize inline beside file_name, so feed
// consumers see one flat object per event.
func TestCheckEventToJSON(t *testing.T) {
	event := registry.NewCheckEvent(fileRecord, manualCheck)
	jsonData, err := event.ToJSON()
	require.Nil(t, err)

	parsed := map[string]interface{}{}
	require.Nil(t, json.Unmarshal([]byte(jsonData), &parsed))
	assert.Equal(t, "report.txt", parsed["file_name"])
	assert.Equal(t, constants.CheckTypeManual, parsed["check_type"])
	assert.Equal(t, manualCheck.ObservedDigest, parsed["observed_digest"])
	assert.NotContains(t, parsed, "IntegrityCheck")
}

func TestDashboardStatsToJSON(t *testing.T) {
	stats := &registry.DashboardStats{
		CorruptedCount: 1,
		RecentChecks:   []*registry.CheckEvent{registry.NewCheckEvent(fileRecord, manualCheck)},
		TotalDownloads: 7,
		TotalFiles:     4,
		TotalSizeBytes: 9000,
		VerifiedCount:  3,
	}
	jsonData, err := stats.ToJSON()
	require.Nil(t, err)

	parsed := map[string]interface{}{}
	require.Nil(t, json.Unmarshal([]byte(jsonData), &parsed))
	assert.EqualValues(t, 4, parsed["total_files"])
	assert.EqualValues(t, 9000, parsed["total_size_bytes"])
	assert.Len(t, parsed["recent_checks"], 1)
}
