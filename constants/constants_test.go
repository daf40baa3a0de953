package constants_test

import (
	"testing"

	"github.com/fileguard/integrity-services/constants"
	"github.com/stretchr/testify/assert"
)

func TestCheckTypes(t *testing.T) {
	assert.Equal(t, 3, len(constants.CheckTypes))
	assert.Contains(t, constants.CheckTypes, constants.CheckTypeUpload)
	assert.Contains(t, constants.CheckTypes, constants.CheckTypeDownload)
	assert.Contains(t, constants.CheckTypes, constants.CheckTypeManual)
}

func TestVerificationStates(t *testing.T) {
	assert.Equal(t, 3, len(constants.VerificationStates))
	assert.Contains(t, constants.VerificationStates, constants.StateUnverified)
	assert.Contains(t, constants.VerificationStates, constants.StateVerified)
	assert.Contains(t, constants.VerificationStates, constants.StateCorrupted)
}

func TestDefaults(t *testing.T) {
	assert.Equal(t, int64(10485760), constants.DefaultMaxFileSize)
	assert.Equal(t, 50, constants.DefaultHistoryLimit)
	assert.Equal(t, 10, constants.RecentChecksLimit)
}
