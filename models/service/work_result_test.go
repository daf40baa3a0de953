package service_test

import (
	"os"
	"testing"
	"time"

	"github.com/fileguard/integrity-services/constants"
	"github.com/fileguard/integrity-services/models/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWorkResult(t *testing.T) {
	hostname, _ := os.Hostname()
	result := service.NewWorkResult(constants.TopicVerification)
	assert.Equal(t, constants.TopicVerification, result.Operation)
	assert.Equal(t, hostname, result.Host)
	assert.Equal(t, os.Getpid(), result.Pid)
	assert.NotNil(t, result.Errors)
	assert.Equal(t, 0, len(result.Errors))
}

func TestWorkResultStartFinish(t *testing.T) {
	result := service.NewWorkResult(constants.TopicVerification)
	assert.False(t, result.Started())
	assert.False(t, result.Finished())
	assert.Equal(t, time.Duration(0), result.RunTime())

	result.Start()
	assert.True(t, result.Started())
	assert.False(t, result.Succeeded())

	result.Finish()
	assert.True(t, result.Finished())
	assert.True(t, result.Succeeded())
	assert.True(t, result.RunTime() >= 0)
}

func TestWorkResultAddError(t *testing.T) {
	result := service.NewWorkResult(constants.TopicVerification)
	result.AddError(service.NewProcessingError("owner-1/file-1", "redis timed out", false))
	assert.True(t, result.HasErrors())
	assert.False(t, result.HasFatalErrors())

	result.AddError(service.NewProcessingError("owner-1/file-1", "record is gone", true))
	assert.True(t, result.HasFatalErrors())
	assert.Equal(t, "record is gone", result.FatalErrorMessage())
	assert.Equal(t, "redis timed out", result.NonFatalErrorMessage())
	assert.Equal(t, 1, len(result.NonFatalErrors()))

	result.Finish()
	assert.False(t, result.Succeeded())

	result.ClearErrors()
	assert.False(t, result.HasErrors())
}

func TestWorkResultErrorCap(t *testing.T) {
	result := service.NewWorkResult(constants.TopicVerification)
	for i := 0; i < 50; i++ {
		result.AddError(service.NewProcessingError("owner-1/file-1", "same transient error", false))
	}
	assert.Equal(t, 30, len(result.Errors))

	// Fatal errors are recorded past the cap.
	result.AddError(service.NewProcessingError("owner-1/file-1", "fatal", true))
	assert.Equal(t, 31, len(result.Errors))
}

func TestWorkResultReset(t *testing.T) {
	result := service.NewWorkResult(constants.TopicVerification)
	result.Start()
	result.AddError(service.NewProcessingError("owner-1/file-1", "oops", false))
	result.Finish()

	result.Reset()
	assert.False(t, result.Started())
	assert.False(t, result.Finished())
	assert.False(t, result.HasErrors())
	assert.Equal(t, constants.TopicVerification, result.Operation)
}

func TestWorkResultJSON(t *testing.T) {
	result := service.NewWorkResult(constants.TopicVerification)
	result.Start()
	result.AddError(service.NewProcessingError("owner-1/file-1", "oops", false))
	result.Finish()

	jsonData, err := result.ToJSON()
	require.Nil(t, err)

	restored, err := service.WorkResultFromJSON(jsonData)
	require.Nil(t, err)
	assert.Equal(t, result.Operation, restored.Operation)
	assert.Equal(t, 1, len(restored.Errors))

	// The restored mutex must work.
	restored.AddError(service.NewProcessingError("owner-1/file-1", "again", false))
	assert.Equal(t, 2, len(restored.Errors))
}

func TestProcessingError(t *testing.T) {
	err := service.NewProcessingError("owner-1/file-1", "could not open blob", false)
	assert.Contains(t, err.Error(), "could not open blob")
	assert.Contains(t, err.Error(), "non-fatal")
	assert.Contains(t, err.Error(), "owner-1/file-1")
	assert.Contains(t, err.Source, "work_result_test.go")
}
