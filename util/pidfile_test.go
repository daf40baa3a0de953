package util_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fileguard/integrity-services/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pidFilePath(t *testing.T) string {
	// DeletePidFile refuses short paths, so keep the name long enough.
	return filepath.Join(t.TempDir(), "verification_queuer.pid")
}

func TestWriteAndReadPidFile(t *testing.T) {
	pathToFile := pidFilePath(t)
	require.Nil(t, util.WritePidFile(pathToFile))
	assert.Equal(t, os.Getpid(), util.ReadPidFile(pathToFile))
}

func TestIsRunningInOtherProcess(t *testing.T) {
	pathToFile := pidFilePath(t)

	// No pid file at all
	assert.False(t, util.IsRunningInOtherProcess(pathToFile))

	// Our own pid doesn't count as another process.
	require.Nil(t, util.WritePidFile(pathToFile))
	assert.False(t, util.IsRunningInOtherProcess(pathToFile))

	// Garbage content reads as pid 0.
	require.Nil(t, os.WriteFile(pathToFile, []byte("not-a-pid"), 0664))
	assert.False(t, util.IsRunningInOtherProcess(pathToFile))
}

func TestDeletePidFile(t *testing.T) {
	pathToFile := pidFilePath(t)
	require.Nil(t, util.WritePidFile(pathToFile))
	require.Nil(t, util.DeletePidFile(pathToFile))
	assert.False(t, util.FileExists(pathToFile))

	err := util.DeletePidFile("/short")
	assert.NotNil(t, err)
}

func TestAgeOfPidFile(t *testing.T) {
	pathToFile := pidFilePath(t)
	require.Nil(t, util.WritePidFile(pathToFile))
	age, err := util.AgeOfPidFile(pathToFile)
	require.Nil(t, err)
	assert.True(t, age >= 0)

	_, err = util.AgeOfPidFile(filepath.Join(t.TempDir(), "missing.pid"))
	assert.NotNil(t, err)
}

func TestProcessIsRunning(t *testing.T) {
	assert.True(t, util.ProcessIsRunning(os.Getpid()))
}
