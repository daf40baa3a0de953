package common_test

import (
	"testing"

	"github.com/fileguard/integrity-services/blobstore"
	"github.com/fileguard/integrity-services/models/common"
	"github.com/fileguard/integrity-services/util/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContext(t *testing.T) {
	testutil.ConfigureTestEnv()
	context := common.NewContext()
	require.NotNil(t, context)

	assert.NotNil(t, context.Config)
	assert.Equal(t, "test", context.Config.ConfigName)
	assert.NotNil(t, context.Logger)
	assert.NotEmpty(t, context.LogFilePath)
	assert.NotNil(t, context.NSQClient)
	assert.Equal(t, context.Config.NsqURL, context.NSQClient.URL)
	assert.NotNil(t, context.RedisClient)
	assert.NotNil(t, context.S3Client)

	// The test config uses the filesystem backend.
	require.NotNil(t, context.Blobs)
	_, ok := context.Blobs.(*blobstore.FSStore)
	assert.True(t, ok)

	context.Logger.Info("context test can write to its logger")
}
