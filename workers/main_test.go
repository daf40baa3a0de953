package workers_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/fileguard/integrity-services/blobstore"
	"github.com/fileguard/integrity-services/constants"
	"github.com/fileguard/integrity-services/integrity"
	"github.com/fileguard/integrity-services/models/common"
	"github.com/fileguard/integrity-services/models/registry"
	"github.com/fileguard/integrity-services/network"
	"github.com/fileguard/integrity-services/util/testutil"
	"github.com/nsqio/go-nsq"
	"github.com/op/go-logging"
	"github.com/stretchr/testify/require"
)

var redisServer *testutil.RedisServer
var nsqServer *testutil.NSQServer

func TestMain(m *testing.M) {
	redisServer = testutil.NewRedisServer()
	nsqServer = testutil.NewNSQServer()
	exitCode := m.Run()
	nsqServer.Close()
	redisServer.Close()
	os.Exit(exitCode)
}

// getTestContext returns a context wired to the shared test servers
// with a fresh filesystem blob store. Param db selects the redis
// database. Tests that sweep the global verification schedule get
// their own database so they don't see each other's entries.
func getTestContext(t *testing.T, db int) (*common.Context, *blobstore.FSStore) {
	store, err := blobstore.NewFSStore(t.TempDir())
	require.Nil(t, err)
	testContext := &common.Context{
		Blobs: store,
		Config: &common.Config{
			MaxFileSize:          constants.DefaultMaxFileSize,
			MaxItemsPerRun:       100,
			QueueSweepInterval:   time.Minute,
			ReverifyIntervalDays: 90,
		},
		Logger:      logging.MustGetLogger("workers_test"),
		NSQClient:   network.NewNSQClient(nsqServer.HTTPAddr()),
		RedisClient: network.NewRedisClient(redisServer.Addr(), "", db),
	}
	return testContext, store
}

func uploadFile(t *testing.T, engine *integrity.Engine, ownerID, content string) *registry.FileRecord {
	record, err := engine.Upload(context.Background(), &integrity.UploadRequest{
		Body:        strings.NewReader(content),
		ContentType: "text/plain",
		Filename:    "sample.txt",
		OwnerID:     ownerID,
	})
	require.Nil(t, err)
	require.NotNil(t, record)
	return record
}

// messageDelegate stands in for go-nsq's connection-backed delegate
// so handler tests can observe finishes and requeues without a live
// consumer connection.
type messageDelegate struct {
	finished chan *nsq.Message
	requeued chan time.Duration
}

func (d *messageDelegate) OnFinish(message *nsq.Message) {
	d.finished <- message
}

func (d *messageDelegate) OnRequeue(message *nsq.Message, delay time.Duration, backoff bool) {
	d.requeued <- delay
}

func (d *messageDelegate) OnTouch(message *nsq.Message) {
}

// newTestMessage builds a deliverable NSQ message whose body is the
// given file identifier, with Attempts set to 1 as nsqd would on
// first delivery.
func newTestMessage(identifier string) (*nsq.Message, *messageDelegate) {
	var id nsq.MessageID
	copy(id[:], []byte("0123456789abcdef"))
	message := nsq.NewMessage(id, []byte(identifier))
	message.Attempts = 1
	delegate := &messageDelegate{
		finished: make(chan *nsq.Message, 1),
		requeued: make(chan time.Duration, 1),
	}
	message.Delegate = delegate
	return message, delegate
}

func waitForFinish(t *testing.T, delegate *messageDelegate) {
	t.Helper()
	select {
	case <-delegate.finished:
	case <-time.After(10 * time.Second):
		require.Fail(t, "timed out waiting for message to finish")
	}
}

func waitForRequeue(t *testing.T, delegate *messageDelegate) time.Duration {
	t.Helper()
	select {
	case delay := <-delegate.requeued:
		return delay
	case <-time.After(10 * time.Second):
		require.Fail(t, "timed out waiting for message to requeue")
	}
	return 0
}
