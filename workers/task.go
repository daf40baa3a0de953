package workers

import (
	"time"

	"github.com/fileguard/integrity-services/models/registry"
	"github.com/fileguard/integrity-services/models/service"
	"github.com/nsqio/go-nsq"
)

// Task encapsulates everything that a worker needs to pass from one
// channel to the next while verifying a single file.
type Task struct {

	// Check is the outcome of the verification. It is set only when
	// processing completed without error; the check itself may still
	// say the file is corrupt.
	Check *registry.IntegrityCheck

	// FileID is the id of the file being verified.
	FileID string

	// Identifier is the owner-scoped identifier from the queue
	// message, "ownerID/fileID".
	Identifier string

	// NSQMessage is the NSQ message the worker is processing.
	NSQMessage *nsq.Message

	// OwnerID is the id of the file's owner.
	OwnerID string

	// WorkResult describes the result of this worker's work.
	WorkResult *service.WorkResult

	nsqStopChannel chan bool

	// For testing
	nsqStartCalled bool

	// For testing
	tickerStopped bool
}

// NSQStart creates a timer that touches the NSQ message every two
// minutes while the file is in process. We need this because
// hashing a very large file cannot pause to touch the NSQ message
// before it times out.
func (item *Task) NSQStart() {
	item.NSQMessage.DisableAutoResponse()
	interval := time.Duration(2) * time.Minute
	ticker := time.NewTicker(interval)
	stopChannel := make(chan bool)
	go func() {
		for {
			select {
			case <-ticker.C:
				item.NSQMessage.Touch()
			case <-stopChannel:
				ticker.Stop()
				item.tickerStopped = true
				return
			}
		}
	}()
	item.nsqStartCalled = true
	item.nsqStopChannel = stopChannel
}

// NSQRequeue requeues the message with the specified duration
// and stops sending touches.
func (item *Task) NSQRequeue(delay time.Duration) {
	item.nsqStopChannel <- true
	item.NSQMessage.Requeue(delay)
}

// NSQFinish finishes the message and stops sending touches.
func (item *Task) NSQFinish() {
	item.nsqStopChannel <- true
	item.NSQMessage.Finish()
}

// StartCalled returns true if NSQStart() has been called on this object.
// This method exists for testing purposes.
func (item *Task) StartCalled() bool {
	return item.nsqStartCalled
}

// TickerStopped returns true if either NSQFinish() or NSQRequeue()
// has been called. This method exists for testing purposes.
func (item *Task) TickerStopped() bool {
	return item.tickerStopped
}
