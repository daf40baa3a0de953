// Package workers holds the background services that keep stored
// files honest: the queuer that sweeps the verification schedule
// and the checker that consumes its queue and re-verifies each
// file against its baseline digest.
package workers

import (
	"github.com/fileguard/integrity-services/models/common"
	"github.com/fileguard/integrity-services/models/service"
	"github.com/nsqio/go-nsq"
)

// Base contains the structures common to all queue-driven workers:
// a shared Context, the channel quartet that moves tasks from
// processing into success, error, or fatal-error handling, and the
// dedupe list that guards against NSQ redelivering a message we are
// still working on.
type Base struct {

	// Context contains info about the context in which the worker
	// is operating, including connections to NSQ, Redis, and blob
	// storage.
	Context *common.Context

	// ItemsInProcess keeps track of file identifiers the worker is
	// currently processing. We need to do this because NSQ does not
	// dedupe messages, so the worker must.
	ItemsInProcess *service.RingList

	// ProcessChannel is where the work actually happens: reading
	// the stored bytes and comparing their digest to the baseline.
	ProcessChannel chan *Task

	// SuccessChannel processes items that have gone through the
	// ProcessChannel with no errors.
	SuccessChannel chan *Task

	// ErrorChannel processes items that have gone through the
	// ProcessChannel with one or more non-fatal errors. These items
	// typically should be retried.
	ErrorChannel chan *Task

	// FatalErrorChannel processes items that have gone through the
	// ProcessChannel with one or more fatal errors. These items
	// should not be retried.
	FatalErrorChannel chan *Task

	// Settings contains the worker's NSQ topic and channel, its
	// concurrency, and its retry policy.
	Settings *Settings

	// NSQConsumer implements HandleMessage to receive messages
	// from NSQ.
	NSQConsumer *nsq.Consumer
}

// RegisterAsNsqConsumer registers handler as an NSQ consumer on
// Settings.NSQTopic and Settings.NSQChannel. Note that as soon as
// you call this, your worker will start handling messages if any
// are available.
func (b *Base) RegisterAsNsqConsumer(handler nsq.Handler) error {
	config := nsq.NewConfig()
	config.Set("heartbeat_interval", "10s")
	config.Set("max_in_flight", b.Settings.ChannelBufferSize)
	consumer, err := nsq.NewConsumer(b.Settings.NSQTopic, b.Settings.NSQChannel, config)
	if err != nil {
		return err
	}
	b.NSQConsumer = consumer
	b.NSQConsumer.AddHandler(handler)
	err = b.NSQConsumer.ConnectToNSQLookupd(b.Context.Config.NsqLookupd)
	if err != nil {
		return err
	}
	b.Context.Logger.Info("Registered as NSQ consumer")
	return nil
}

// Error creates a new ProcessingError for the named item.
func (b *Base) Error(identifier string, err error, isFatal bool) *service.ProcessingError {
	return service.NewProcessingError(
		identifier,
		err.Error(),
		isFatal,
	)
}

// AddToInProcessList adds a file identifier to this worker's
// ItemsInProcess list.
func (b *Base) AddToInProcessList(identifier string) {
	b.ItemsInProcess.Add(identifier)
}

// RemoveFromInProcessList removes a file identifier from this
// worker's ItemsInProcess list.
func (b *Base) RemoveFromInProcessList(identifier string) {
	b.ItemsInProcess.Del(identifier)
}

// FinishItem closes out the WorkResult, tells NSQ the message is
// done, and removes the item from the ItemsInProcess list.
func (b *Base) FinishItem(task *Task) {
	task.WorkResult.Finish()
	task.NSQFinish()
	b.RemoveFromInProcessList(task.Identifier)
}

// RequeueItem requeues the underlying NSQ message with the
// configured timeout. It also removes the item from the
// ItemsInProcess list, so the redelivery isn't skipped as a dupe.
func (b *Base) RequeueItem(task *Task) {
	task.WorkResult.Finish()
	task.NSQRequeue(b.Settings.RequeueTimeout)
	b.RemoveFromInProcessList(task.Identifier)
}
