package workers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fileguard/integrity-services/constants"
	"github.com/fileguard/integrity-services/integrity"
	"github.com/fileguard/integrity-services/models/common"
	"github.com/fileguard/integrity-services/models/registry"
	"github.com/fileguard/integrity-services/models/service"
	"github.com/nsqio/go-nsq"
)

// VerificationChecker is a worker that re-verifies stored files
// against their baseline digests. It consumes the verification
// topic, where each message body is an owner-scoped file
// identifier pushed by the VerificationQueuer.
type VerificationChecker struct {
	Base
	engine *integrity.Engine
}

// NewVerificationChecker creates a new VerificationChecker worker.
// Param context is a Context object with connections to Redis, NSQ,
// and blob storage. The returned worker has its processing
// goroutines running but is not yet consuming from NSQ. Call
// RegisterAsNsqConsumer to start the flow of messages.
func NewVerificationChecker(context *common.Context, bufSize, numWorkers, maxAttempts int) *VerificationChecker {
	settings := &Settings{
		ChannelBufferSize: bufSize,
		MaxAttempts:       maxAttempts,
		NSQChannel:        constants.TopicVerification + "_worker_chan",
		NSQTopic:          constants.TopicVerification,
		NumberOfWorkers:   numWorkers,
		RequeueTimeout:    (20 * time.Second),
	}
	checker := &VerificationChecker{
		Base: Base{
			Context:           context,
			Settings:          settings,
			ItemsInProcess:    service.NewRingList(settings.ChannelBufferSize),
			ProcessChannel:    make(chan *Task, settings.ChannelBufferSize),
			SuccessChannel:    make(chan *Task, settings.ChannelBufferSize),
			ErrorChannel:      make(chan *Task, settings.ChannelBufferSize),
			FatalErrorChannel: make(chan *Task, settings.ChannelBufferSize),
		},
		engine: integrity.NewEngine(context),
	}

	checker.Context.Logger.Info("Verification worker started with the following settings:")
	checker.Context.Logger.Info(settings.ToJSON())

	// Spin up the go routines that will act as workers
	for i := 0; i < settings.NumberOfWorkers; i++ {
		checker.Context.Logger.Infof("Starting worker #%d", i+1)
		go checker.ProcessItem()
	}
	go checker.ProcessErrorChannel()
	go checker.ProcessFatalErrorChannel()
	go checker.ProcessSuccessChannel()

	return checker
}

// RegisterAsNsqConsumer connects this worker to NSQ. Messages start
// flowing as soon as it returns.
func (c *VerificationChecker) RegisterAsNsqConsumer() error {
	return c.Base.RegisterAsNsqConsumer(c)
}

// HandleMessage fulfills the nsq.Handler interface. The message body
// is an owner-scoped file identifier, "ownerID/fileID". A body that
// doesn't parse is logged and discarded, because requeueing it can
// never help.
func (c *VerificationChecker) HandleMessage(message *nsq.Message) error {
	identifier := strings.TrimSpace(string(message.Body))
	ownerID, fileID, err := registry.ParseIdentifier(identifier)
	if err != nil {
		c.Context.Logger.Errorf("Discarding message: %v", err)
		return nil
	}

	if c.ItemsInProcess.Contains(identifier) {
		// The first copy of this message is still in one of our
		// channels. Finish this one and let the first run its course.
		c.Context.Logger.Infof("Skipping %s: this worker is already working on it", identifier)
		return nil
	}

	workResult := service.NewWorkResult(c.Settings.NSQTopic)
	workResult.Attempt = int(message.Attempts)
	workResult.Start()
	task := &Task{
		FileID:     fileID,
		Identifier: identifier,
		NSQMessage: message,
		OwnerID:    ownerID,
		WorkResult: workResult,
	}

	// Make a note that we're processing this, and tell NSQ we'll
	// be touching the message until we finish or requeue it.
	c.AddToInProcessList(identifier)
	task.NSQStart()

	c.Context.Logger.Infof("Starting %s", identifier)
	c.ProcessChannel <- task

	// Return nil (no error) so NSQ knows we're working on this.
	return nil
}

// ProcessItem pulls tasks off the ProcessChannel, runs the actual
// verification, and then routes each task to the SuccessChannel,
// the ErrorChannel, or the FatalErrorChannel, depending on the
// outcome.
func (c *VerificationChecker) ProcessItem() {
	for task := range c.ProcessChannel {
		c.processItem(task)
		if task.WorkResult.HasFatalErrors() {
			c.FatalErrorChannel <- task
		} else if task.WorkResult.HasErrors() {
			c.ErrorChannel <- task
		} else {
			c.SuccessChannel <- task
		}
	}
}

// processItem runs one scheduled verification. A digest mismatch is
// not an error here: the check lands in the audit trail with
// is_valid=false and the task still counts as a success, because
// retrying cannot fix the bytes.
func (c *VerificationChecker) processItem(task *Task) {
	check, err := c.engine.Verify(context.Background(), task.OwnerID,
		task.FileID, constants.CheckSourceScheduled, registry.ClientInfo{})
	if err != nil {
		task.WorkResult.AddError(c.Error(task.Identifier, err, fatalError(err)))
		return
	}
	task.Check = check
}

func (c *VerificationChecker) ProcessSuccessChannel() {
	for task := range c.SuccessChannel {
		c.Context.Logger.Infof("File %s is in success channel", task.Identifier)
		if task.Check != nil && !task.Check.IsValid {
			c.Context.Logger.Warningf("Recorded corruption of file %s; owner must be notified", task.Identifier)
		}
		c.FinishItem(task)
	}
}

func (c *VerificationChecker) ProcessErrorChannel() {
	for task := range c.ErrorChannel {
		shouldRequeue := true
		c.Context.Logger.Warningf("File %s is in error channel", task.Identifier)
		c.Context.Logger.Warningf("Non-fatal errors for file %s: %s",
			task.Identifier, task.WorkResult.NonFatalErrorMessage())
		if task.WorkResult.Attempt >= c.Settings.MaxAttempts {
			c.Context.Logger.Errorf("Giving up on file %s after %d attempts",
				task.Identifier, task.WorkResult.Attempt)
			shouldRequeue = false
		}
		if shouldRequeue {
			c.RequeueItem(task)
		} else {
			c.FinishItem(task)
		}
	}
}

func (c *VerificationChecker) ProcessFatalErrorChannel() {
	for task := range c.FatalErrorChannel {
		c.Context.Logger.Errorf("File %s is in fatal error channel", task.Identifier)
		c.Context.Logger.Errorf("Fatal errors for file %s: %s",
			task.Identifier, task.WorkResult.FatalErrorMessage())
		c.FinishItem(task)
	}
}

// fatalError says whether retrying the same message could ever
// succeed. A record that's gone or bytes missing from storage look
// exactly the same on every future attempt. Redis and blob store
// hiccups don't.
func fatalError(err error) bool {
	return errors.Is(err, integrity.ErrNotFound) ||
		errors.Is(err, integrity.ErrStorageCorruption) ||
		errors.Is(err, integrity.ErrUnauthorized)
}
