package workers

import (
	"time"

	"github.com/fileguard/integrity-services/constants"
	"github.com/fileguard/integrity-services/models/common"
	"github.com/fileguard/integrity-services/models/registry"
)

// VerificationQueuer finds files whose last integrity check is
// older than the reverification interval and pushes their
// identifiers into the verification topic, where the
// VerificationChecker picks them up.
type VerificationQueuer struct {
	Context    *common.Context
	Identifier string
}

// NewVerificationQueuer creates a new worker to push files needing
// verification into NSQ.
//
// The optional param identifier is an owner-scoped file identifier,
// "ownerID/fileID". If provided, only that file will be queued.
// This is useful for manual testing and spot checks.
//
// This relies on these config settings:
//
// ReverifyIntervalDays specifies the number of days between
// scheduled checks. Any file that hasn't been checked in this many
// days is eligible to be queued.
//
// QueueSweepInterval specifies how often this should check
// for new files to queue.
//
// MaxItemsPerRun specifies the maximum number of items to queue
// per run. It can be raised when there's bandwidth to clear out
// backlogs.
func NewVerificationQueuer(context *common.Context, identifier string) *VerificationQueuer {
	return &VerificationQueuer{
		Context:    context,
		Identifier: identifier,
	}
}

func (q *VerificationQueuer) logStartup() {
	q.Context.Logger.Infof("Queuing files not checked in %d days, max %d per run",
		q.Context.Config.ReverifyIntervalDays, q.Context.Config.MaxItemsPerRun)
	q.Context.Logger.Infof("Sweep interval: %s",
		q.Context.Config.QueueSweepInterval.String())
}

// RunOnce does a single sweep of the verification schedule and
// returns.
func (q *VerificationQueuer) RunOnce() {
	q.logStartup()
	q.run()
}

// RunAsService sweeps the verification schedule forever, pausing
// QueueSweepInterval between sweeps.
func (q *VerificationQueuer) RunAsService() {
	q.logStartup()
	for {
		q.run()
		time.Sleep(q.Context.Config.QueueSweepInterval)
	}
}

// run queues whatever is due for verification and adds the
// Identifier of each file to the NSQ verification topic.
func (q *VerificationQueuer) run() {
	if q.Identifier != "" {
		q.queueOne()
	} else {
		q.queueList()
	}
}

// queueList reads the low end of the verification schedule, which
// holds files in order of last check, oldest first. Files checked
// more recently than the reverification threshold never enter the
// queue at all.
func (q *VerificationQueuer) queueList() {
	threshold := q.Context.Config.ReverifyThreshold()
	identifiers, err := q.Context.RedisClient.ScheduleDue(threshold,
		int64(q.Context.Config.MaxItemsPerRun))
	if err != nil {
		q.Context.Logger.Errorf("Error reading verification schedule: %v", err)
		return
	}

	q.Context.Logger.Infof("Queuing %d files not checked since %s to topic %s",
		len(identifiers), threshold.Format(time.RFC3339), constants.TopicVerification)

	itemsAdded := 0
	for _, identifier := range identifiers {
		if q.addToNSQ(identifier) {
			itemsAdded += 1
		}
	}
	q.Context.Logger.Infof("Queued %d files", itemsAdded)
}

// queueOne queues a single file, confirming first that its record
// exists so a typo'd identifier shows up here in the log instead
// of failing quietly in the checker.
func (q *VerificationQueuer) queueOne() {
	ownerID, fileID, err := registry.ParseIdentifier(q.Identifier)
	if err != nil {
		q.Context.Logger.Errorf("Cannot queue '%s': %v", q.Identifier, err)
		return
	}
	_, err = q.Context.RedisClient.FileRecordGet(ownerID, fileID)
	if err != nil {
		q.Context.Logger.Errorf("Cannot queue '%s': %v", q.Identifier, err)
		return
	}
	q.addToNSQ(q.Identifier)
}

func (q *VerificationQueuer) addToNSQ(identifier string) bool {
	err := q.Context.NSQClient.Enqueue(constants.TopicVerification, identifier)
	if err != nil {
		q.Context.Logger.Errorf("Error sending '%s' to %s: %v", identifier, constants.TopicVerification, err)
		return false
	}
	q.Context.Logger.Infof("Added '%s' to %s", identifier, constants.TopicVerification)
	return true
}
