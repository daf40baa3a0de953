package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fileguard/integrity-services/models/common"
	"github.com/fileguard/integrity-services/util"
	"github.com/fileguard/integrity-services/util/cli"
	"github.com/fileguard/integrity-services/workers"
)

func main() {
	help := false
	runOnce := false
	flag.BoolVar(&help, "help", false, "Print help message")
	flag.BoolVar(&runOnce, "run-once", false, "Run once and exit (cron mode instead of server mode)")
	flag.Parse()

	if help {
		printHelp()
		os.Exit(0)
	}

	fileIdentifier := flag.Arg(0)
	if fileIdentifier != "" {
		runOnce = true
	}

	queuer := workers.NewVerificationQueuer(common.NewContext(), fileIdentifier)

	if runOnce {
		queuer.RunOnce()
	} else {
		guardPidFile(queuer)
		queuer.RunAsService()
	}
}

// guardPidFile keeps two copies of the service from sweeping the
// schedule at once, which would double-queue every due file.
func guardPidFile(queuer *workers.VerificationQueuer) {
	pidPath := filepath.Join(queuer.Context.Config.BaseWorkingDir, "verification_queuer.pid")
	if util.IsRunningInOtherProcess(pidPath) {
		fmt.Fprintf(os.Stderr, "verification_queuer is already running (see %s)\n", pidPath)
		os.Exit(1)
	}
	err := util.WritePidFile(pidPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cannot write pid file %s: %v\n", pidPath, err)
		os.Exit(1)
	}
}

func printHelp() {
	message := `
verification_queuer queues files for scheduled integrity verification.

When running as a service (i.e. without --run-once), this relies on the
config setting QUEUE_SWEEP_INTERVAL to determine how long to wait after
the end of one sweep before beginning the next. A pid file in
BASE_WORKING_DIR keeps a second service instance from starting while
one is already running.

Config setting MAX_ITEMS_PER_RUN determines the maximum number of items
to queue in a single sweep, and REVERIFY_INTERVAL_DAYS determines how
old a file's last check must be before the file is due again.

You can also run this as a one-off job with the --run-once flag.
It will perform one sweep and then exit.

You can also supply a command-line argument to queue a single file by
its owner-scoped identifier:

$ verification_queuer 'owner-0001/51b0cbb2-b262-4796-a0d4-94c9adddbbe1'

If you do specify a file identifier, this app will run in --run-once
mode, since it doesn't make sense to queue the same file every sweep.
`
	fmt.Println(message)
	fmt.Println(cli.EnvMessage)
}
