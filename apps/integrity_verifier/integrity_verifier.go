package main

import (
	"fmt"
	"os"

	"github.com/fileguard/integrity-services/models/common"
	"github.com/fileguard/integrity-services/util/cli"
	"github.com/fileguard/integrity-services/workers"
)

func main() {
	cli.Init()
	opts := cli.ParseOpts()
	if opts.PrintHelp {
		printHelp()
		cli.PrintDefaults()
		os.Exit(0)
	}

	worker := workers.NewVerificationChecker(
		common.NewContext(),
		opts.ChannelBufferSize,
		opts.NumWorkers,
		opts.MaxAttempts,
	)

	// If anything goes wrong, this panics.
	// Otherwise, it starts handling NSQ messages immediately.
	err := worker.RegisterAsNsqConsumer()
	if err != nil {
		panic(fmt.Sprintf("Cannot register NSQ consumer: %v", err))
	}

	// This channel blocks until we get an interrupt,
	// so our program does not exit without Control-C
	// or other kill signal.
	<-worker.NSQConsumer.StopChan
}

func printHelp() {
	message := `
integrity_verifier runs as a service to re-verify files in blob storage.
It reads file identifiers from the NSQ verification queue, recomputes the
SHA-256 digest of each file's stored bytes, compares it to the baseline
digest recorded at upload, and appends the outcome to the file's audit
trail. Files whose digests no longer match are marked corrupted.
`
	fmt.Println(message)
	fmt.Println(cli.EnvMessage)
}
