package testutil

import (
	"io"
	"log"
	"os"

	"github.com/fileguard/integrity-services/util"
	"github.com/nsqio/nsq/nsqd"
)

// NSQServer runs an embedded nsqd on ephemeral ports so worker tests can
// publish and consume for real without an external daemon.
type NSQServer struct {
	daemon  *nsqd.NSQD
	dataDir string
}

func NewNSQServer() *NSQServer {
	dataDir, err := os.MkdirTemp("", "fileguard-nsqd")
	if err != nil {
		panic(err)
	}
	opts := nsqd.NewOptions()
	opts.TCPAddress = "127.0.0.1:0"
	opts.HTTPAddress = "127.0.0.1:0"
	opts.DataPath = dataDir
	opts.Logger = log.New(io.Discard, "", 0)
	daemon, err := nsqd.New(opts)
	if err != nil {
		panic(err)
	}
	go func() {
		if err := daemon.Main(); err != nil {
			panic(err)
		}
	}()
	return &NSQServer{
		daemon:  daemon,
		dataDir: dataDir,
	}
}

// TCPAddr is the address for go-nsq consumers and producers.
func (s *NSQServer) TCPAddr() string {
	return s.daemon.RealTCPAddr().String()
}

// HTTPAddr is the address for the HTTP publish endpoint.
func (s *NSQServer) HTTPAddr() string {
	return "http://" + s.daemon.RealHTTPAddr().String()
}

func (s *NSQServer) Close() {
	s.daemon.Exit()
	if util.LooksSafeToDelete(s.dataDir, 12, 2) {
		os.RemoveAll(s.dataDir)
	}
}
