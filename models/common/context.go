package common

import (
	"strings"

	"github.com/fileguard/integrity-services/blobstore"
	"github.com/fileguard/integrity-services/constants"
	"github.com/fileguard/integrity-services/network"
	"github.com/fileguard/integrity-services/util/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/op/go-logging"
)

// Context holds the config plus the client connections every
// service needs. Build one at startup and pass it down.
type Context struct {
	Blobs       blobstore.Store
	Config      *Config
	LogFilePath string
	Logger      *logging.Logger
	NSQClient   *network.NSQClient
	RedisClient *network.RedisClient
	S3Client    *minio.Client
}

// NewContext creates a new context based on the current config,
// which in turn comes from the environment. It panics on a bad
// config or an unreachable S3 host, since no service can do
// meaningful work from there.
func NewContext() *Context {
	config := NewConfig()
	_logger, logFilePath := logger.InitLogger(config.LogDir, config.LogLevel)
	s3Client := getS3Client(config)
	return &Context{
		Blobs:       getBlobStore(config, s3Client),
		Config:      config,
		LogFilePath: logFilePath,
		Logger:      _logger,
		NSQClient:   network.NewNSQClient(config.NsqURL),
		RedisClient: network.NewRedisClient(config.RedisURL, config.RedisPassword, config.RedisDefaultDB),
		S3Client:    s3Client,
	}
}

func getS3Client(config *Config) *minio.Client {
	host := config.S3Credentials.Host
	useSSL := true
	if strings.Contains(host, "localhost") || strings.Contains(host, "127.0.0.1") {
		useSSL = false
	}
	client, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(config.S3Credentials.KeyID, config.S3Credentials.SecretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		panic(err)
	}
	return client
}

func getBlobStore(config *Config, s3Client *minio.Client) blobstore.Store {
	if config.StorageBackend == constants.BackendS3 {
		return blobstore.NewS3Store(s3Client, config.StorageBucket)
	}
	store, err := blobstore.NewFSStore(config.StorageDir)
	if err != nil {
		panic(err)
	}
	return store
}
