package common

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fileguard/integrity-services/constants"
	"github.com/fileguard/integrity-services/util"
	"github.com/op/go-logging"
	"github.com/spf13/viper"
)

var logLevels = map[string]logging.Level{
	"CRITICAL": logging.CRITICAL,
	"ERROR":    logging.ERROR,
	"WARNING":  logging.WARNING,
	"NOTICE":   logging.NOTICE,
	"INFO":     logging.INFO,
	"DEBUG":    logging.DEBUG,
}

// S3Credentials are connection settings for the blob bucket's
// S3-compatible host. In dev and test, this is a local fake.
type S3Credentials struct {
	Host      string
	KeyID     string
	SecretKey string
}

type Config struct {
	BaseWorkingDir       string
	ConfigName           string
	LogDir               string
	LogLevel             logging.Level
	MaxFileSize          int64
	MaxItemsPerRun       int
	NsqLookupd           string
	NsqURL               string
	QueueSweepInterval   time.Duration
	RedisDefaultDB       int
	RedisPassword        string
	RedisURL             string
	ReverifyIntervalDays int
	S3Credentials        S3Credentials
	StorageBackend       string
	StorageBucket        string
	StorageDir           string
}

// NewConfig returns a new config based on the environment vars
// FILEGUARD_CONFIG_DIR and FILEGUARD_SERVICES_CONFIG. It panics
// if the settings file is missing or obviously wrong, because
// nothing can run without a sane config.
func NewConfig() *Config {
	config := loadConfig()
	config.expandFilePaths()
	config.sanityCheck()
	config.makeDirs()
	return config
}

func loadConfig() *Config {
	configDir, envName := getEnvVars()
	v := viper.New()
	v.AddConfigPath(configDir)
	v.SetConfigName(".env." + envName)
	v.SetConfigType("env")
	v.AutomaticEnv()
	err := v.ReadInConfig()
	if err != nil {
		panic(fmt.Sprintf("Fatal error reading config file: %v", err))
	}
	return &Config{
		BaseWorkingDir:       v.GetString("BASE_WORKING_DIR"),
		ConfigName:           envName,
		LogDir:               v.GetString("LOG_DIR"),
		LogLevel:             getLogLevel(v.GetString("LOG_LEVEL")),
		MaxFileSize:          v.GetInt64("MAX_FILE_SIZE"),
		MaxItemsPerRun:       v.GetInt("MAX_ITEMS_PER_RUN"),
		NsqLookupd:           v.GetString("NSQ_LOOKUPD"),
		NsqURL:               v.GetString("NSQ_URL"),
		QueueSweepInterval:   v.GetDuration("QUEUE_SWEEP_INTERVAL"),
		RedisDefaultDB:       v.GetInt("REDIS_DEFAULT_DB"),
		RedisPassword:        v.GetString("REDIS_PASSWORD"),
		RedisURL:             v.GetString("REDIS_URL"),
		ReverifyIntervalDays: v.GetInt("REVERIFY_INTERVAL_DAYS"),
		S3Credentials: S3Credentials{
			Host:      v.GetString("S3_HOST"),
			KeyID:     v.GetString("S3_KEY_ID"),
			SecretKey: v.GetString("S3_SECRET_KEY"),
		},
		StorageBackend: v.GetString("STORAGE_BACKEND"),
		StorageBucket:  v.GetString("STORAGE_BUCKET"),
		StorageDir:     v.GetString("STORAGE_DIR"),
	}
}

func getEnvVars() (string, string) {
	configDir := getRequiredEnvVar("FILEGUARD_CONFIG_DIR")
	envName := getRequiredEnvVar("FILEGUARD_SERVICES_CONFIG")
	return configDir, envName
}

func getRequiredEnvVar(varName string) string {
	value := os.Getenv(varName)
	if value == "" {
		panic(fmt.Sprintf("Required env var %s not set", varName))
	}
	return value
}

func getLogLevel(level string) logging.Level {
	if level == "" {
		level = "INFO"
	}
	return logLevels[strings.ToUpper(level)]
}

func (config *Config) expandFilePaths() {
	config.BaseWorkingDir = expandPath(config.BaseWorkingDir)
	config.LogDir = expandPath(config.LogDir)
	config.StorageDir = expandPath(config.StorageDir)
}

func expandPath(dirName string) string {
	dir, err := util.ExpandTilde(dirName)
	if err != nil {
		panic(err)
	}
	return dir
}

// The dev and test configs must point to local services only.
// This is what keeps a stray test run from scribbling on a
// production Redis or blob bucket.
func (config *Config) sanityCheck() {
	if config.ConfigName == "dev" || config.ConfigName == "test" {
		if !isLocalHost(config.RedisURL) {
			panic(fmt.Sprintf("Dev and test configs must use a local Redis. %s is not localhost.", config.RedisURL))
		}
		if !isLocalHost(config.NsqURL) {
			panic(fmt.Sprintf("Dev and test configs must use a local NSQ. %s is not localhost.", config.NsqURL))
		}
		if !isLocalHost(config.S3Credentials.Host) {
			panic(fmt.Sprintf("Dev and test configs must use a local S3 host. %s is not localhost.", config.S3Credentials.Host))
		}
	}
	if !util.StringListContains(constants.StorageBackends, config.StorageBackend) {
		panic(fmt.Sprintf("Unknown storage backend %s", config.StorageBackend))
	}
	if config.StorageBackend == constants.BackendFilesystem && config.StorageDir == "" {
		panic("STORAGE_DIR is required for the filesystem backend")
	}
	if config.StorageBackend == constants.BackendS3 && config.StorageBucket == "" {
		panic("STORAGE_BUCKET is required for the s3 backend")
	}
	if config.MaxFileSize < 1 {
		panic("MAX_FILE_SIZE must be greater than zero")
	}
}

func isLocalHost(host string) bool {
	return strings.Contains(host, "localhost") ||
		strings.Contains(host, "127.0.0.1")
}

func (config *Config) makeDirs() error {
	dirs := []string{
		config.BaseWorkingDir,
		config.LogDir,
	}
	if config.StorageBackend == constants.BackendFilesystem {
		dirs = append(dirs, config.StorageDir)
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		err := os.MkdirAll(dir, 0755)
		if err != nil {
			panic(err)
		}
	}
	return nil
}

// ReverifyThreshold returns the cutoff time for scheduled
// verification. Files whose last check is older than this are due
// for another pass.
func (config *Config) ReverifyThreshold() time.Time {
	return time.Now().UTC().AddDate(0, 0, -config.ReverifyIntervalDays)
}
