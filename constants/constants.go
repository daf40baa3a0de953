package constants

const (
	BackendFilesystem    = "filesystem"
	BackendS3            = "s3"
	CheckSourceScheduled = "scheduled"
	CheckSourceUser      = "user"
	CheckTypeDownload    = "download"
	CheckTypeManual      = "manual"
	CheckTypeUpload      = "upload"
	StateCorrupted       = "corrupted"
	StateUnverified      = "unverified"
	StateVerified        = "verified"
	TopicVerification    = "file_verification"
)

// DefaultMaxFileSize is the upload size limit (10 MiB) applied when the
// config does not specify one.
const DefaultMaxFileSize = int64(10485760)

// DefaultHistoryLimit is the number of IntegrityCheck entries a history
// call returns unless the caller asks for more.
const DefaultHistoryLimit = 50

// RecentChecksLimit is the number of entries in the dashboard's recent
// checks feed.
const RecentChecksLimit = 10

var CheckTypes = []string{
	CheckTypeDownload,
	CheckTypeManual,
	CheckTypeUpload,
}

var CheckSources = []string{
	CheckSourceScheduled,
	CheckSourceUser,
}

var VerificationStates = []string{
	StateCorrupted,
	StateUnverified,
	StateVerified,
}

var StorageBackends = []string{
	BackendFilesystem,
	BackendS3,
}
