package testutil

import (
	"fmt"
	"os"
	"time"

	"github.com/fileguard/integrity-services/constants"
	"github.com/fileguard/integrity-services/models/registry"
	"github.com/fileguard/integrity-services/util"
	"github.com/google/uuid"
)

// RefDate is a fixed timestamp for fixtures, so serialized forms are
// predictable.
var RefDate, _ = time.Parse(time.RFC3339, "2006-01-02T15:04:05Z")

// EmptySha256 is the digest of the empty byte sequence.
const EmptySha256 = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

// Sha256OfAbc is the digest of the three bytes "abc".
const Sha256OfAbc = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"

const OwnerID = "owner-0001"

// ConfigureTestEnv points config loading at the repo's .env.test. Call
// this before common.NewConfig() or common.NewContext() in tests.
func ConfigureTestEnv() {
	os.Setenv("FILEGUARD_CONFIG_DIR", util.ProjectRoot())
	os.Setenv("FILEGUARD_SERVICES_CONFIG", "test")
}

// GetFileRecord returns a verified record with fixed content fields and
// a fresh ID and handle.
func GetFileRecord(ownerID string) *registry.FileRecord {
	record := registry.NewFileRecord(
		ownerID,
		"vacation-photo.jpg",
		"image/jpeg",
		int64(5444),
		uuid.New().String(),
		Sha256OfAbc,
	)
	record.VerificationState = constants.StateVerified
	record.LastCheckedAt = RefDate
	return record
}

// GetUploadCheck returns the check an upload of the given record would
// produce.
func GetUploadCheck(record *registry.FileRecord) *registry.IntegrityCheck {
	return registry.NewUploadCheck(
		record.ID,
		record.BaselineDigest,
		record.SizeBytes,
		record.ContentType,
	)
}

// GetManualCheck returns a user-requested manual check for the record,
// valid or not as specified.
func GetManualCheck(record *registry.FileRecord, isValid bool) *registry.IntegrityCheck {
	observed := record.BaselineDigest
	if !isValid {
		observed = EmptySha256
	}
	check := registry.NewManualCheck(record.ID, observed, isValid,
		constants.CheckSourceUser)
	check.SetClient(registry.ClientInfo{
		IPAddress: "192.0.2.10",
		UserAgent: fmt.Sprintf("testutil/%d", os.Getpid()),
	})
	return check
}
