package registry

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fileguard/integrity-services/constants"
	"github.com/google/uuid"
)

// FileRecord describes one stored file. BaselineDigest is set once, at
// upload, and never changes for the life of the record. All digest
// comparisons measure the stored bytes against it.
type FileRecord struct {
	BaselineDigest    string    `json:"baseline_digest"`
	ContentType       string    `json:"content_type,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	DownloadCount     int64     `json:"download_count"`
	ID                string    `json:"id"`
	LastCheckedAt     time.Time `json:"last_checked_at,omitempty"`
	OriginalFilename  string    `json:"original_filename"`
	OwnerID           string    `json:"owner_id"`
	SizeBytes         int64     `json:"size_bytes"`
	StorageHandle     string    `json:"storage_handle"`
	UploadCount       int64     `json:"upload_count"`
	VerificationState string    `json:"verification_state"`
}

// NewFileRecord returns a record for a file whose bytes have just been
// committed to storage. The record starts in StateUnverified; the engine
// moves it to StateVerified when it appends the upload check.
func NewFileRecord(ownerID, filename, contentType string, size int64, handle, digest string) *FileRecord {
	return &FileRecord{
		BaselineDigest:    digest,
		ContentType:       contentType,
		CreatedAt:         time.Now().UTC(),
		ID:                uuid.New().String(),
		OriginalFilename:  filename,
		OwnerID:           ownerID,
		SizeBytes:         size,
		StorageHandle:     handle,
		UploadCount:       1,
		VerificationState: constants.StateUnverified,
	}
}

func FileRecordFromJSON(jsonData string) (*FileRecord, error) {
	record := &FileRecord{}
	err := json.Unmarshal([]byte(jsonData), record)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (f *FileRecord) ToJSON() (string, error) {
	bytes, err := json.Marshal(f)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// Identifier returns the owner-scoped identifier used in schedule entries
// and queue message bodies.
func (f *FileRecord) Identifier() string {
	return f.OwnerID + "/" + f.ID
}

// ParseIdentifier splits an identifier produced by Identifier back into
// owner and file ids. File ids are UUIDs and never contain a slash, so
// the split happens at the last one.
func ParseIdentifier(identifier string) (ownerID, fileID string, err error) {
	i := strings.LastIndex(identifier, "/")
	if i < 1 || i == len(identifier)-1 {
		return "", "", fmt.Errorf("'%s' is not a valid file identifier", identifier)
	}
	return identifier[:i], identifier[i+1:], nil
}

func (f *FileRecord) IsCorrupted() bool {
	return f.VerificationState == constants.StateCorrupted
}
