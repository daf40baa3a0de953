package registry

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fileguard/integrity-services/constants"
	"github.com/google/uuid"
)

// ClientInfo identifies the remote caller on API-initiated checks. Both
// fields are empty for checks run by the scheduled verifier.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// UploadCheck holds the fields specific to check_type "upload".
type UploadCheck struct {
	ContentType string `json:"content_type,omitempty"`
	SizeBytes   int64  `json:"size_bytes"`
}

// DownloadCheck holds the fields specific to check_type "download".
// BytesServed is the number of bytes the caller actually consumed, which
// equals the record size on every complete download.
type DownloadCheck struct {
	BytesServed int64 `json:"bytes_served"`
}

// ManualCheck holds the fields specific to check_type "manual". Source is
// CheckSourceUser for API-requested verifies and CheckSourceScheduled for
// verifies driven by the background worker.
type ManualCheck struct {
	Source string `json:"source"`
}

// IntegrityCheck records one digest comparison and its outcome. Entries are
// append-only: once written they are never mutated, and they disappear only
// when the owning file is deleted. Exactly one of Upload, Download or Manual
// is non-nil, matching CheckType, so consumers can switch on the type and
// read the corresponding detail struct.
type IntegrityCheck struct {
	CheckType      string         `json:"check_type"`
	CheckedAt      time.Time      `json:"checked_at"`
	Download       *DownloadCheck `json:"download,omitempty"`
	FileID         string         `json:"file_id"`
	ID             string         `json:"id"`
	IPAddress      string         `json:"ip_address,omitempty"`
	IsValid        bool           `json:"is_valid"`
	Manual         *ManualCheck   `json:"manual,omitempty"`
	ObservedDigest string         `json:"observed_digest"`
	Upload         *UploadCheck   `json:"upload,omitempty"`
	UserAgent      string         `json:"user_agent,omitempty"`
}

// NewUploadCheck returns the check recorded when a file is first stored.
// The observed digest is the baseline by definition, so IsValid is true.
func NewUploadCheck(fileID, digest string, size int64, contentType string) *IntegrityCheck {
	return &IntegrityCheck{
		CheckType:      constants.CheckTypeUpload,
		CheckedAt:      time.Now().UTC(),
		FileID:         fileID,
		ID:             uuid.New().String(),
		IsValid:        true,
		ObservedDigest: digest,
		Upload: &UploadCheck{
			ContentType: contentType,
			SizeBytes:   size,
		},
	}
}

func NewDownloadCheck(fileID, observedDigest string, isValid bool, bytesServed int64) *IntegrityCheck {
	return &IntegrityCheck{
		CheckType:      constants.CheckTypeDownload,
		CheckedAt:      time.Now().UTC(),
		FileID:         fileID,
		ID:             uuid.New().String(),
		IsValid:        isValid,
		ObservedDigest: observedDigest,
		Download: &DownloadCheck{
			BytesServed: bytesServed,
		},
	}
}

func NewManualCheck(fileID, observedDigest string, isValid bool, source string) *IntegrityCheck {
	return &IntegrityCheck{
		CheckType:      constants.CheckTypeManual,
		CheckedAt:      time.Now().UTC(),
		FileID:         fileID,
		ID:             uuid.New().String(),
		IsValid:        isValid,
		ObservedDigest: observedDigest,
		Manual: &ManualCheck{
			Source: source,
		},
	}
}

func IntegrityCheckFromJSON(jsonData string) (*IntegrityCheck, error) {
	check := &IntegrityCheck{}
	err := json.Unmarshal([]byte(jsonData), check)
	if err != nil {
		return nil, err
	}
	return check, nil
}

func (c *IntegrityCheck) ToJSON() (string, error) {
	bytes, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// SetClient stamps the remote caller onto the check.
func (c *IntegrityCheck) SetClient(client ClientInfo) {
	c.IPAddress = client.IPAddress
	c.UserAgent = client.UserAgent
}

// Summary returns a one-line description for logs.
func (c *IntegrityCheck) Summary() string {
	outcome := "valid"
	if !c.IsValid {
		outcome = "INVALID"
	}
	return fmt.Sprintf("%s check on file %s: %s (observed %s)",
		c.CheckType, c.FileID, outcome, c.ObservedDigest)
}
