package registry

import (
	"encoding/json"
)

// CheckEvent is one item in the recent-checks feed: an IntegrityCheck plus
// the file context a dashboard needs to render it. Events are composed at
// read time from the stored record and check, never persisted themselves.
type CheckEvent struct {
	FileName string `json:"file_name"`
	IntegrityCheck
}

func NewCheckEvent(record *FileRecord, check *IntegrityCheck) *CheckEvent {
	return &CheckEvent{
		FileName:       record.OriginalFilename,
		IntegrityCheck: *check,
	}
}

func (e *CheckEvent) ToJSON() (string, error) {
	bytes, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}
