package util

import (
	"github.com/google/uuid"
)

// StringListContains returns true if the list of strings contains item.
func StringListContains(list []string, item string) bool {
	if list != nil {
		for i := range list {
			if list[i] == item {
				return true
			}
		}
	}
	return false
}

// LooksLikeUUID returns true if s parses as a UUID. File ids and
// storage handles are UUIDs everywhere in this system.
func LooksLikeUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
