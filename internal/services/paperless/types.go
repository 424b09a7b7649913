package paperless

import (
	"strings"
	"time"
)

// TaskState classifies a consumption task poll. NotFound is a valid signal
// (the upstream reaps finished tasks), not an error.
type TaskState string

const (
	TaskPending  TaskState = "pending"
	TaskSuccess  TaskState = "success"
	TaskFailure  TaskState = "failure"
	TaskNotFound TaskState = "not_found"
)

// TaskStatus is the typed result of a task lookup. DocumentID is zero until
// the upstream reports the consumed document.
type TaskStatus struct {
	State      TaskState
	DocumentID int64
}

// Document is the full upstream document record used by the readiness probe
// and the enrichment check. Tag, correspondent, and type references stay as
// upstream IDs; label resolution happens explicitly via the tags API.
type Document struct {
	ID               int64
	Title            string
	OriginalFileName string
	Content          string
	Created          time.Time
	Checksum         string
	Tags             []int64
	Correspondent    int64
	DocumentType     int64
}

// DocumentSummary is one row of a listing or search result.
type DocumentSummary struct {
	ID               int64
	Title            string
	OriginalFileName string
	Created          time.Time
}

// Tag is one Paperless tag.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// parseCreated accepts the timestamp formats Paperless emits for the created
// field. The zero time signals an unparseable or absent value.
func parseCreated(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed
		}
	}
	return time.Time{}
}
