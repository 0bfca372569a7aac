package task

import (
	"time"

	"github.com/google/uuid"
)

// ReloadTask asks the engine to fetch, validate and publish the catalog again.
type ReloadTask struct {
	RequestID   string    `json:"request_id"`
	Source      string    `json:"source,omitempty"` // overrides catalog.source when set
	Force       bool      `json:"force,omitempty"`  // reload even if the digest is unchanged
	RequestedAt time.Time `json:"requested_at"`
}

func NewReloadTask(source string, force bool) *ReloadTask {
	return &ReloadTask{
		RequestID:   uuid.NewString(),
		Source:      source,
		Force:       force,
		RequestedAt: time.Now().UTC(),
	}
}

func (t *ReloadTask) TaskType() string {
	return TypeReload
}

func (t *ReloadTask) TaskValue() ([]byte, error) {
	return DefaultTaskValue(t)
}
