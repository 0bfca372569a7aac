package task

import (
	"time"

	"servicecatalog/engine/internal/pricing"

	"github.com/google/uuid"
)

// QuoteTask carries one selection to be priced against the published catalog. The
// result is stored under RequestID.
type QuoteTask struct {
	RequestID   string            `json:"request_id"`
	Selection   pricing.Selection `json:"selection"`
	RequestedAt time.Time         `json:"requested_at"`
}

func NewQuoteTask(sel pricing.Selection) *QuoteTask {
	return &QuoteTask{
		RequestID:   uuid.NewString(),
		Selection:   sel,
		RequestedAt: time.Now().UTC(),
	}
}

func (t *QuoteTask) TaskType() string {
	return TypeQuote
}

func (t *QuoteTask) TaskValue() ([]byte, error) {
	return DefaultTaskValue(t)
}
