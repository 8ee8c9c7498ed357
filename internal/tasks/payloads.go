package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Task type constants shared by queue producers and consumers.
const (
	TypeCardPrint = "cards:print"
)

// CardPrintPayload carries the minimum needed to render a print batch.
type CardPrintPayload struct {
	PrintJobID    uint   `json:"print_job_id"`
	CorrelationID string `json:"correlation_id"`
}

// Selection item kinds.
const (
	KindAssociate = "associate"
	KindDependent = "dependent"
)

// PrintSelectionItem names one person in a print batch together with the
// layout assigned to that person. The API validates it, stores the full
// selection on the print job row, and the worker reads it back.
type PrintSelectionItem struct {
	Kind     string `json:"kind"`
	ID       uint   `json:"id"`
	LayoutID string `json:"layout_id"`
}

// NewCardPrintTask builds a new card print rendering task.
func NewCardPrintTask(printJobID uint, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(CardPrintPayload{
		PrintJobID:    printJobID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCardPrint, payload), nil
}
