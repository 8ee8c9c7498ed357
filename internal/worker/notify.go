package worker

// CardPrintNotifyMessage is the WebSocket message protocol, forwarded to
// clients through Redis Pub/Sub. Field names are part of the client
// contract.
type CardPrintNotifyMessage struct {
	Status        string   `json:"status"`
	PrintJobID    uint     `json:"print_job_id"`
	CorrelationID string   `json:"correlation_id"`
	ErrorCode     int      `json:"error_code"`
	ErrorMessage  string   `json:"error_message"`
	MissingKeys   []string `json:"missing_keys,omitempty"`
}
