package job

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Result is the durable outcome of one job execution, keyed by job id.
// Callers that fire a job and block on its outcome poll this store.
type Result struct {
	ID        uuid.UUID       `json:"id"`
	JobID     uuid.UUID       `json:"job_id"`
	Response  json.RawMessage `json:"response"`
	CreatedAt time.Time       `json:"created_at"`
}
