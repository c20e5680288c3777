package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskRefreshDatasets = "refresh:datasets"

// QueueRefresh is the queue refresh tasks run on
const QueueRefresh = "refresh"

type RefreshDatasetsPayload struct {
	TTLSeconds int64 `json:"ttl_seconds,omitempty"`
}

// TTL returns the requested TTL, zero meaning the controller default
func (p RefreshDatasetsPayload) TTL() time.Duration {
	return time.Duration(p.TTLSeconds) * time.Second
}

// NewRefreshDatasetsTask builds a refresh task. A refresh is idempotent, so
// only one may sit in the queue at a time.
func NewRefreshDatasetsTask(ttl time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(RefreshDatasetsPayload{TTLSeconds: int64(ttl / time.Second)})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRefreshDatasets, payload,
		asynq.Queue(QueueRefresh),
		asynq.MaxRetry(3),
		asynq.Timeout(2*time.Minute),
		asynq.Unique(5*time.Minute),
	), nil
}
