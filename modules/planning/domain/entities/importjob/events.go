package importjob

import (
	"github.com/planventa/planventa/modules/planning/importing"
)

// QueuedEvent fires when a job's file is persisted and the job becomes
// claimable by a worker.
type QueuedEvent struct {
	Job *Job
}

// CompletedEvent fires on every terminal transition (completed, partial,
// failed). Notification delivery is a consumer concern.
type CompletedEvent struct {
	Job    *Job
	Result *importing.Result
}
