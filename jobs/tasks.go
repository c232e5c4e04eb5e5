package jobs

import (
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuditPurge removes audit rows past the retention window.
	TaskAuditPurge = "audit:purge"
	// TaskCycleFlagIntegrity repairs isCycle flags that drifted from the
	// open-cycle state they are derived from.
	TaskCycleFlagIntegrity = "cycle:flag_integrity"
)

// NewAuditPurgeTask constructs an Asynq task for the audit purge job.
func NewAuditPurgeTask() *asynq.Task {
	return asynq.NewTask(TaskAuditPurge, nil)
}

// NewCycleFlagIntegrityTask constructs an Asynq task for the flag scan.
func NewCycleFlagIntegrityTask() *asynq.Task {
	return asynq.NewTask(TaskCycleFlagIntegrity, nil)
}
