package ports

import "time"

// MetricsCollector exports orchestration metrics to a monitoring backend.
type MetricsCollector interface {
	RecordWorkflowStarted()
	RecordWorkflowCompleted(status string, fallbackPlan bool, duration time.Duration)
	RecordStep(worker, status string, duration time.Duration)
	RecordCollaboratorCall(outcome string, attempts int, duration time.Duration)
	RecordValidation(kind string, passed bool, score float64)
	RecordCacheLookup(hit bool)
	SetWorkerHealth(worker string, healthy bool)
	SetCheckHealth(check string, healthy bool)
}
