package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus tracks a pipeline run's lifecycle in the generation log.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// RunLog is the persisted record of one orchestrator invocation. It is
// created before research starts and updated exactly once at run end.
type RunLog struct {
	ID                uuid.UUID
	StartedAt         time.Time
	CompletedAt       *time.Time
	Status            RunStatus
	ArticlesGenerated int
	PromptTokens      int
	CompletionTokens  int
	Errors            []string
	Notes             string
}

// RunResult is what a run reports back to its trigger.
type RunResult struct {
	ArticlesGenerated     int
	TotalPromptTokens     int
	TotalCompletionTokens int
	Errors                []string
}
