package models

import "time"

// TaskStatus represents the current state of a tracked task.
type TaskStatus string

const (
	// TaskStatusRunning indicates the task is executing in its remote context.
	TaskStatusRunning TaskStatus = "running"
	// TaskStatusCompleted indicates the task finished successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusError indicates the task failed.
	TaskStatusError TaskStatus = "error"
	// TaskStatusCancelled indicates the task was cancelled before completion.
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusRunning, TaskStatusCompleted, TaskStatusError, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal returns true for statuses that end a task's lifecycle.
// A terminal task only returns to running through an explicit resume.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusError || s == TaskStatusCancelled
}

// Progress tracks observed execution activity for a running task.
type Progress struct {
	// ToolCalls is the number of sub-steps observed so far.
	ToolCalls int `json:"tool_calls"`
	// LastTool is the name of the most recently observed sub-step.
	LastTool string `json:"last_tool,omitempty"`
	// LastText is the most recent free-text fragment from the context.
	LastText string `json:"last_text,omitempty"`
	// LastTextAt is when LastText was observed.
	LastTextAt time.Time `json:"last_text_at,omitempty"`
}

// Task represents a unit of delegated work tracked by the registry.
type Task struct {
	// ID is the caller-visible identifier for this task.
	ID string `json:"id"`
	// ExecutionHandle references the external execution context running the work.
	ExecutionHandle string `json:"execution_handle"`
	// ParentHandle is the execution handle of the originating context.
	ParentHandle string `json:"parent_handle,omitempty"`
	// ParentRequestID links the task back to the request that spawned it.
	ParentRequestID string `json:"parent_request_id,omitempty"`
	// SessionID is the coordinating session this task belongs to. Defaults
	// to the parent handle when not set explicitly at launch.
	SessionID string `json:"session_id,omitempty"`
	// Description is the short human-readable summary of the work.
	Description string `json:"description"`
	// Prompt is the full instruction dispatched to the execution context.
	Prompt string `json:"prompt,omitempty"`
	// AgentIdentity names the specialist persona executing the task.
	AgentIdentity string `json:"agent_identity"`
	// Status is the current lifecycle state.
	Status TaskStatus `json:"status"`
	// StartedAt is when the task was launched.
	StartedAt time.Time `json:"started_at"`
	// CompletedAt is when the task reached a terminal state, if it has.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// AdmissionKey is the concurrency bucket this task holds, empty if none.
	AdmissionKey string `json:"admission_key,omitempty"`
	// Progress accumulates observed sub-steps.
	Progress Progress `json:"progress"`
	// Error contains the failure message if the task errored.
	Error string `json:"error,omitempty"`
	// OriginatingModel is the model of the context that launched this task.
	OriginatingModel string `json:"originating_model,omitempty"`
	// OriginatingAgent is the agent identity of the launching context.
	OriginatingAgent string `json:"originating_agent,omitempty"`
	// Result holds the final output text once the task is terminal.
	Result string `json:"result,omitempty"`
}

// Age returns how long the task has existed relative to now.
func (t *Task) Age(now time.Time) time.Duration {
	return now.Sub(t.StartedAt)
}

// PendingNotification is a queued "task finished" message awaiting delivery
// to the originating context.
type PendingNotification struct {
	// TaskID is the task this notification reports on.
	TaskID string `json:"task_id"`
	// ParentHandle is the context the message is addressed to.
	ParentHandle string `json:"parent_handle"`
	// Message is the formatted completion notice.
	Message string `json:"message"`
	// QueuedAt is when the notification was enqueued.
	QueuedAt time.Time `json:"queued_at"`
	// TaskStartedAt mirrors the task's start time so the notification can be
	// aged out even after the task record itself is gone.
	TaskStartedAt time.Time `json:"task_started_at"`
}
