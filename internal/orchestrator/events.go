// Package orchestrator wires the task registry, admission control, quality
// routing, and the artifact store into one coordinating surface.
package orchestrator

import (
	"time"

	"github.com/ShayCichocki/dispatch/pkg/models"
)

// EventType represents the type of orchestrator event.
type EventType string

const (
	// EventTaskLaunched indicates a task was admitted and dispatched.
	EventTaskLaunched EventType = "task_launched"
	// EventTaskCompleted indicates a task completed successfully.
	EventTaskCompleted EventType = "task_completed"
	// EventTaskFailed indicates a task failed.
	EventTaskFailed EventType = "task_failed"
	// EventTaskCancelled indicates a task was cancelled.
	EventTaskCancelled EventType = "task_cancelled"
	// EventQualityRouted indicates a quality directive was produced for a task.
	EventQualityRouted EventType = "quality_routed"
	// EventEscalated indicates automatic rewrites were exhausted and a
	// human was asked to step in.
	EventEscalated EventType = "escalated"
	// EventArtifactRecorded indicates a task's output yielded an artifact.
	EventArtifactRecorded EventType = "artifact_recorded"
	// EventSessionEnded indicates a coordinating session was closed out.
	EventSessionEnded EventType = "session_ended"
)

// Event represents an event emitted by the orchestrator. Consumers use
// these to render progress and surface escalations.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// TaskID is the ID of the related task, if applicable.
	TaskID string
	// Description summarizes the related task, if applicable.
	Description string
	// AgentType is the agent identity involved, if applicable.
	AgentType string
	// SessionID is the coordinating session, if applicable.
	SessionID string
	// Verdict is the routing decision for quality events.
	Verdict models.Verdict
	// ArtifactID identifies the recorded artifact for artifact events.
	ArtifactID string
	// Message provides additional context about the event.
	Message string
	// Error contains error details for failure events.
	Error error
	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// emit publishes an event without blocking. Slow consumers drop events
// rather than stalling task finalization.
func (o *Orchestrator) emit(ev Event) {
	ev.Timestamp = time.Now()
	select {
	case o.events <- ev:
	default:
		o.logger.Log("[orchestrator] event channel full, dropped %s", ev.Type)
	}
}
