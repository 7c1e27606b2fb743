package models

import "time"

// ArtifactIssue is a problem surfaced by a routed task.
type ArtifactIssue struct {
	// Severity is one of "critical", "warning", or "info".
	Severity string `json:"severity"`
	// Description explains the issue.
	Description string `json:"description"`
}

// Artifact is the structured output of one routed task, accumulated per
// coordinating session so later tasks can build on prior results.
type Artifact struct {
	// ID is the sequential identifier, formatted {agentType}_{NNN} and
	// scoped to the coordinating session.
	ID string `json:"id"`
	// AgentType is the persona that produced the artifact.
	AgentType string `json:"agent_type"`
	// TaskDescription is the description of the producing task.
	TaskDescription string `json:"task_description"`
	// Timestamp is when the artifact was recorded.
	Timestamp time.Time `json:"timestamp"`
	// Sources lists references the task consulted.
	Sources []string `json:"sources,omitempty"`
	// Findings lists discrete results the task reported.
	Findings []string `json:"findings,omitempty"`
	// Content is the main body of the artifact, if any.
	Content string `json:"content,omitempty"`
	// Issues lists problems the task surfaced.
	Issues []ArtifactIssue `json:"issues,omitempty"`
	// Connections notes relationships to earlier artifacts.
	Connections []string `json:"connections,omitempty"`
}
