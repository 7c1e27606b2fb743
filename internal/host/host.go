// Package host abstracts the external execution collaborator: the system
// that actually runs a task's prompt in a remote context. The registry and
// notification protocol consume this surface; they never talk to a
// transport directly.
package host

import "context"

// ContextStatus reports whether an execution context is actively working.
type ContextStatus string

const (
	// StatusIdle means the context has no work in flight.
	StatusIdle ContextStatus = "idle"
	// StatusRunning means the context is processing a prompt.
	StatusRunning ContextStatus = "running"
)

// ChecklistItem is one entry of a context's working checklist, read back to
// gate premature completion.
type ChecklistItem struct {
	Text string
	Done bool
}

// DispatchResult carries the outcome of a fire-and-forget dispatch,
// reported asynchronously once the context goes idle again.
type DispatchResult struct {
	// Output is the final free-text output of the turn.
	Output string
	// Err is non-nil if the dispatch failed.
	Err error
}

// Host is the collaborator surface for creating and driving execution
// contexts. All failure reporting for dispatched prompts is out-of-band via
// the dispatch callback; Dispatch itself only fails on unknown handles.
type Host interface {
	// CreateContext provisions a new execution context for the given agent
	// identity and returns its opaque handle.
	CreateContext(ctx context.Context, agentIdentity string) (string, error)

	// Dispatch sends a prompt to the context and returns immediately.
	// onDone is invoked exactly once when the turn finishes, from a
	// separate goroutine.
	Dispatch(handle, prompt string, onDone func(DispatchResult)) error

	// Status reports whether the context is idle or running.
	Status(handle string) (ContextStatus, error)

	// Checklist returns the context's current checklist items.
	Checklist(handle string) ([]ChecklistItem, error)

	// Abort asks the context to stop. Fire-and-forget: callers must not
	// wait on remote acknowledgment.
	Abort(handle string)

	// Deliver sends a message to a context, used for completion notices
	// and routing follow-ups. May block for the transport's own timeout.
	Deliver(ctx context.Context, handle, message string) error
}
