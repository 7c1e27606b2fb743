package registry

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/dispatch/internal/admission"
	"github.com/ShayCichocki/dispatch/internal/host"
	"github.com/ShayCichocki/dispatch/pkg/models"
)

// Config contains timing knobs for the lifecycle manager.
type Config struct {
	// TTL is the fixed time-to-live after which any task is reaped,
	// measured from StartedAt, regardless of status.
	TTL time.Duration
	// SweepInterval is how often the liveness sweep polls running tasks.
	SweepInterval time.Duration
	// ReapCooldown rate-limits the staleness reaper.
	ReapCooldown time.Duration
	// SettleDelay is the short pause before a completion notification is
	// delivered, letting final state settle.
	SettleDelay time.Duration
	// DeliverTimeout bounds a single delivery attempt.
	DeliverTimeout time.Duration
}

// DefaultConfig returns the standard timing configuration.
func DefaultConfig() Config {
	return Config{
		TTL:            30 * time.Minute,
		SweepInterval:  2 * time.Second,
		ReapCooldown:   30 * time.Second,
		SettleDelay:    300 * time.Millisecond,
		DeliverTimeout: 30 * time.Second,
	}
}

// Manager drives task lifecycles. It owns the store, consumes lifecycle
// signals from the host, and finalizes every task through a single path so
// the release-before-notify ordering holds on all of them.
type Manager struct {
	store     *Store
	admission *admission.Controller
	host      host.Host
	cfg       Config

	// logf receives debug log lines. Never nil.
	logf func(format string, args ...interface{})
	// onTerminal is invoked after a task finalizes, once its admission
	// slot has been released. Used for quality routing and events.
	onTerminal func(task models.Task)
	// now is the clock, injectable for tests.
	now func() time.Time

	sweepMu  sync.Mutex
	sweeping bool
	lastReap time.Time

	done     chan struct{}
	closeOne sync.Once

	// notifyWG tracks in-flight delivery goroutines for clean shutdown.
	notifyWG sync.WaitGroup
}

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	Store      *Store
	Admission  *admission.Controller
	Host       host.Host
	Config     Config
	Logf       func(format string, args ...interface{})
	OnTerminal func(task models.Task)
	Now        func() time.Time
}

// NewManager creates a Manager. Store, Admission, and Host are required.
func NewManager(opts ManagerOptions) *Manager {
	cfg := opts.Config
	if cfg.TTL == 0 {
		cfg = DefaultConfig()
	}
	logf := opts.Logf
	if logf == nil {
		logf = func(string, ...interface{}) {}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		store:      opts.Store,
		admission:  opts.Admission,
		host:       opts.Host,
		cfg:        cfg,
		logf:       logf,
		onTerminal: opts.OnTerminal,
		now:        now,
		done:       make(chan struct{}),
	}
}

// Store returns the underlying task store.
func (m *Manager) Store() *Store {
	return m.store
}

// Close stops the liveness sweep and waits for in-flight notification
// deliveries to finish their attempts.
func (m *Manager) Close() {
	m.closeOne.Do(func() {
		close(m.done)
	})
	m.notifyWG.Wait()
}

// LaunchSpec describes a task to launch.
type LaunchSpec struct {
	Description      string
	Prompt           string
	AgentIdentity    string
	ParentHandle     string
	ParentRequestID  string
	SessionID        string
	Model            string
	OriginatingModel string
	OriginatingAgent string
}

// sessionID resolves the coordinating session a launch belongs to: an
// explicit session wins, otherwise the launching context's handle is it.
func sessionID(s LaunchSpec) string {
	if s.SessionID != "" {
		return s.SessionID
	}
	return s.ParentHandle
}

// admissionKey resolves the concurrency bucket for a launch. The model
// identity wins when present; otherwise the agent identity is the bucket.
func (s LaunchSpec) admissionKey() string {
	if s.Model != "" {
		return s.Model
	}
	return s.AgentIdentity
}

// Launch admits, creates, and dispatches a new task. It blocks until an
// admission slot is free, then creates the execution context and fires the
// prompt without waiting for completion. A dispatch that fails later still
// finalizes the task through the normal path, so the caller is always
// notified, success or failure.
func (m *Manager) Launch(ctx context.Context, spec LaunchSpec) (models.Task, error) {
	if strings.TrimSpace(spec.AgentIdentity) == "" {
		return models.Task{}, fmt.Errorf("launch: agent identity is required: %w", ErrInvalidArgument)
	}

	key := spec.admissionKey()
	if err := m.admission.Acquire(ctx, key); err != nil {
		return models.Task{}, fmt.Errorf("launch: acquire admission for %q: %w", key, err)
	}

	handle, err := m.host.CreateContext(ctx, spec.AgentIdentity)
	if err != nil {
		m.admission.Release(key)
		return models.Task{}, fmt.Errorf("launch: create execution context: %w", err)
	}

	task := &models.Task{
		ID:               uuid.New().String()[:8],
		ExecutionHandle:  handle,
		ParentHandle:     spec.ParentHandle,
		ParentRequestID:  spec.ParentRequestID,
		SessionID:        sessionID(spec),
		Description:      spec.Description,
		Prompt:           spec.Prompt,
		AgentIdentity:    spec.AgentIdentity,
		Status:           models.TaskStatusRunning,
		StartedAt:        m.now(),
		AdmissionKey:     key,
		OriginatingModel: spec.OriginatingModel,
		OriginatingAgent: spec.OriginatingAgent,
	}
	m.store.Add(task)
	m.logf("[registry] launched task %s (agent=%s key=%s handle=%s)", task.ID, task.AgentIdentity, key, handle)

	if err := m.host.Dispatch(handle, spec.Prompt, m.dispatchCallback(task.ID, handle)); err != nil {
		m.Finalize(task.ID, models.TaskStatusError, fmt.Sprintf("dispatch failed: %v", err))
	}

	m.ensureSweeper()

	t, _ := m.store.Get(task.ID)
	return t, nil
}

// ResumeSpec describes a resume of an existing task by execution handle.
type ResumeSpec struct {
	ExecutionHandle string
	Prompt          string
	ParentHandle    string
	ParentRequestID string
}

// Resume reopens an existing task back to running, preserving its identity
// and accumulated tool-call progress, and re-dispatches a prompt to the
// same execution context.
func (m *Manager) Resume(ctx context.Context, spec ResumeSpec) (models.Task, error) {
	existing, ok := m.store.ByHandle(spec.ExecutionHandle)
	if !ok {
		return models.Task{}, fmt.Errorf("resume: no task for execution handle %q: %w", spec.ExecutionHandle, ErrNotFound)
	}

	// A terminal task released its admission slot; take a fresh one so
	// the one-hold-per-running-task invariant holds.
	if existing.AdmissionKey == "" {
		key := existing.AgentIdentity
		if existing.OriginatingModel != "" {
			key = existing.OriginatingModel
		}
		if err := m.admission.Acquire(ctx, key); err != nil {
			return models.Task{}, fmt.Errorf("resume: acquire admission for %q: %w", key, err)
		}
		m.store.Update(existing.ID, func(t *models.Task) {
			t.AdmissionKey = key
		})
	}

	m.store.Update(existing.ID, func(t *models.Task) {
		t.Status = models.TaskStatusRunning
		t.CompletedAt = nil
		t.Error = ""
		t.Result = ""
		t.ParentHandle = spec.ParentHandle
		t.ParentRequestID = spec.ParentRequestID
		if spec.Prompt != "" {
			t.Prompt = spec.Prompt
		}
		// Progress.ToolCalls carries over untouched.
	})
	m.logf("[registry] resumed task %s on handle %s", existing.ID, spec.ExecutionHandle)

	if err := m.host.Dispatch(spec.ExecutionHandle, spec.Prompt, m.dispatchCallback(existing.ID, spec.ExecutionHandle)); err != nil {
		m.Finalize(existing.ID, models.TaskStatusError, fmt.Sprintf("dispatch failed: %v", err))
	}

	m.ensureSweeper()

	t, _ := m.store.Get(existing.ID)
	return t, nil
}

// Cancel aborts the task's execution context without waiting for the abort
// to confirm, then immediately marks the task cancelled locally.
func (m *Manager) Cancel(taskID string) error {
	task, ok := m.store.Get(taskID)
	if !ok {
		return fmt.Errorf("cancel: task %q: %w", taskID, ErrNotFound)
	}

	go m.host.Abort(task.ExecutionHandle)
	m.Finalize(taskID, models.TaskStatusCancelled, "cancelled by caller")
	return nil
}

// CancelDescendants cancels every still-running task in the ancestor's tree.
func (m *Manager) CancelDescendants(ancestorHandle string) int {
	cancelled := 0
	for _, t := range m.AllDescendants(ancestorHandle) {
		if t.Status != models.TaskStatusRunning {
			continue
		}
		if err := m.Cancel(t.ID); err == nil {
			cancelled++
		}
	}
	return cancelled
}

// AllDescendants collects every task whose parent-handle chain reaches
// handle, via repeated direct-children lookups. Depth is unbounded and a
// task is reported at most once.
func (m *Manager) AllDescendants(handle string) []models.Task {
	var out []models.Task
	seen := make(map[string]bool)
	queue := []string{handle}

	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		for _, child := range m.store.Children(h) {
			if seen[child.ID] {
				continue
			}
			seen[child.ID] = true
			out = append(out, child)
			if child.ExecutionHandle != "" {
				queue = append(queue, child.ExecutionHandle)
			}
		}
	}
	return out
}

// dispatchCallback routes a dispatch outcome back into the lifecycle. A
// failed dispatch finalizes the task as errored; a successful turn records
// the output and applies the usual idle/checklist completion logic.
func (m *Manager) dispatchCallback(taskID, handle string) func(host.DispatchResult) {
	return func(res host.DispatchResult) {
		if res.Err != nil {
			m.Finalize(taskID, models.TaskStatusError, res.Err.Error())
			return
		}
		m.store.Update(taskID, func(t *models.Task) {
			t.Result = res.Output
		})
		m.OnIdle(handle)
	}
}

// OnToolUse handles a "sub-step observed" signal.
func (m *Manager) OnToolUse(handle, tool string) {
	task, ok := m.store.ByHandle(handle)
	if !ok {
		return
	}
	m.store.Update(task.ID, func(t *models.Task) {
		t.Progress.ToolCalls++
		t.Progress.LastTool = tool
	})
}

// OnText handles an observed free-text fragment.
func (m *Manager) OnText(handle, fragment string) {
	task, ok := m.store.ByHandle(handle)
	if !ok {
		return
	}
	now := m.now()
	m.store.Update(task.ID, func(t *models.Task) {
		t.Progress.LastText = fragment
		t.Progress.LastTextAt = now
	})
}

// OnIdle handles a "context went idle" signal. Idle is only a candidate
// completion: if the context still reports incomplete checklist items the
// transition is deferred and a later signal or sweep retries.
func (m *Manager) OnIdle(handle string) {
	task, ok := m.store.ByHandle(handle)
	if !ok || task.Status != models.TaskStatusRunning {
		return
	}

	items, err := m.host.Checklist(handle)
	if err == nil {
		for _, item := range items {
			if !item.Done {
				m.logf("[registry] task %s idle but checklist incomplete (%q), deferring completion", task.ID, item.Text)
				return
			}
		}
	}

	m.Finalize(task.ID, models.TaskStatusCompleted, "")
}

// OnContextDeleted handles a "context deleted" signal. A still-running task
// is force-cancelled, its admission slot released, and the record removed
// immediately, bypassing the notification delay. Pending notifications for
// the task are purged either way.
func (m *Manager) OnContextDeleted(handle string) {
	task, ok := m.store.ByHandle(handle)
	if !ok {
		return
	}

	var key string
	m.store.Update(task.ID, func(t *models.Task) {
		if !t.Status.Terminal() {
			t.Status = models.TaskStatusCancelled
			t.Error = "execution context deleted"
			now := m.now()
			t.CompletedAt = &now
		}
		key = t.AdmissionKey
		t.AdmissionKey = ""
	})
	if key != "" {
		m.admission.Release(key)
	}

	m.store.RemovePendingForTask(task.ID)
	m.store.Remove(task.ID)
	m.logf("[registry] task %s removed: execution context deleted", task.ID)
}

// Finalize is the single place a task reaches a terminal state. It is
// idempotent: re-finalizing an already-terminal task is a no-op. The
// admission slot is released before the notification delivery is attempted;
// that ordering is load-bearing, since delivery can hang and queued
// admission waiters must not wait on it.
func (m *Manager) Finalize(taskID string, status models.TaskStatus, reason string) {
	var (
		finalized bool
		key       string
		snapshot  models.Task
	)
	m.store.Update(taskID, func(t *models.Task) {
		if t.Status.Terminal() {
			return
		}
		t.Status = status
		now := m.now()
		t.CompletedAt = &now
		if status != models.TaskStatusCompleted {
			t.Error = reason
		}
		key = t.AdmissionKey
		t.AdmissionKey = ""
		snapshot = *t
		finalized = true
	})
	if !finalized {
		return
	}

	if key != "" {
		m.admission.Release(key)
	}
	m.logf("[registry] task %s finalized as %s", taskID, status)

	m.notifyCompletion(snapshot)

	if m.onTerminal != nil {
		m.onTerminal(snapshot)
	}
}
