package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ShayCichocki/dispatch/internal/admission"
	"github.com/ShayCichocki/dispatch/internal/artifacts"
	"github.com/ShayCichocki/dispatch/internal/config"
	"github.com/ShayCichocki/dispatch/internal/host"
	"github.com/ShayCichocki/dispatch/internal/quality"
	"github.com/ShayCichocki/dispatch/internal/registry"
	"github.com/ShayCichocki/dispatch/pkg/models"
)

// Options configures an Orchestrator.
type Options struct {
	// Host drives execution contexts. Required.
	Host host.Host
	// Config supplies limits, timings, and thresholds. Nil uses defaults.
	Config *config.Config
	// Catalog overrides the agent catalog. Nil builds one from Config.
	Catalog *quality.Catalog
	// Logger receives debug lines. Nil disables logging.
	Logger *DebugLogger
	// EventBuffer sizes the event channel. Zero uses a sane default.
	EventBuffer int
}

// Orchestrator coordinates the full delegation loop: admission, launch,
// lifecycle tracking, quality routing, and artifact accumulation.
type Orchestrator struct {
	host      host.Host
	store     *registry.Store
	admission *admission.Controller
	manager   *registry.Manager
	router    *quality.Router
	artifacts *artifacts.Store
	logger    *DebugLogger

	deliverTimeout time.Duration

	// catalog is swappable at runtime for live reloads.
	catalogMu sync.RWMutex
	catalog   *quality.Catalog

	events chan Event
}

// New creates an Orchestrator over the given host.
func New(opts Options) *Orchestrator {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	catalog := opts.Catalog
	if catalog == nil {
		catalog = quality.DefaultCatalog()
		catalog.SetThresholds(cfg.Quality.PassThreshold, cfg.Quality.PolishThreshold, cfg.Quality.MaxRewrites)
	}

	logger := opts.Logger
	if logger == nil {
		logger = NopLogger()
	}

	buffer := opts.EventBuffer
	if buffer <= 0 {
		buffer = 64
	}

	registryCfg := cfg.Lifecycle.RegistryConfig()
	o := &Orchestrator{
		host:           opts.Host,
		store:          registry.NewStore(),
		admission:      admission.NewController(cfg.Admission.Limits()),
		router:         quality.NewRouter(catalog),
		artifacts:      artifacts.NewStore(),
		logger:         logger,
		deliverTimeout: registryCfg.DeliverTimeout,
		catalog:        catalog,
		events:         make(chan Event, buffer),
	}
	o.manager = registry.NewManager(registry.ManagerOptions{
		Store:      o.store,
		Admission:  o.admission,
		Host:       opts.Host,
		Config:     registryCfg,
		Logf:       logger.Log,
		OnTerminal: o.onTerminal,
	})
	return o
}

// Events returns the orchestrator's event stream.
func (o *Orchestrator) Events() <-chan Event {
	return o.events
}

// Manager exposes the underlying task lifecycle manager.
func (o *Orchestrator) Manager() *registry.Manager {
	return o.manager
}

// SetCatalog swaps the agent catalog at runtime, e.g. after a config
// file reload. Rewrite counters carry over.
func (o *Orchestrator) SetCatalog(catalog *quality.Catalog) {
	o.catalogMu.Lock()
	o.catalog = catalog
	o.catalogMu.Unlock()
	o.router.SetCatalog(catalog)
	o.logger.Log("[orchestrator] agent catalog reloaded")
}

func (o *Orchestrator) currentCatalog() *quality.Catalog {
	o.catalogMu.RLock()
	defer o.catalogMu.RUnlock()
	return o.catalog
}

// LaunchRequest describes one delegated task.
type LaunchRequest struct {
	// Description is the short human-readable summary of the work.
	Description string
	// Prompt is the instruction for the execution context.
	Prompt string
	// AgentIdentity names the specialist persona to run as. Required.
	AgentIdentity string
	// SessionID is the coordinating session. Falls back to ParentHandle.
	SessionID string
	// ParentHandle is the execution handle of the launching context.
	ParentHandle string
	// ParentRequestID links back to the request that asked for this task.
	ParentRequestID string
	// Model selects the model; empty uses the host default.
	Model string
	// OriginatingModel and OriginatingAgent describe the launching context.
	OriginatingModel string
	OriginatingAgent string
}

func (r LaunchRequest) sessionID() string {
	if r.SessionID != "" {
		return r.SessionID
	}
	return r.ParentHandle
}

// Launch admits and dispatches a delegated task. Prior artifacts from the
// same session are injected into the prompt so the task builds on work
// already done instead of repeating it.
func (o *Orchestrator) Launch(ctx context.Context, req LaunchRequest) (models.Task, error) {
	prompt := req.Prompt
	if summary := o.artifacts.BuildContextSummary(req.sessionID()); summary != "" {
		prompt = prompt + "\n\n" + summary
	}

	task, err := o.manager.Launch(ctx, registry.LaunchSpec{
		Description:      req.Description,
		Prompt:           prompt,
		AgentIdentity:    req.AgentIdentity,
		ParentHandle:     req.ParentHandle,
		ParentRequestID:  req.ParentRequestID,
		SessionID:        req.SessionID,
		Model:            req.Model,
		OriginatingModel: req.OriginatingModel,
		OriginatingAgent: req.OriginatingAgent,
	})
	if err != nil {
		return models.Task{}, err
	}

	o.emit(Event{
		Type:        EventTaskLaunched,
		TaskID:      task.ID,
		Description: task.Description,
		AgentType:   task.AgentIdentity,
		SessionID:   req.sessionID(),
	})
	return task, nil
}

// Resume reopens a terminal task on its existing execution context.
func (o *Orchestrator) Resume(ctx context.Context, executionHandle, prompt, parentHandle, parentRequestID string) (models.Task, error) {
	return o.manager.Resume(ctx, registry.ResumeSpec{
		ExecutionHandle: executionHandle,
		Prompt:          prompt,
		ParentHandle:    parentHandle,
		ParentRequestID: parentRequestID,
	})
}

// Cancel aborts one task.
func (o *Orchestrator) Cancel(taskID string) error {
	return o.manager.Cancel(taskID)
}

// CancelDescendants cancels every task transitively launched from the
// given execution handle. Returns how many were cancelled.
func (o *Orchestrator) CancelDescendants(ancestorHandle string) int {
	return o.manager.CancelDescendants(ancestorHandle)
}

// Task returns the current snapshot of one task.
func (o *Orchestrator) Task(taskID string) (models.Task, bool) {
	return o.store.Get(taskID)
}

// Tasks returns every tracked task.
func (o *Orchestrator) Tasks() []models.Task {
	return o.store.Tasks()
}

// Artifacts returns the session's accumulated artifacts.
func (o *Orchestrator) Artifacts(sessionID string) []models.Artifact {
	return o.artifacts.Get(sessionID)
}

// EndSession closes out a coordinating session: rewrite counters reset
// and accumulated artifacts are dropped.
func (o *Orchestrator) EndSession(sessionID string) {
	o.router.ClearSession(sessionID)
	o.artifacts.ClearSession(sessionID)
	o.emit(Event{Type: EventSessionEnded, SessionID: sessionID})
	o.logger.Log("[orchestrator] session %s ended", sessionID)
}

// Close shuts the orchestrator down and waits for in-flight notification
// deliveries.
func (o *Orchestrator) Close() {
	o.manager.Close()
}

// sessionOf resolves the coordinating session a task belongs to. Tasks
// launched from a coordinating context inherit its handle.
func sessionOf(task models.Task) string {
	if task.SessionID != "" {
		return task.SessionID
	}
	return task.ParentHandle
}

// onTerminal runs after a task finalizes, with its admission slot already
// released. Completed output is mined for artifacts and quality signals;
// any resulting directive goes back to the launching context.
func (o *Orchestrator) onTerminal(task models.Task) {
	switch task.Status {
	case models.TaskStatusCompleted:
		o.emit(Event{
			Type:        EventTaskCompleted,
			TaskID:      task.ID,
			Description: task.Description,
			AgentType:   task.AgentIdentity,
			SessionID:   sessionOf(task),
		})
	case models.TaskStatusError:
		o.emit(Event{
			Type:        EventTaskFailed,
			TaskID:      task.ID,
			Description: task.Description,
			AgentType:   task.AgentIdentity,
			SessionID:   sessionOf(task),
			Error:       fmt.Errorf("%s", task.Error),
		})
		return
	case models.TaskStatusCancelled:
		o.emit(Event{
			Type:        EventTaskCancelled,
			TaskID:      task.ID,
			Description: task.Description,
			AgentType:   task.AgentIdentity,
			SessionID:   sessionOf(task),
		})
		return
	default:
		return
	}

	session := sessionOf(task)
	o.recordArtifact(session, task)
	o.routeQuality(session, task)
}

// recordArtifact extracts and stores any structured artifact from a
// completed task's output.
func (o *Orchestrator) recordArtifact(session string, task models.Task) {
	if session == "" || task.Result == "" {
		return
	}

	artifact := artifacts.Extract(task.AgentIdentity, task.Description, task.Result)
	if artifact == nil {
		return
	}

	stored := o.artifacts.Add(session, *artifact)
	o.logger.Log("[orchestrator] recorded artifact %s for session %s", stored.ID, session)
	o.emit(Event{
		Type:       EventArtifactRecorded,
		TaskID:     task.ID,
		AgentType:  task.AgentIdentity,
		SessionID:  session,
		ArtifactID: stored.ID,
	})
}

// routeQuality parses the task's self-reported scores and, when they call
// for a follow-up, delivers the directive to the launching context. Output
// with no quality signal routes nowhere.
func (o *Orchestrator) routeQuality(session string, task models.Task) {
	assessment := quality.Parse(o.currentCatalog(), task.AgentIdentity, task.Result)
	if assessment == nil {
		return
	}

	directive := o.router.Route(session, assessment, task.ExecutionHandle)
	if directive == nil {
		return
	}

	o.emit(Event{
		Type:      EventQualityRouted,
		TaskID:    task.ID,
		AgentType: task.AgentIdentity,
		SessionID: session,
		Verdict:   directive.Verdict,
		Message:   firstLine(directive.Message),
	})
	if directive.Verdict == models.VerdictEscalate {
		o.emit(Event{
			Type:      EventEscalated,
			TaskID:    task.ID,
			AgentType: task.AgentIdentity,
			SessionID: session,
			Message:   fmt.Sprintf("rewrites exhausted for %s (%d/%d)", task.AgentIdentity, directive.Attempt, directive.MaxAttempts),
		})
	}

	// Passing work needs no follow-up message; the completion notice
	// already told the parent the task is done.
	if directive.Verdict == models.VerdictPass {
		return
	}
	if task.ParentHandle == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.deliverTimeout)
	defer cancel()
	if err := o.host.Deliver(ctx, task.ParentHandle, directive.Message); err != nil {
		o.logger.Log("[orchestrator] directive delivery to %s failed: %v", task.ParentHandle, err)
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
