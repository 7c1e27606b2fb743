package quality

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ShayCichocki/dispatch/pkg/models"
)

// attemptKey scopes the rewrite counter to one (session, agent type) pair.
type attemptKey struct {
	session   string
	agentType string
}

// Router turns quality assessments into next-action directives. Rewrite
// attempts are counted per (coordinating session, agent type) and cleared
// when the session ends.
type Router struct {
	catalog *Catalog

	mu       sync.Mutex
	attempts map[attemptKey]int
}

// NewRouter creates a Router over the given catalog.
func NewRouter(catalog *Catalog) *Router {
	return &Router{
		catalog:  catalog,
		attempts: make(map[attemptKey]int),
	}
}

// SetCatalog swaps the catalog, keeping accumulated rewrite counters.
// Used for live catalog reloads.
func (r *Router) SetCatalog(catalog *Catalog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.catalog = catalog
}

// cat snapshots the current catalog. Catalogs are immutable once loaded,
// so a snapshot stays coherent across a concurrent swap.
func (r *Router) cat() *Catalog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.catalog
}

// Route applies the decision table to an assessment and renders the full
// directive. Returns nil for a nil assessment: no signal, no directive.
// resumeHandle is the execution context a follow-up should resume.
func (r *Router) Route(sessionID string, a *models.QualityAssessment, resumeHandle string) *models.Directive {
	if a == nil {
		return nil
	}

	if a.AllPass {
		return &models.Directive{
			Verdict:   models.VerdictPass,
			AgentType: a.AgentType,
			Message:   fmt.Sprintf("Quality gate passed.\n%s", renderScores(a)),
		}
	}

	// Below 0.5 on the weakest dimension (or overall, for legacy
	// confidence-only output) the work needs a rewrite; bounded attempts,
	// then a human.
	anchor := anchorScore(a)
	if anchor < 0.5 {
		return r.routeRewrite(sessionID, a, resumeHandle)
	}

	// Overall at or above the polish bar, or the weakest dimension in
	// [0.5, 0.7), gets a targeted polish instead of a full rewrite.
	if a.Overall >= r.cat().polishThreshold || anchor < 0.7 {
		return r.directive(models.VerdictPolish, a, resumeHandle, 0)
	}

	// A dimension at 0.7 or above can still fail a raised per-agent
	// threshold; if the overall score is also under the polish bar the
	// work goes back for a rewrite.
	return r.routeRewrite(sessionID, a, resumeHandle)
}

// routeRewrite increments the (session, agentType) counter and downgrades
// rewrite to escalate once the bound is exceeded.
func (r *Router) routeRewrite(sessionID string, a *models.QualityAssessment, resumeHandle string) *models.Directive {
	key := attemptKey{session: sessionID, agentType: a.AgentType}

	r.mu.Lock()
	r.attempts[key]++
	attempt := r.attempts[key]
	maxRewrites := r.catalog.maxRewrites
	r.mu.Unlock()

	if attempt > maxRewrites {
		return r.directive(models.VerdictEscalate, a, resumeHandle, attempt)
	}
	return r.directive(models.VerdictRewrite, a, resumeHandle, attempt)
}

// ClearSession drops all rewrite counters for a coordinating session.
func (r *Router) ClearSession(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.attempts {
		if key.session == sessionID {
			delete(r.attempts, key)
		}
	}
}

// Attempts returns the current rewrite count for a (session, agentType).
func (r *Router) Attempts(sessionID, agentType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts[attemptKey{session: sessionID, agentType: agentType}]
}

// anchorScore is the score the rewrite decision keys on: the weakest
// dimension when there is one, otherwise the overall scalar.
func anchorScore(a *models.QualityAssessment) float64 {
	if a.Weakest != nil {
		return a.Weakest.Score
	}
	return a.Overall
}

// directive renders the full next-action directive text.
func (r *Router) directive(verdict models.Verdict, a *models.QualityAssessment, resumeHandle string, attempt int) *models.Directive {
	cat := r.cat()

	target := a.AgentType
	if a.Weakest != nil {
		target = cat.remapTarget(a.AgentType, a.Weakest.Name)
	}

	var sb strings.Builder
	sb.WriteString(renderScores(a))

	if a.Weakest != nil {
		g := guidanceFor(a.Weakest.Name)
		fmt.Fprintf(&sb, "\nWeakest dimension: %s (%.2f)\n", a.Weakest.Name, a.Weakest.Score)
		fmt.Fprintf(&sb, "Good example: %s\n", g.Good)
		fmt.Fprintf(&sb, "Bad example: %s\n", g.Bad)
		for _, hint := range g.Hints {
			fmt.Fprintf(&sb, "Hint: %s\n", hint)
		}
	}

	switch verdict {
	case models.VerdictPolish:
		sb.WriteString("\nAction: polish the existing work, focusing on the weakest dimension only.\n")
	case models.VerdictRewrite:
		fmt.Fprintf(&sb, "\nAction: rewrite (attempt %d/%d).\n", attempt, cat.maxRewrites)
	case models.VerdictEscalate:
		fmt.Fprintf(&sb, "\nAction: escalate (attempt %d/%d exceeds the limit).\n", attempt, cat.maxRewrites)
		sb.WriteString("Do NOT launch another automatic rewrite. Stop and request human input on how to proceed.\n")
	}

	fmt.Fprintf(&sb, "Next call: target agent category %q", target)
	if resumeHandle != "" {
		fmt.Fprintf(&sb, ", resume session %q", resumeHandle)
	}
	sb.WriteString(".")

	return &models.Directive{
		Verdict:         verdict,
		AgentType:       a.AgentType,
		TargetAgentType: target,
		ResumeHandle:    resumeHandle,
		Attempt:         attempt,
		MaxAttempts:     cat.maxRewrites,
		Message:         sb.String(),
	}
}

// renderScores formats the current scores block of a directive.
func renderScores(a *models.QualityAssessment) string {
	var sb strings.Builder
	sb.WriteString("Current scores:\n")
	for _, d := range a.Dimensions {
		fmt.Fprintf(&sb, "- %s: %.2f\n", d.Name, d.Score)
	}
	fmt.Fprintf(&sb, "Overall: %.2f", a.Overall)
	return sb.String()
}
