package models

// DimensionScore is a single named quality axis with its 0-1 score.
type DimensionScore struct {
	// Name is the dimension label as declared for the agent type.
	Name string `json:"name"`
	// Score is the self-reported value in [0, 1].
	Score float64 `json:"score"`
}

// QualityAssessment is the parsed result of a task's self-reported quality
// signals. It is derived per routing decision and not stored.
type QualityAssessment struct {
	// AgentType is the agent persona the scores apply to.
	AgentType string `json:"agent_type"`
	// Dimensions holds the per-dimension scores in declared order.
	// Empty when the assessment came from a legacy confidence scalar.
	Dimensions []DimensionScore `json:"dimensions,omitempty"`
	// Overall is the overall score, either reported or derived.
	Overall float64 `json:"overall"`
	// Weakest is the lowest-scoring dimension below the pass threshold,
	// nil when every dimension passes or no dimensions were reported.
	Weakest *DimensionScore `json:"weakest,omitempty"`
	// AllPass is true when every dimension meets its pass threshold.
	AllPass bool `json:"all_pass"`
}

// Verdict is the routing decision for an assessed task.
type Verdict string

const (
	// VerdictPass accepts the work as-is.
	VerdictPass Verdict = "pass"
	// VerdictPolish requests a targeted improvement of one weak dimension.
	VerdictPolish Verdict = "polish"
	// VerdictRewrite requests a full redo of the work.
	VerdictRewrite Verdict = "rewrite"
	// VerdictEscalate hands the task to a human after bounded retries.
	VerdictEscalate Verdict = "escalate"
)

// Directive is the next-action instruction produced by the routing engine.
type Directive struct {
	// Verdict is the routing decision.
	Verdict Verdict `json:"verdict"`
	// AgentType is the agent the assessment came from.
	AgentType string `json:"agent_type"`
	// TargetAgentType is the agent category the follow-up should go to.
	// Usually equal to AgentType but remapped for certain weak dimensions.
	TargetAgentType string `json:"target_agent_type,omitempty"`
	// ResumeHandle is the execution context the follow-up should resume.
	ResumeHandle string `json:"resume_handle,omitempty"`
	// Attempt is the rewrite attempt number for rewrite/escalate verdicts.
	Attempt int `json:"attempt,omitempty"`
	// MaxAttempts is the configured rewrite bound.
	MaxAttempts int `json:"max_attempts,omitempty"`
	// Message is the full directive text: scores, failing dimension with
	// examples and hints, and the exact next-call parameters.
	Message string `json:"message"`
}
