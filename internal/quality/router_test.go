package quality

import (
	"strings"
	"testing"

	"github.com/ShayCichocki/dispatch/pkg/models"
)

func assessment(agentType string, scores map[string]float64, overall float64) *models.QualityAssessment {
	cat := DefaultCatalog()
	spec, _ := cat.Agent(agentType)
	var dims []models.DimensionScore
	for _, name := range spec.Dimensions {
		if v, ok := scores[name]; ok {
			dims = append(dims, models.DimensionScore{Name: name, Score: v})
		}
	}
	return assess(cat, agentType, dims, overall)
}

func TestRouteNilAssessment(t *testing.T) {
	r := NewRouter(DefaultCatalog())
	if d := r.Route("sess", nil, ""); d != nil {
		t.Errorf("nil assessment must yield no directive, got %+v", d)
	}
}

func TestRouteAllPass(t *testing.T) {
	r := NewRouter(DefaultCatalog())

	a := assessment("researcher", map[string]float64{
		"accuracy": 0.9, "coverage": 0.85, "relevance": 0.8,
	}, 0.85)

	d := r.Route("sess", a, "ctx-1")
	if d == nil || d.Verdict != models.VerdictPass {
		t.Fatalf("expected pass, got %+v", d)
	}
}

func TestRoutePolishForMidWeakDimension(t *testing.T) {
	r := NewRouter(DefaultCatalog())

	a := assessment("researcher", map[string]float64{
		"accuracy": 0.9, "coverage": 0.55, "relevance": 0.85,
	}, 0.77)

	d := r.Route("sess", a, "ctx-1")
	if d == nil || d.Verdict != models.VerdictPolish {
		t.Fatalf("expected polish for weakest in [0.5, 0.7), got %+v", d)
	}
	if !strings.Contains(d.Message, "coverage") {
		t.Error("directive must name the failing dimension")
	}
	if !strings.Contains(d.Message, "Good example:") || !strings.Contains(d.Message, "Hint:") {
		t.Error("directive must include examples and hints")
	}
	if !strings.Contains(d.Message, `resume session "ctx-1"`) {
		t.Error("directive must include the session to resume")
	}
}

func TestRouteRaisedThresholdBand(t *testing.T) {
	cat := DefaultCatalog()
	cat.SetAgent(AgentSpec{
		Type:          "reviewer",
		Dimensions:    []string{"rigor", "specificity", "actionability"},
		PassThreshold: 0.85,
	})
	r := NewRouter(cat)

	dims := []models.DimensionScore{
		{Name: "rigor", Score: 0.75},
		{Name: "specificity", Score: 0.9},
		{Name: "actionability", Score: 0.9},
	}

	// A dimension clear of 0.7 but under the raised bar, with overall
	// under the polish bar, goes back for a rewrite.
	a := assess(cat, "reviewer", dims, 0.75)
	if d := r.Route("sess", a, ""); d.Verdict != models.VerdictRewrite {
		t.Errorf("expected rewrite below the polish bar, got %+v", d)
	}

	// The same scores with a strong overall get a polish instead.
	b := assess(cat, "reviewer", dims, 0.85)
	if d := r.Route("sess-2", b, ""); d.Verdict != models.VerdictPolish {
		t.Errorf("expected polish at a strong overall, got %+v", d)
	}
}

func TestRouteRewriteThenEscalate(t *testing.T) {
	r := NewRouter(DefaultCatalog())

	a := assessment("researcher", map[string]float64{
		"accuracy": 0.9, "coverage": 0.30, "relevance": 0.85,
	}, 0.68)

	first := r.Route("sess", a, "ctx-1")
	if first.Verdict != models.VerdictRewrite {
		t.Fatalf("expected rewrite, got %s", first.Verdict)
	}
	if first.Attempt != 1 || !strings.Contains(first.Message, "attempt 1/2") {
		t.Errorf("expected attempt 1/2, got %d: %q", first.Attempt, first.Message)
	}

	second := r.Route("sess", a, "ctx-1")
	if second.Verdict != models.VerdictRewrite || !strings.Contains(second.Message, "attempt 2/2") {
		t.Errorf("expected rewrite 2/2, got %+v", second)
	}

	third := r.Route("sess", a, "ctx-1")
	if third.Verdict != models.VerdictEscalate {
		t.Fatalf("expected escalate on third attempt, got %s", third.Verdict)
	}
	if !strings.Contains(third.Message, "3/2") {
		t.Errorf("escalation must show the exceeded count, got %q", third.Message)
	}
	if !strings.Contains(third.Message, "Do NOT launch another automatic rewrite") {
		t.Error("escalation must forbid further automatic rewrites")
	}
	if !strings.Contains(third.Message, "human input") {
		t.Error("escalation must request human input")
	}
}

func TestRewriteCountersAreScopedPerSessionAndAgent(t *testing.T) {
	r := NewRouter(DefaultCatalog())

	a := assessment("researcher", map[string]float64{
		"accuracy": 0.9, "coverage": 0.30, "relevance": 0.85,
	}, 0.68)

	r.Route("sess-1", a, "")
	r.Route("sess-1", a, "")

	if got := r.Attempts("sess-1", "researcher"); got != 2 {
		t.Errorf("expected 2 attempts for sess-1, got %d", got)
	}
	if got := r.Attempts("sess-2", "researcher"); got != 0 {
		t.Errorf("other sessions must be untouched, got %d", got)
	}

	b := assessment("writer", map[string]float64{
		"grounding": 0.2, "clarity": 0.9, "structure": 0.9,
	}, 0.66)
	r.Route("sess-1", b, "")
	if got := r.Attempts("sess-1", "writer"); got != 1 {
		t.Errorf("counters must be per agent type, got %d", got)
	}
}

func TestClearSessionResetsCounters(t *testing.T) {
	r := NewRouter(DefaultCatalog())

	a := assessment("researcher", map[string]float64{
		"accuracy": 0.9, "coverage": 0.30, "relevance": 0.85,
	}, 0.68)
	r.Route("sess", a, "")
	r.Route("sess", a, "")
	r.ClearSession("sess")

	d := r.Route("sess", a, "")
	if d.Verdict != models.VerdictRewrite || d.Attempt != 1 {
		t.Errorf("expected fresh attempt count after clear, got %+v", d)
	}
}

func TestCrossStageRemap(t *testing.T) {
	r := NewRouter(DefaultCatalog())

	// Archivist failing on coverage routes to the research stage.
	a := assessment("archivist", map[string]float64{
		"provenance": 0.9, "coverage": 0.30, "fidelity": 0.85,
	}, 0.68)
	d := r.Route("sess", a, "ctx-1")
	if d.TargetAgentType != "researcher" {
		t.Errorf("archivist/coverage must remap to researcher, got %q", d.TargetAgentType)
	}

	// Writer failing on grounding routes to the research stage.
	b := assessment("writer", map[string]float64{
		"grounding": 0.30, "clarity": 0.9, "structure": 0.85,
	}, 0.68)
	d = r.Route("sess", b, "ctx-1")
	if d.TargetAgentType != "researcher" {
		t.Errorf("writer/grounding must remap to researcher, got %q", d.TargetAgentType)
	}

	// A non-remapped failure stays on its own stage.
	c := assessment("writer", map[string]float64{
		"grounding": 0.9, "clarity": 0.30, "structure": 0.85,
	}, 0.68)
	d = r.Route("sess", c, "ctx-1")
	if d.TargetAgentType != "writer" {
		t.Errorf("writer/clarity must stay on writer, got %q", d.TargetAgentType)
	}
}

func TestRouteLegacyConfidence(t *testing.T) {
	cat := DefaultCatalog()
	r := NewRouter(cat)

	low := Parse(cat, "researcher", "**CONFIDENCE: 0.30**")
	if d := r.Route("sess", low, ""); d.Verdict != models.VerdictRewrite {
		t.Errorf("low confidence should rewrite, got %+v", d)
	}

	mid := Parse(cat, "researcher", "**CONFIDENCE: 0.60**")
	if d := r.Route("sess", mid, ""); d.Verdict != models.VerdictPolish {
		t.Errorf("mid confidence should polish, got %+v", d)
	}
}
