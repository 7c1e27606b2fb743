package artifacts

import (
	"strings"
	"testing"

	"github.com/ShayCichocki/dispatch/pkg/models"
)

func TestAddAssignsSequentialIDs(t *testing.T) {
	s := NewStore()

	first := s.Add("sess", models.Artifact{AgentType: "researcher"})
	second := s.Add("sess", models.Artifact{AgentType: "researcher"})
	third := s.Add("sess", models.Artifact{AgentType: "writer"})

	if first.ID != "researcher_000" {
		t.Errorf("expected researcher_000, got %s", first.ID)
	}
	if second.ID != "researcher_001" {
		t.Errorf("expected researcher_001, got %s", second.ID)
	}
	// The sequence is per session, not per agent type.
	if third.ID != "writer_002" {
		t.Errorf("expected writer_002, got %s", third.ID)
	}
}

func TestSequencesAreScopedPerSession(t *testing.T) {
	s := NewStore()

	s.Add("sess-1", models.Artifact{AgentType: "researcher"})
	got := s.Add("sess-2", models.Artifact{AgentType: "researcher"})

	if got.ID != "researcher_000" {
		t.Errorf("sessions must not share sequences, got %s", got.ID)
	}
}

func TestClearSession(t *testing.T) {
	s := NewStore()

	s.Add("sess", models.Artifact{AgentType: "researcher"})
	s.ClearSession("sess")

	if s.Count("sess") != 0 {
		t.Error("expected session cleared")
	}
	if got := s.Add("sess", models.Artifact{AgentType: "researcher"}); got.ID != "researcher_000" {
		t.Errorf("sequence must restart after clear, got %s", got.ID)
	}
}

func TestBuildContextSummaryEmpty(t *testing.T) {
	s := NewStore()
	if got := s.BuildContextSummary("sess"); got != "" {
		t.Errorf("expected empty summary for empty session, got %q", got)
	}
}

func TestBuildContextSummaryBoundsPreviews(t *testing.T) {
	s := NewStore()

	s.Add("sess", models.Artifact{
		AgentType:       "researcher",
		TaskDescription: "survey the archive",
		Sources:         []string{"s1", "s2", "s3", "s4", "s5"},
		Findings:        []string{"f1", "f2"},
		Issues: []models.ArtifactIssue{
			{Severity: "critical", Description: "missing box 4"},
			{Severity: "warning", Description: "dates uncertain"},
			{Severity: "warning", Description: "scan quality"},
		},
		Content: strings.Repeat("long content ", 50),
	})
	s.Add("sess", models.Artifact{
		AgentType:       "writer",
		TaskDescription: "draft the report",
		Content:         "short",
	})

	got := s.BuildContextSummary("sess")

	if !strings.Contains(got, "researcher_000") || !strings.Contains(got, "writer_001") {
		t.Errorf("summary must reference artifact ids:\n%s", got)
	}
	if !strings.Contains(got, "(+2 more)") {
		t.Errorf("expected +2 more tail for 5 sources:\n%s", got)
	}
	if strings.Contains(got, "s4") {
		t.Error("preview must cut sources beyond the bound")
	}
	if !strings.Contains(got, "1 critical, 2 warning") {
		t.Errorf("expected issue severity counts:\n%s", got)
	}
	if !strings.Contains(got, "## researcher") || !strings.Contains(got, "## writer") {
		t.Error("summary must group by agent type")
	}
	if strings.Contains(got, strings.Repeat("long content ", 20)) {
		t.Error("content preview must be truncated")
	}
}
