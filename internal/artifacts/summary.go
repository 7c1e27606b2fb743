package artifacts

import (
	"fmt"
	"strings"

	"github.com/ShayCichocki/dispatch/pkg/models"
)

// Preview bounds keep summaries short enough to inject into a follow-up
// prompt without ballooning it.
const (
	maxPreviewItems   = 3
	maxContentPreview = 200
)

// BuildContextSummary renders the session's accumulated artifacts as a
// bounded prompt injection. Returns "" when the session has none.
func (s *Store) BuildContextSummary(sessionID string) string {
	all := s.Get(sessionID)
	if len(all) == 0 {
		return ""
	}

	byType := make(map[string][]models.Artifact)
	var typeOrder []string
	for _, a := range all {
		if _, seen := byType[a.AgentType]; !seen {
			typeOrder = append(typeOrder, a.AgentType)
		}
		byType[a.AgentType] = append(byType[a.AgentType], a)
	}

	var sb strings.Builder
	sb.WriteString("Prior work from this session:\n")
	for _, agentType := range typeOrder {
		fmt.Fprintf(&sb, "\n## %s\n", agentType)
		for _, a := range byType[agentType] {
			fmt.Fprintf(&sb, "[%s] %s\n", a.ID, a.TaskDescription)
			writePreviewList(&sb, "sources", a.Sources)
			writePreviewList(&sb, "findings", a.Findings)
			if n := len(a.Issues); n > 0 {
				fmt.Fprintf(&sb, "  issues: %s\n", issueCounts(a.Issues))
			}
			if a.Content != "" {
				fmt.Fprintf(&sb, "  content: %s\n", truncate(a.Content, maxContentPreview))
			}
		}
	}
	return sb.String()
}

// writePreviewList renders at most maxPreviewItems entries with a "+N
// more" tail.
func writePreviewList(sb *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	shown := items
	if len(shown) > maxPreviewItems {
		shown = shown[:maxPreviewItems]
	}
	fmt.Fprintf(sb, "  %s: %s", label, strings.Join(shown, "; "))
	if extra := len(items) - len(shown); extra > 0 {
		fmt.Fprintf(sb, " (+%d more)", extra)
	}
	sb.WriteString("\n")
}

// issueCounts renders per-severity counts, e.g. "2 critical, 1 warning".
func issueCounts(issues []models.ArtifactIssue) string {
	counts := make(map[string]int)
	for _, issue := range issues {
		sev := issue.Severity
		if sev == "" {
			sev = "info"
		}
		counts[sev]++
	}

	var parts []string
	for _, sev := range []string{"critical", "warning", "info"} {
		if n := counts[sev]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, sev))
		}
	}
	return strings.Join(parts, ", ")
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
