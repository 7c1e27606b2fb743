package artifacts

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/ShayCichocki/dispatch/pkg/models"
)

// artifactPayload is the JSON shape of an ARTIFACTS block. All keys are
// optional; the block is a semi-structured protocol, not a schema.
type artifactPayload struct {
	Sources     []string               `json:"sources"`
	Findings    []string               `json:"findings"`
	Content     string                 `json:"content"`
	Issues      []models.ArtifactIssue `json:"issues"`
	Connections []string               `json:"connections"`
}

// Extract pulls an artifact out of free-text task output. It looks for an
// ARTIFACTS marker followed by a JSON object. Malformed JSON is first run
// through repair; anything still unparseable yields nil, never an error.
func Extract(agentType, taskDescription, output string) *models.Artifact {
	idx := strings.Index(output, "ARTIFACTS")
	if idx < 0 {
		return nil
	}

	raw := extractJSONObject(output[idx:])
	if raw == "" {
		return nil
	}

	var payload artifactPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(raw)
		if repairErr != nil {
			return nil
		}
		if err := json.Unmarshal([]byte(repaired), &payload); err != nil {
			return nil
		}
	}

	if len(payload.Sources) == 0 && len(payload.Findings) == 0 &&
		payload.Content == "" && len(payload.Issues) == 0 && len(payload.Connections) == 0 {
		return nil
	}

	return &models.Artifact{
		AgentType:       agentType,
		TaskDescription: taskDescription,
		Sources:         payload.Sources,
		Findings:        payload.Findings,
		Content:         payload.Content,
		Issues:          payload.Issues,
		Connections:     payload.Connections,
	}
}

// extractJSONObject returns the first balanced {...} span in text, or the
// remainder from the first brace when braces never balance, letting repair
// have a shot at truncated output.
func extractJSONObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return text[start:]
}
