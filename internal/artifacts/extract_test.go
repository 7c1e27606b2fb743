package artifacts

import "testing"

func TestExtractWellFormedBlock(t *testing.T) {
	output := `All done. Findings below.

ARTIFACTS
{
  "sources": ["box 4", "ledger B"],
  "findings": ["the 1974 entries are duplicated"],
  "content": "Summary of the archive sweep.",
  "issues": [{"severity": "warning", "description": "dates uncertain"}],
  "connections": ["researcher_000"]
}
`
	a := Extract("researcher", "sweep the archive", output)
	if a == nil {
		t.Fatal("expected artifact")
	}
	if a.AgentType != "researcher" || a.TaskDescription != "sweep the archive" {
		t.Errorf("attribution wrong: %+v", a)
	}
	if len(a.Sources) != 2 || len(a.Findings) != 1 {
		t.Errorf("payload wrong: %+v", a)
	}
	if len(a.Issues) != 1 || a.Issues[0].Severity != "warning" {
		t.Errorf("issues wrong: %+v", a.Issues)
	}
	if len(a.Connections) != 1 || a.Connections[0] != "researcher_000" {
		t.Errorf("connections wrong: %+v", a.Connections)
	}
}

func TestExtractNoMarker(t *testing.T) {
	if a := Extract("writer", "draft", `{"findings": ["x"]}`); a != nil {
		t.Errorf("output without marker must yield nil, got %+v", a)
	}
}

func TestExtractMarkerWithoutObject(t *testing.T) {
	if a := Extract("writer", "draft", "ARTIFACTS: none this time"); a != nil {
		t.Errorf("marker without JSON must yield nil, got %+v", a)
	}
}

func TestExtractEmptyPayloadYieldsNil(t *testing.T) {
	if a := Extract("writer", "draft", `ARTIFACTS {}`); a != nil {
		t.Errorf("empty payload must yield nil, got %+v", a)
	}
}

func TestExtractRepairsTruncatedJSON(t *testing.T) {
	// Model stopped mid-object; repair should close it.
	output := `ARTIFACTS
{"findings": ["entry one", "entry two"`
	a := Extract("researcher", "sweep", output)
	if a == nil {
		t.Fatal("expected repaired artifact")
	}
	if len(a.Findings) != 2 {
		t.Errorf("expected both findings to survive repair, got %+v", a.Findings)
	}
}

func TestExtractRepairsTrailingComma(t *testing.T) {
	output := `ARTIFACTS
{"sources": ["a", "b",], "content": "c",}`
	a := Extract("researcher", "sweep", output)
	if a == nil {
		t.Fatal("expected repaired artifact")
	}
	if len(a.Sources) != 2 || a.Content != "c" {
		t.Errorf("repair produced wrong payload: %+v", a)
	}
}

func TestExtractIgnoresBracesInStrings(t *testing.T) {
	output := `ARTIFACTS {"content": "brace } inside"}`
	a := Extract("writer", "draft", output)
	if a == nil {
		t.Fatal("expected artifact")
	}
	if a.Content != "brace } inside" {
		t.Errorf("string-embedded brace mishandled: %q", a.Content)
	}
}

func TestExtractUnrecoverableYieldsNil(t *testing.T) {
	if a := Extract("writer", "draft", "ARTIFACTS {{{{"); a != nil {
		t.Errorf("unrecoverable JSON must yield nil, got %+v", a)
	}
}
