package config

import (
	"os"
	"testing"
	"time"

	"github.com/ShayCichocki/dispatch/internal/quality"
)

func TestLoadAgentCatalogEmptyPathUsesDefaults(t *testing.T) {
	catalog, err := LoadAgentCatalog("")
	if err != nil {
		t.Fatalf("LoadAgentCatalog: %v", err)
	}
	if _, ok := catalog.Agent("researcher"); !ok {
		t.Error("defaults must include the researcher agent")
	}
}

func TestLoadAgentCatalogOverrides(t *testing.T) {
	path := writeFile(t, t.TempDir(), "agents.yaml", `
thresholds:
  pass: 0.75
agents:
  - type: curator
    dimensions: [selection, balance, annotation]
    pass_threshold: 0.85
remap:
  - agent_type: curator
    dimension: balance
    target: researcher
`)

	catalog, err := LoadAgentCatalog(path)
	if err != nil {
		t.Fatalf("LoadAgentCatalog: %v", err)
	}

	spec, ok := catalog.Agent("curator")
	if !ok {
		t.Fatal("expected curator agent")
	}
	if len(spec.Dimensions) != 3 || spec.Dimensions[0] != "selection" {
		t.Errorf("dimensions = %v", spec.Dimensions)
	}
	if spec.PassThreshold != 0.85 {
		t.Errorf("pass threshold = %v", spec.PassThreshold)
	}

	// Built-in agents survive a partial override file.
	if _, ok := catalog.Agent("writer"); !ok {
		t.Error("defaults must survive overrides")
	}
}

func TestLoadAgentCatalogRejectsWrongDimensionCount(t *testing.T) {
	path := writeFile(t, t.TempDir(), "agents.yaml", `
agents:
  - type: curator
    dimensions: [selection, balance]
`)

	if _, err := LoadAgentCatalog(path); err == nil {
		t.Fatal("expected error for 2 dimensions")
	}
}

func TestLoadAgentCatalogRejectsIncompleteRemap(t *testing.T) {
	path := writeFile(t, t.TempDir(), "agents.yaml", `
remap:
  - agent_type: writer
    dimension: grounding
`)

	if _, err := LoadAgentCatalog(path); err == nil {
		t.Fatal("expected error for remap entry without target")
	}
}

func TestLoadAgentCatalogBadYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "agents.yaml", "agents: [\n")

	if _, err := LoadAgentCatalog(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestWatchAgentCatalogReloads(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "agents.yaml", "thresholds:\n  pass: 0.7\n")

	reloaded := make(chan *quality.Catalog, 4)
	cw, err := WatchAgentCatalog(path, func(c *quality.Catalog) {
		reloaded <- c
	}, t.Logf)
	if err != nil {
		t.Fatalf("WatchAgentCatalog: %v", err)
	}
	defer cw.Close()

	content := "agents:\n  - type: curator\n    dimensions: [selection, balance, annotation]\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	select {
	case catalog := <-reloaded:
		if _, ok := catalog.Agent("curator"); !ok {
			t.Error("reloaded catalog missing curator")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatchAgentCatalogSkipsBrokenFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "agents.yaml", "thresholds:\n  pass: 0.7\n")

	reloaded := make(chan *quality.Catalog, 4)
	cw, err := WatchAgentCatalog(path, func(c *quality.Catalog) {
		reloaded <- c
	}, t.Logf)
	if err != nil {
		t.Fatalf("WatchAgentCatalog: %v", err)
	}
	defer cw.Close()

	if err := os.WriteFile(path, []byte("agents: [\n"), 0644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	select {
	case <-reloaded:
		t.Fatal("broken file must not produce a reload")
	case <-time.After(300 * time.Millisecond):
	}
}
