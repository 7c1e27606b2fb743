package host

import "testing"

func TestParseChecklist(t *testing.T) {
	output := `Progress so far:

- [x] Read the existing schema
- [ ] Write the migration
- [X] Confirm test coverage
not a checklist line
- [] malformed, skipped
`

	items := parseChecklist(output)
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d: %v", len(items), items)
	}

	if !items[0].Done || items[0].Text != "Read the existing schema" {
		t.Errorf("unexpected first item: %+v", items[0])
	}
	if items[1].Done || items[1].Text != "Write the migration" {
		t.Errorf("unexpected second item: %+v", items[1])
	}
	if !items[2].Done {
		t.Errorf("expected uppercase X to count as done: %+v", items[2])
	}
}

func TestParseChecklistEmpty(t *testing.T) {
	if items := parseChecklist("no checklist here"); len(items) != 0 {
		t.Errorf("expected no items, got %v", items)
	}
}
