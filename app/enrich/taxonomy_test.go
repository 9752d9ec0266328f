package enrich

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTaxonomy_Resolve(t *testing.T) {
	taxonomy, err := ParseTaxonomy([]byte(`
categories:
  - name: Research
    aliases: [science, study]
  - name: Shopping
    aliases: [purchase]
  - name: Other
fallback: Other
max_tags: 3
`))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	tests := []struct {
		raw      string
		expected string
	}{
		{"Research", "Research"},
		{"  research ", "Research"},
		{"SCIENCE", "Research"},
		{"purchase", "Shopping"},
		{"Gardening", "Other"},
		{"", "Other"},
	}

	for _, tt := range tests {
		if got := taxonomy.Resolve(tt.raw); got != tt.expected {
			t.Errorf("Resolve(%q): expected '%s', got '%s'", tt.raw, tt.expected, got)
		}
	}

	if taxonomy.MaxTags != 3 {
		t.Errorf("Expected max tags 3, got %d", taxonomy.MaxTags)
	}
}

func TestDefaultTaxonomy(t *testing.T) {
	taxonomy := DefaultTaxonomy()

	if len(taxonomy.Names()) != 12 {
		t.Errorf("Expected 12 default categories, got %d", len(taxonomy.Names()))
	}

	if taxonomy.Fallback != "Other" {
		t.Errorf("Expected fallback 'Other', got '%s'", taxonomy.Fallback)
	}

	prompt := taxonomy.SystemPrompt()
	if !strings.Contains(prompt, "Research") || !strings.Contains(prompt, "at most 5 tags") {
		t.Errorf("Expected prompt to list categories and tag cap, got: %s", prompt)
	}
}

func TestParseTaxonomy_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "Malformed YAML", data: "categories: [unclosed"},
		{name: "Unnamed category", data: "categories:\n  - aliases: [x]\n  - name: Other\n"},
		{name: "Unknown fallback", data: "categories:\n  - name: Work\nfallback: Misc\n"},
		{name: "Negative tag cap", data: "max_tags: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseTaxonomy([]byte(tt.data)); err == nil {
				t.Errorf("Expected error, got nil")
			}
		})
	}
}

func TestLoadTaxonomy(t *testing.T) {
	dir := t.TempDir()

	taxonomy, err := LoadTaxonomy(filepath.Join(dir, "missing.yml"))
	if err != nil {
		t.Fatalf("Expected no error for missing file, got: %v", err)
	}
	if taxonomy.Fallback != "Other" {
		t.Errorf("Expected default taxonomy for missing file")
	}

	path := filepath.Join(dir, "taxonomy.yml")
	if err := os.WriteFile(path, []byte("categories:\n  - name: Work\n  - name: Misc\nfallback: Misc\n"), 0644); err != nil {
		t.Fatalf("Failed to write taxonomy file: %v", err)
	}

	taxonomy, err = LoadTaxonomy(path)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if got := taxonomy.Resolve("unknown"); got != "Misc" {
		t.Errorf("Expected fallback 'Misc', got '%s'", got)
	}
}

func TestLoadTaxonomy_ShippedFile(t *testing.T) {
	taxonomy, err := LoadTaxonomy("../../config/taxonomy.yml")
	if err != nil {
		t.Fatalf("Expected shipped taxonomy to load, got: %v", err)
	}
	if got := taxonomy.Resolve("Other"); got != "Other" {
		t.Errorf("Expected 'Other' to resolve to itself, got '%s'", got)
	}
}
