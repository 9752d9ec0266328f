package enrich

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

const (
	defaultFallbackCategory = "Other"
	defaultMaxTags          = 5
)

var defaultCategories = []string{
	"Work", "Personal", "Ideas", "Research", "Shopping", "Travel",
	"Health", "Food", "Entertainment", "Finance", "Education", "Other",
}

const defaultPrompt = `You organize things people save for later: links, screenshots, photos and notes.
Given one saved item, answer with a JSON object with the keys:
"title" (short and descriptive, at most 80 characters),
"summary" (one or two sentences),
"category" (exactly one of the allowed categories),
"tags" (short lowercase keywords, most relevant first).`

type TaxonomyCategory struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
}

// Taxonomy is the closed set of categories an item can be filed under.
type Taxonomy struct {
	Categories []TaxonomyCategory `yaml:"categories"`
	Fallback   string             `yaml:"fallback"`
	MaxTags    int                `yaml:"max_tags"`
	Prompt     string             `yaml:"prompt"`

	lookup map[string]string
}

func DefaultTaxonomy() *Taxonomy {
	t := &Taxonomy{}
	for _, name := range defaultCategories {
		t.Categories = append(t.Categories, TaxonomyCategory{Name: name})
	}
	t.applyDefaults()
	return t
}

// LoadTaxonomy reads a taxonomy YAML file. A missing file yields the default taxonomy.
func LoadTaxonomy(path string) (*Taxonomy, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		slog.Debug("Taxonomy file not found, using defaults", "path", path)
		return DefaultTaxonomy(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return ParseTaxonomy(data)
}

func ParseTaxonomy(data []byte) (*Taxonomy, error) {
	var t Taxonomy
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if len(t.Categories) == 0 {
		for _, name := range defaultCategories {
			t.Categories = append(t.Categories, TaxonomyCategory{Name: name})
		}
	}

	t.applyDefaults()

	if err := t.validate(); err != nil {
		return nil, fmt.Errorf("invalid taxonomy: %w", err)
	}

	return &t, nil
}

func (t *Taxonomy) applyDefaults() {
	if t.Fallback == "" {
		t.Fallback = defaultFallbackCategory
	}
	if t.MaxTags == 0 {
		t.MaxTags = defaultMaxTags
	}
	if strings.TrimSpace(t.Prompt) == "" {
		t.Prompt = defaultPrompt
	}

	fold := cases.Fold()
	t.lookup = make(map[string]string)
	for _, category := range t.Categories {
		name := strings.TrimSpace(category.Name)
		t.lookup[fold.String(name)] = name
		for _, alias := range category.Aliases {
			key := fold.String(strings.TrimSpace(alias))
			if _, taken := t.lookup[key]; !taken {
				t.lookup[key] = name
			}
		}
	}
}

func (t *Taxonomy) validate() error {
	for i, category := range t.Categories {
		if strings.TrimSpace(category.Name) == "" {
			return fmt.Errorf("category at index %d has no name", i)
		}
	}
	if t.MaxTags < 0 {
		return fmt.Errorf("max_tags must be non-negative")
	}
	if _, ok := t.lookup[cases.Fold().String(t.Fallback)]; !ok {
		return fmt.Errorf("fallback category %q is not a listed category", t.Fallback)
	}
	return nil
}

// Resolve maps a model answer onto a canonical category name, or the fallback.
func (t *Taxonomy) Resolve(raw string) string {
	key := cases.Fold().String(strings.TrimSpace(raw))
	if key == "" {
		return t.Fallback
	}
	if name, ok := t.lookup[key]; ok {
		return name
	}
	return t.Fallback
}

func (t *Taxonomy) Names() []string {
	names := make([]string, 0, len(t.Categories))
	for _, category := range t.Categories {
		names = append(names, category.Name)
	}
	return names
}

// SystemPrompt is the instruction sent with every analysis call.
func (t *Taxonomy) SystemPrompt() string {
	return fmt.Sprintf("%s\nAllowed categories: %s.\nReturn at most %d tags. Respond with JSON only.",
		strings.TrimSpace(t.Prompt), strings.Join(t.Names(), ", "), t.MaxTags)
}
