package taxonomy

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"pressline/internal/services"
)

//go:embed taxonomy.yaml
var embeddedTaxonomy []byte

// Design is the presentation rule set assigned to a category.
type Design struct {
	Template   string   `yaml:"template" json:"template"`
	Layout     string   `yaml:"layout" json:"layout"`
	Palette    string   `yaml:"palette" json:"palette"`
	Components []string `yaml:"components" json:"components"`
}

// Category is one canonical category.
type Category struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Design      Design `yaml:"design"`
}

// Taxonomy is the loaded category set.
type Taxonomy struct {
	Default    string            `yaml:"default"`
	Categories []Category        `yaml:"categories"`
	Synonyms   map[string]string `yaml:"synonyms"`

	byName   map[string]Category
	synonyms map[string]string
}

// Embedded returns the taxonomy compiled into the binary.
func Embedded() *Taxonomy {
	tax, err := Parse(embeddedTaxonomy)
	if err != nil {
		panic(fmt.Sprintf("embedded taxonomy: %v", err))
	}
	return tax
}

// Load reads a taxonomy override from path, or the embedded taxonomy when path is empty.
func Load(path string) (*Taxonomy, error) {
	if strings.TrimSpace(path) == "" {
		return Embedded(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "load taxonomy", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates taxonomy YAML.
func Parse(data []byte) (*Taxonomy, error) {
	var tax Taxonomy
	if err := yaml.Unmarshal(data, &tax); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "parse taxonomy", "", err)
	}
	if err := tax.index(); err != nil {
		return nil, err
	}
	return &tax, nil
}

func (t *Taxonomy) index() error {
	if len(t.Categories) == 0 {
		return services.Wrap(services.ErrConfiguration, "", "parse taxonomy", "no categories defined", nil)
	}
	t.byName = make(map[string]Category, len(t.Categories))
	for _, cat := range t.Categories {
		name := Fold(cat.Name)
		if name == "" {
			return services.Wrap(services.ErrConfiguration, "", "parse taxonomy", "category with empty name", nil)
		}
		cat.Name = name
		t.byName[name] = cat
	}
	t.Default = Fold(t.Default)
	if _, ok := t.byName[t.Default]; !ok {
		return services.Wrap(services.ErrConfiguration, "", "parse taxonomy", fmt.Sprintf("default %q is not a category", t.Default), nil)
	}
	t.synonyms = make(map[string]string, len(t.Synonyms))
	for from, to := range t.Synonyms {
		target := Fold(to)
		if _, ok := t.byName[target]; !ok {
			return services.Wrap(services.ErrConfiguration, "", "parse taxonomy", fmt.Sprintf("synonym %s targets unknown category %q", from, to), nil)
		}
		t.synonyms[Fold(from)] = target
	}
	return nil
}

// Names returns canonical category names sorted alphabetically.
func (t *Taxonomy) Names() []string {
	names := make([]string, 0, len(t.byName))
	for name := range t.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the canonical category by name.
func (t *Taxonomy) Lookup(name string) (Category, bool) {
	cat, ok := t.byName[Fold(name)]
	return cat, ok
}

// DesignFor returns the design rules for category, falling back to the default category's rules.
func (t *Taxonomy) DesignFor(category string) (Design, bool) {
	if cat, ok := t.Lookup(category); ok {
		return cat.Design, true
	}
	return t.byName[t.Default].Design, false
}

// PromptList renders the taxonomy for inclusion in classifier prompts.
func (t *Taxonomy) PromptList() string {
	var b strings.Builder
	for _, name := range t.Names() {
		b.WriteString("- ")
		b.WriteString(name)
		if desc := strings.TrimSpace(t.byName[name].Description); desc != "" {
			b.WriteString(": ")
			b.WriteString(desc)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
