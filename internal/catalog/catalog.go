// Package catalog holds the mockup style table. It is decoded once from the
// embedded styles.yaml and never mutated afterwards.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// AllCategory selects every style in ByCategory.
const AllCategory = "all"

// Style describes one mockup transformation. Prompt is the instruction
// fragment handed to the generation pipeline verbatim.
type Style struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Category    string `yaml:"category" json:"category"`
	Prompt      string `yaml:"prompt" json:"prompt"`
	PreviewURL  string `yaml:"preview" json:"preview_url"`
}

type Category struct {
	ID    string `yaml:"id" json:"id"`
	Label string `yaml:"label" json:"label"`
}

type Catalog struct {
	categories []Category
	styles     []Style
	byID       map[string]int
}

type document struct {
	Categories []Category `yaml:"categories"`
	Styles     []Style    `yaml:"styles"`
}

//go:embed styles.yaml
var embedded []byte

var builtin = MustLoad(embedded)

// Load decodes and validates a catalog document.
func Load(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(doc.Styles) == 0 {
		return nil, errors.New("catalog has no styles")
	}

	known := make(map[string]struct{}, len(doc.Categories))
	for _, c := range doc.Categories {
		c.ID = strings.TrimSpace(c.ID)
		if c.ID == "" {
			return nil, errors.New("category with empty id")
		}
		if _, dup := known[c.ID]; dup {
			return nil, fmt.Errorf("duplicate category %q", c.ID)
		}
		known[c.ID] = struct{}{}
	}

	c := &Catalog{
		categories: doc.Categories,
		styles:     make([]Style, 0, len(doc.Styles)),
		byID:       make(map[string]int, len(doc.Styles)),
	}
	for _, s := range doc.Styles {
		s.ID = strings.TrimSpace(s.ID)
		s.Prompt = strings.TrimSpace(s.Prompt)
		switch {
		case s.ID == "":
			return nil, errors.New("style with empty id")
		case s.Prompt == "":
			return nil, fmt.Errorf("style %q has empty prompt", s.ID)
		case s.Category == AllCategory:
			return nil, fmt.Errorf("style %q uses reserved category %q", s.ID, AllCategory)
		}
		if _, ok := known[s.Category]; !ok {
			return nil, fmt.Errorf("style %q has unknown category %q", s.ID, s.Category)
		}
		if _, dup := c.byID[s.ID]; dup {
			return nil, fmt.Errorf("duplicate style %q", s.ID)
		}
		c.byID[s.ID] = len(c.styles)
		c.styles = append(c.styles, s)
	}

	return c, nil
}

func MustLoad(data []byte) *Catalog {
	c, err := Load(data)
	if err != nil {
		panic(err)
	}
	return c
}

// Builtin returns the embedded catalog.
func Builtin() *Catalog {
	return builtin
}

func (c *Catalog) Lookup(id string) (Style, bool) {
	idx, ok := c.byID[strings.TrimSpace(id)]
	if !ok {
		return Style{}, false
	}
	return c.styles[idx], true
}

// Default is the first style of the table.
func (c *Catalog) Default() Style {
	return c.styles[0]
}

func (c *Catalog) Styles() []Style {
	return append([]Style(nil), c.styles...)
}

// ByCategory filters styles, keeping table order. Empty or "all" returns everything.
func (c *Catalog) ByCategory(category string) []Style {
	category = strings.TrimSpace(category)
	if category == "" || category == AllCategory {
		return c.Styles()
	}
	var out []Style
	for _, s := range c.styles {
		if s.Category == category {
			out = append(out, s)
		}
	}
	return out
}

func (c *Catalog) Categories() []Category {
	return append([]Category(nil), c.categories...)
}

func (c *Catalog) CategoryLabel(id string) string {
	for _, cat := range c.categories {
		if cat.ID == id {
			return cat.Label
		}
	}
	return id
}

// Package-level helpers over the builtin table.

func Lookup(id string) (Style, bool)     { return builtin.Lookup(id) }
func Default() Style                     { return builtin.Default() }
func Styles() []Style                    { return builtin.Styles() }
func ByCategory(category string) []Style { return builtin.ByCategory(category) }
func Categories() []Category             { return builtin.Categories() }
