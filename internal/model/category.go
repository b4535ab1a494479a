package model

import (
	"fmt"
	"strings"
)

// Category is one of the fixed study groupings a task or goal belongs to.
type Category string

const (
	CategoryDSA          Category = "dsa"
	CategoryDevelopment  Category = "development"
	CategorySystemDesign Category = "system_design"
	CategoryJobSearch    Category = "job_search"
)

// Categories lists every known category in display order.
var Categories = []Category{
	CategoryDSA,
	CategoryDevelopment,
	CategorySystemDesign,
	CategoryJobSearch,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return c.Index() >= 0
}

// Index returns the position of c in Categories, or -1 if unknown.
func (c Category) Index() int {
	for i, known := range Categories {
		if c == known {
			return i
		}
	}
	return -1
}

// Label renders the category for humans, e.g. "system_design" -> "System Design".
// DSA is kept upper case.
func (c Category) Label() string {
	if c == CategoryDSA {
		return "DSA"
	}
	words := strings.Split(string(c), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// ParseCategory converts user input into a Category. Hyphens and case are
// normalized so "System-Design" parses as system_design.
func ParseCategory(s string) (Category, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	normalized = strings.ReplaceAll(normalized, " ", "_")

	c := Category(normalized)
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}
