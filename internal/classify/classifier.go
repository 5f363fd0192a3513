// Package classify maps transaction descriptions to spend categories using
// ordered keyword rules.
package classify

import (
	"strings"

	"github.com/Veraticus/spendmail/internal/model"
)

// Rule assigns Category to any description containing Keyword.
type Rule struct {
	Keyword  string `yaml:"keyword"`
	Category string `yaml:"category"`
}

// Classifier evaluates rules in order. The first rule whose keyword occurs
// in the description (case-insensitively) decides the category; there is no
// longest-match or specificity ranking.
type Classifier struct {
	fallback string
	rules    []compiledRule
}

type compiledRule struct {
	keyword  string
	category string
}

// New creates a classifier over rules, preserving their order.
func New(rules []Rule) *Classifier {
	c := &Classifier{
		fallback: model.DefaultCategory,
		rules:    make([]compiledRule, 0, len(rules)),
	}
	for _, r := range rules {
		kw := strings.ToLower(strings.TrimSpace(r.Keyword))
		if kw == "" {
			continue
		}
		c.rules = append(c.rules, compiledRule{keyword: kw, category: r.Category})
	}
	return c
}

// Classify returns the category for description.
func (c *Classifier) Classify(description string) string {
	if description == "" {
		return c.fallback
	}

	lower := strings.ToLower(description)
	for _, r := range c.rules {
		if strings.Contains(lower, r.keyword) {
			return r.category
		}
	}
	return c.fallback
}

// Len returns the number of active rules.
func (c *Classifier) Len() int {
	return len(c.rules)
}
