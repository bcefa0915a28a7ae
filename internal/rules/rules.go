// Package rules holds the static rule table used by stack validation:
// exclusive roles, tool dependencies and category coverage hints.
package rules

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

//go:embed default_rules.yaml
var defaultRules []byte

// Set is a complete rule table.
type Set struct {
	Roles        []Role       `yaml:"roles"`
	Dependencies []Dependency `yaml:"dependencies"`
	Coverage     []Coverage   `yaml:"coverage"`
}

// Role is a single-instance slot in a stack: at most one tool should fill it.
// Membership is by category name or by tool name, case-insensitively.
type Role struct {
	Name       string   `yaml:"name"`
	Categories []string `yaml:"categories"`
	Tools      []string `yaml:"tools"`
	Reason     string   `yaml:"reason"`
}

// Matches reports whether a tool with the given name and category fills the role.
func (r Role) Matches(toolName, categoryName string) bool {
	return containsFold(r.Tools, toolName) || (categoryName != "" && containsFold(r.Categories, categoryName))
}

// Dependency states that Tool needs another tool (Requires) or any tool from
// a category (RequiresCategory) in the same stack.
type Dependency struct {
	Tool             string `yaml:"tool"`
	Requires         string `yaml:"requires"`
	RequiresCategory string `yaml:"requires_category"`
	// Version is an optional semver constraint on the required tool.
	Version string `yaml:"version"`
	Reason  string `yaml:"reason"`

	constraint *semver.Constraints
}

// AppliesTo reports whether the rule is about the named tool.
func (d Dependency) AppliesTo(toolName string) bool {
	return strings.EqualFold(d.Tool, toolName)
}

// Target describes what the rule requires, for messages.
func (d Dependency) Target() string {
	switch {
	case d.RequiresCategory != "":
		return "a " + d.RequiresCategory + " tool"
	case d.Version != "":
		return d.Requires + " " + d.Version
	default:
		return d.Requires
	}
}

// SatisfiedBy reports whether a present tool at version meets the rule's
// version constraint. Tools without a recorded version get the benefit of
// the doubt; unparseable versions are reported as an error.
func (d Dependency) SatisfiedBy(version string) (bool, error) {
	if d.constraint == nil || version == "" {
		return true, nil
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return false, fmt.Errorf("invalid version %q: %w", version, err)
	}
	return d.constraint.Check(v), nil
}

// Coverage flags a stack that has no tool from Category.
type Coverage struct {
	Category       string `yaml:"category"`
	Warning        string `yaml:"warning"`
	Recommendation string `yaml:"recommendation"`
}

// Parse decodes and validates a YAML rule table.
func Parse(data []byte) (*Set, error) {
	var s Set
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load reads a rule file, or returns the built-in rules when path is empty.
func Load(path string) (*Set, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return Parse(data)
}

// Default returns the built-in rule table. It panics if the embedded file is
// invalid since that is a build-time bug.
func Default() *Set {
	s, err := Parse(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("embedded default rules: %v", err))
	}
	return s
}

func (s *Set) validate() error {
	for i, r := range s.Roles {
		if r.Name == "" {
			return fmt.Errorf("rules validation: role %d has no name", i)
		}
		if len(r.Categories) == 0 && len(r.Tools) == 0 {
			return fmt.Errorf("rules validation: role %q matches no categories or tools", r.Name)
		}
	}
	for i := range s.Dependencies {
		d := &s.Dependencies[i]
		if d.Tool == "" {
			return fmt.Errorf("rules validation: dependency %d has no tool", i)
		}
		if (d.Requires == "") == (d.RequiresCategory == "") {
			return fmt.Errorf("rules validation: dependency for %q needs exactly one of requires or requires_category", d.Tool)
		}
		if d.Version == "" {
			continue
		}
		if d.Requires == "" {
			return fmt.Errorf("rules validation: dependency for %q sets a version without a required tool", d.Tool)
		}
		c, err := semver.NewConstraint(d.Version)
		if err != nil {
			return fmt.Errorf("rules validation: dependency for %q: invalid version constraint %q: %w", d.Tool, d.Version, err)
		}
		d.constraint = c
	}
	for i, c := range s.Coverage {
		if c.Category == "" {
			return fmt.Errorf("rules validation: coverage rule %d has no category", i)
		}
	}
	return nil
}

func containsFold(values []string, s string) bool {
	return slices.ContainsFunc(values, func(v string) bool { return strings.EqualFold(v, s) })
}
