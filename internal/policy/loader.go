package policy

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValidationError collects every problem found in a document so callers can
// report them all at once.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid policy: %s", strings.Join(e.Problems, "; "))
}

// Parse decodes a policy document from YAML or JSON and validates it.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}
	if err := Validate(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// LoadFile reads and parses a policy document from disk.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy: %w", err)
	}
	return Parse(data)
}

// Validate checks the structural rules a document must satisfy.
func Validate(doc *Document) error {
	var problems []string
	seenPrec := make(map[int]string, len(doc.Rules))
	for i, r := range doc.Rules {
		name := r.Name
		if name == "" {
			name = fmt.Sprintf("rule[%d]", i)
			problems = append(problems, fmt.Sprintf("%s: missing name", name))
		}
		hasLabel := r.Label != ""
		hasPattern := r.Pattern != ""
		if hasLabel == hasPattern {
			problems = append(problems, fmt.Sprintf("%s: exactly one of label or pattern required", name))
		}
		if hasPattern {
			if _, err := regexp.Compile(r.Pattern); err != nil {
				problems = append(problems, fmt.Sprintf("%s: bad pattern: %v", name, err))
			}
		}
		switch r.Action {
		case "MASK", "ALLOW", "FLAG":
		default:
			problems = append(problems, fmt.Sprintf("%s: unknown action %q", name, r.Action))
		}
		if prev, dup := seenPrec[r.Precedence]; dup {
			problems = append(problems, fmt.Sprintf("%s: precedence %d already used by %s", name, r.Precedence, prev))
		} else {
			seenPrec[r.Precedence] = name
		}
	}
	for _, p := range doc.Allowlist.Patterns {
		if _, err := regexp.Compile(p); err != nil {
			problems = append(problems, fmt.Sprintf("allowlist pattern %q: %v", p, err))
		}
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
