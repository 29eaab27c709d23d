// Package policy defines the redaction policy document, its validation,
// and the compiled form the daemon evaluates detections against.
package policy

// Document is the user-authored policy, loaded from YAML or JSON.
type Document struct {
	Version   int        `yaml:"version" json:"version"`
	Name      string     `yaml:"name" json:"name"`
	Rules     []Rule     `yaml:"rules" json:"rules"`
	Allowlist Allowlist  `yaml:"allowlist" json:"allowlist"`
	Detectors *Selectors `yaml:"detectors" json:"detectors"`
}

// Rule maps detections to an action. Exactly one of Label and Pattern must
// be set: Label matches the detection label (globs like "pii.*" allowed),
// Pattern is a regular expression run against the detected snippet.
// Precedence orders rules, lower values first, and must be unique within a
// document.
type Rule struct {
	Name       string `yaml:"name" json:"name"`
	Label      string `yaml:"label" json:"label"`
	Pattern    string `yaml:"pattern" json:"pattern"`
	Action     string `yaml:"action" json:"action"`
	Precedence int    `yaml:"precedence" json:"precedence"`
}

// Allowlist exempts specific values from redaction regardless of rules.
type Allowlist struct {
	Values   []string `yaml:"values" json:"values"`
	Patterns []string `yaml:"patterns" json:"patterns"`
}

// Selectors narrows which detectors a scan runs.
type Selectors struct {
	Include    []string `yaml:"include" json:"include"`
	Exclude    []string `yaml:"exclude" json:"exclude"`
	MaxResults int      `yaml:"max_results" json:"max_results"`
}

// Default returns the policy active before any load_policy call: no rules,
// so every detection falls through to MASK.
func Default() *Document {
	return &Document{Version: 1, Name: "default"}
}
