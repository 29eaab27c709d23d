package policy

import (
	"regexp"
	"sort"

	doublestar "github.com/bmatcuk/doublestar/v4"

	"github.com/HPNChanel/data-guardian/internal/detect"
	"github.com/HPNChanel/data-guardian/internal/types"
)

type compiledRule struct {
	name       string
	label      string
	pattern    *regexp.Regexp
	action     types.Action
	precedence int
}

// Compiled is a validated document with its patterns compiled and rules
// sorted by precedence, ready for evaluation. A Compiled is immutable and
// safe for concurrent use.
type Compiled struct {
	doc           *Document
	rules         []compiledRule
	allowValues   map[string]bool
	allowPatterns []*regexp.Regexp
}

// Compile validates doc and prepares it for evaluation.
func Compile(doc *Document) (*Compiled, error) {
	if err := Validate(doc); err != nil {
		return nil, err
	}
	c := &Compiled{doc: doc, allowValues: make(map[string]bool, len(doc.Allowlist.Values))}
	for _, r := range doc.Rules {
		cr := compiledRule{
			name:       r.Name,
			label:      r.Label,
			action:     types.Action(r.Action),
			precedence: r.Precedence,
		}
		if r.Pattern != "" {
			cr.pattern = regexp.MustCompile(r.Pattern)
		}
		c.rules = append(c.rules, cr)
	}
	sort.SliceStable(c.rules, func(i, j int) bool {
		return c.rules[i].precedence < c.rules[j].precedence
	})
	for _, v := range doc.Allowlist.Values {
		c.allowValues[v] = true
	}
	for _, p := range doc.Allowlist.Patterns {
		c.allowPatterns = append(c.allowPatterns, regexp.MustCompile(p))
	}
	return c, nil
}

// Name returns the document's name.
func (c *Compiled) Name() string { return c.doc.Name }

// Document returns the source document.
func (c *Compiled) Document() *Document { return c.doc }

// ScanOptions translates the document's detector selectors for the
// registry.
func (c *Compiled) ScanOptions() detect.Options {
	if c.doc.Detectors == nil {
		return detect.Options{}
	}
	return detect.Options{
		Include:    c.doc.Detectors.Include,
		Exclude:    c.doc.Detectors.Exclude,
		MaxResults: c.doc.Detectors.MaxResults,
	}
}

// Decide resolves one detection. The allowlist is consulted first, then
// rules in precedence order; the first match wins. Detections no rule
// matches are masked.
func (c *Compiled) Decide(d types.Detection) types.Decision {
	if c.allowed(d.Snippet) {
		return types.Decision{Detector: d.Label, Action: types.ActionAllow, Reason: "allowlist"}
	}
	for _, r := range c.rules {
		if r.matches(d) {
			return types.Decision{Detector: d.Label, Action: r.action, Reason: r.name}
		}
	}
	return types.Decision{Detector: d.Label, Action: types.ActionMask, Reason: "default"}
}

func (c *Compiled) allowed(snippet string) bool {
	if snippet == "" {
		return false
	}
	if c.allowValues[snippet] {
		return true
	}
	for _, re := range c.allowPatterns {
		if re.MatchString(snippet) {
			return true
		}
	}
	return false
}

func (r compiledRule) matches(d types.Detection) bool {
	if r.pattern != nil {
		return r.pattern.MatchString(d.Snippet)
	}
	if r.label == d.Label {
		return true
	}
	ok, err := doublestar.Match(r.label, d.Label)
	return err == nil && ok
}
