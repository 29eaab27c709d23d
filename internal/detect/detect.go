// Package detect runs pluggable scanners over input text and merges the
// sensitive spans they report. Detectors are independent and stateless; a
// failing detector never aborts a scan, it only contributes a warning.
package detect

import (
	"fmt"
	"sort"

	doublestar "github.com/bmatcuk/doublestar/v4"

	"github.com/HPNChanel/data-guardian/internal/types"
)

// DetectorFunc scans text and returns the spans it attributes to one label.
// Implementations must be stateless and safe for concurrent use.
type DetectorFunc func(text string) ([]types.Detection, error)

type entry struct {
	name string
	fn   DetectorFunc
}

// Warning records an isolated detector failure surfaced to the caller as a
// non-fatal diagnostic.
type Warning struct {
	Detector string `json:"detector"`
	Message  string `json:"message"`
}

// Result holds the merged, offset-ordered detections plus any per-detector
// failures.
type Result struct {
	Detections []types.Detection
	Warnings   []Warning
}

// Options narrows a scan. Include and Exclude are detector selectors,
// either exact names or globs like "pii.*". MaxResults, if positive,
// truncates the merged list keeping the earliest-starting detections.
type Options struct {
	Include    []string
	Exclude    []string
	MaxResults int
}

// Registry holds detectors in a stable order.
type Registry struct {
	entries []entry
}

// NewRegistry returns a registry preloaded with the builtin detectors.
func NewRegistry() *Registry {
	r := &Registry{}
	for _, e := range builtins {
		r.entries = append(r.entries, e)
	}
	return r
}

// Register adds a detector under a unique name.
func (r *Registry) Register(name string, fn DetectorFunc) error {
	for _, e := range r.entries {
		if e.name == name {
			return fmt.Errorf("detector already registered: %s", name)
		}
	}
	r.entries = append(r.entries, entry{name: name, fn: fn})
	return nil
}

// Names returns the registered detector names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.name)
	}
	return out
}

// Scan runs every selected detector over text and merges their spans.
// Overlapping spans from different detectors are preserved; resolving
// overlap is the redaction engine's job.
func (r *Registry) Scan(text string, opts Options) Result {
	var res Result
	for _, e := range r.entries {
		if !selected(e.name, opts) {
			continue
		}
		dets, err := runIsolated(e, text)
		if err != nil {
			res.Warnings = append(res.Warnings, Warning{Detector: e.name, Message: err.Error()})
			continue
		}
		res.Detections = append(res.Detections, dets...)
	}
	res.Detections = merge(res.Detections)
	if opts.MaxResults > 0 && len(res.Detections) > opts.MaxResults {
		res.Detections = res.Detections[:opts.MaxResults]
	}
	return res
}

// runIsolated shields the scan from detector panics as well as returned
// errors.
func runIsolated(e entry, text string) (dets []types.Detection, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			dets = nil
			err = fmt.Errorf("detector panic: %v", rec)
		}
	}()
	return e.fn(text)
}

func selected(name string, opts Options) bool {
	if len(opts.Include) > 0 && !matchAnySelector(name, opts.Include) {
		return false
	}
	if matchAnySelector(name, opts.Exclude) {
		return false
	}
	return true
}

func matchAnySelector(name string, selectors []string) bool {
	for _, s := range selectors {
		if s == name {
			return true
		}
		if ok, err := doublestar.Match(s, name); err == nil && ok {
			return true
		}
	}
	return false
}

// merge sorts detections by offset and drops duplicates reported for the
// same label and span.
func merge(dets []types.Detection) []types.Detection {
	sort.SliceStable(dets, func(i, j int) bool {
		if dets[i].Start != dets[j].Start {
			return dets[i].Start < dets[j].Start
		}
		if dets[i].End != dets[j].End {
			return dets[i].End < dets[j].End
		}
		return dets[i].Label < dets[j].Label
	})
	var out []types.Detection
	seen := make(map[string]bool, len(dets))
	for _, d := range dets {
		key := fmt.Sprintf("%s|%d|%d", d.Label, d.Start, d.End)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	return out
}
