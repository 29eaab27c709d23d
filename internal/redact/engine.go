// Package redact rewrites text according to policy decisions and computes
// the structural diff between original and output.
package redact

import (
	"sort"
	"strings"

	"github.com/HPNChanel/data-guardian/internal/policy"
	"github.com/HPNChanel/data-guardian/internal/types"
)

// Marker replaces every masked region in redacted output.
const Marker = "[REDACTED]"

// Apply resolves each detection against the policy and rewrites text.
// Overlapping masked spans collapse into a single marker, and regions that
// already read as the marker are left alone, so redacting twice yields the
// same output.
func Apply(text string, dets []types.Detection, pol *policy.Compiled) (string, []types.Decision) {
	decisions := make([]types.Decision, 0, len(dets))
	var spans []span
	for _, d := range dets {
		dec := pol.Decide(d)
		decisions = append(decisions, dec)
		if dec.Action != types.ActionMask {
			continue
		}
		if d.Start < 0 || d.End > len(text) || d.Start > d.End {
			continue
		}
		if text[d.Start:d.End] == Marker {
			continue
		}
		spans = append(spans, span{d.Start, d.End})
	}
	return mask(text, spans), decisions
}

type span struct{ start, end int }

// mask replaces each coalesced span with one marker.
func mask(text string, spans []span) string {
	if len(spans) == 0 {
		return text
	}
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end < spans[j].end
	})
	merged := spans[:1]
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s.start <= last.end {
			if s.end > last.end {
				last.end = s.end
			}
			continue
		}
		merged = append(merged, s)
	}
	var b strings.Builder
	pos := 0
	for _, s := range merged {
		b.WriteString(text[pos:s.start])
		b.WriteString(Marker)
		pos = s.end
	}
	b.WriteString(text[pos:])
	return b.String()
}
