package redact

import (
	"unicode/utf8"

	"github.com/HPNChanel/data-guardian/internal/types"
)

// Diff computes the segment list between an original text and its redacted
// output: the shared prefix, at most one removed/added pair, and the shared
// suffix. Concatenating context and removed segments reproduces the
// original; context and added reproduce the output.
func Diff(original, output string) []types.Segment {
	if original == output {
		if original == "" {
			return nil
		}
		return []types.Segment{{Context: original}}
	}

	p := commonPrefix(original, output)
	s := commonSuffix(original[p:], output[p:])

	var segs []types.Segment
	if p > 0 {
		segs = append(segs, types.Segment{Context: original[:p]})
	}
	if removed := original[p : len(original)-s]; removed != "" {
		segs = append(segs, types.Segment{Removed: removed})
	}
	if added := output[p : len(output)-s]; added != "" {
		segs = append(segs, types.Segment{Added: added})
	}
	if s > 0 {
		segs = append(segs, types.Segment{Context: original[len(original)-s:]})
	}
	return segs
}

// commonPrefix returns the length in bytes of the longest shared prefix,
// backed off so it never splits a UTF-8 sequence.
func commonPrefix(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	for i > 0 && !utf8.RuneStart(a[i]) {
		i--
	}
	return i
}

// commonSuffix is commonPrefix from the other end; a and b must already
// have their shared prefix stripped.
func commonSuffix(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[len(a)-1-i] == b[len(b)-1-i] {
		i++
	}
	for i > 0 && !utf8.RuneStart(a[len(a)-i]) {
		i--
	}
	return i
}
