package detect

import (
	"fmt"
	"regexp"

	xxhash "github.com/cespare/xxhash/v2"

	"github.com/HPNChanel/data-guardian/internal/types"
)

// NewDetection builds a detection with its stable ID derived from the
// label, span and snippet.
func NewDetection(label string, start, end int, score float64, snippet string) types.Detection {
	return types.Detection{
		ID:      spanID(label, start, end, snippet),
		Label:   label,
		Start:   start,
		End:     end,
		Score:   score,
		Snippet: snippet,
	}
}

// spanID returns a short content-addressed identifier. The same detection
// in the same input always gets the same ID.
func spanID(label string, start, end int, snippet string) string {
	sum := xxhash.Sum64String(fmt.Sprintf("%s|%d|%d|%s", label, start, end, snippet))
	var buf [16]byte
	const hexdigits = "0123456789abcdef"
	for i := 15; i >= 0; i-- {
		buf[i] = hexdigits[sum&0xF]
		sum >>= 4
	}
	return "det_" + string(buf[:])
}

// regexSpans emits one detection per regexp match, optionally filtered by a
// validator to cut false positives.
func regexSpans(text string, re *regexp.Regexp, label string, score float64, valid func(string) bool) []types.Detection {
	var out []types.Detection
	for _, m := range re.FindAllStringIndex(text, -1) {
		snippet := text[m[0]:m[1]]
		if valid != nil && !valid(snippet) {
			continue
		}
		out = append(out, NewDetection(label, m[0], m[1], score, snippet))
	}
	return out
}

// wrap adapts an infallible scanner to the DetectorFunc signature.
func wrap(f func(text string) []types.Detection) DetectorFunc {
	return func(text string) ([]types.Detection, error) {
		return f(text), nil
	}
}

// digitAt reports whether text[i] is an ASCII digit; out-of-range indexes
// are not digits.
func digitAt(text string, i int) bool {
	return i >= 0 && i < len(text) && text[i] >= '0' && text[i] <= '9'
}
