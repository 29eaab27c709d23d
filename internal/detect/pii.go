package detect

import (
	"regexp"

	"github.com/HPNChanel/data-guardian/internal/types"
	"github.com/HPNChanel/data-guardian/internal/validate"
)

var (
	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phoneRe = regexp.MustCompile(`\+?[0-9][0-9 ().-]{5,18}[0-9]`)
	ssnRe   = regexp.MustCompile(`\b[0-9]{3}-[0-9]{2}-[0-9]{4}\b`)
)

func detectEmail(text string) []types.Detection {
	return regexSpans(text, emailRe, "pii.email", 0.85, nil)
}

// detectPhone matches loose phone-shaped runs and keeps only the ones with
// a plausible digit count that are not embedded in a longer digit run.
func detectPhone(text string) []types.Detection {
	var out []types.Detection
	for _, m := range phoneRe.FindAllStringIndex(text, -1) {
		if digitAt(text, m[0]-1) || digitAt(text, m[1]) {
			continue
		}
		snippet := text[m[0]:m[1]]
		if n := validate.DigitCount(snippet); n < 7 || n > 15 {
			continue
		}
		out = append(out, NewDetection("pii.phone", m[0], m[1], 0.6, snippet))
	}
	return out
}

func detectSSN(text string) []types.Detection {
	return regexSpans(text, ssnRe, "pii.ssn", 0.8, validSSN)
}

// validSSN rejects area, group and serial values the SSA never issues.
func validSSN(s string) bool {
	area, group, serial := s[:3], s[4:6], s[7:]
	if area == "000" || area == "666" || area[0] == '9' {
		return false
	}
	if group == "00" || serial == "0000" {
		return false
	}
	return true
}
