package detect

import (
	"regexp"

	"github.com/HPNChanel/data-guardian/internal/types"
	"github.com/HPNChanel/data-guardian/internal/validate"
)

var (
	cardRe = regexp.MustCompile(`[0-9][0-9 -]{11,21}[0-9]`)
	ibanRe = regexp.MustCompile(`\b[A-Z]{2}[0-9]{2}[A-Z0-9]{11,30}\b`)
)

// detectCreditCard matches digit runs with optional space or dash
// separators and keeps the ones that pass the Luhn checksum.
func detectCreditCard(text string) []types.Detection {
	var out []types.Detection
	for _, m := range cardRe.FindAllStringIndex(text, -1) {
		if digitAt(text, m[0]-1) || digitAt(text, m[1]) {
			continue
		}
		snippet := text[m[0]:m[1]]
		digits := validate.StripSeparators(snippet)
		if !validate.LengthBetween(digits, 13, 19) || !validate.Luhn(digits) {
			continue
		}
		out = append(out, NewDetection("pii.credit_card", m[0], m[1], 0.9, snippet))
	}
	return out
}

func detectIBAN(text string) []types.Detection {
	return regexSpans(text, ibanRe, "pii.iban", 0.7, validate.IBAN)
}
