package detect

import (
	"regexp"
	"strings"

	"github.com/HPNChanel/data-guardian/internal/types"
	"github.com/HPNChanel/data-guardian/internal/validate"
)

// JWT headers are base64url-encoded JSON objects, so they always start
// with "eyJ".
var jwtRe = regexp.MustCompile(`\beyJ[A-Za-z0-9_-]{8,}\.[A-Za-z0-9_-]{8,}\.[A-Za-z0-9_-]{8,}\b`)

func detectJWT(text string) []types.Detection {
	return regexSpans(text, jwtRe, "secrets.jwt", 0.85, validJWT)
}

func validJWT(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if !validate.IsBase64URLNoPad(p) {
			return false
		}
	}
	return true
}
