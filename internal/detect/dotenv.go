package detect

import (
	"regexp"
	"strings"

	"github.com/HPNChanel/data-guardian/internal/types"
)

var dotenvRe = regexp.MustCompile(`(?m)^(?:export[ \t]+)?[A-Z][A-Z0-9_]{2,}[ \t]*=[ \t]*\S.*$`)

// sensitiveKeyParts narrows dotenv matches to assignments whose variable
// name suggests a credential. Plain config like LOG_LEVEL=debug is skipped.
var sensitiveKeyParts = []string{
	"SECRET", "TOKEN", "KEY", "PASSWORD", "PASSWD", "PWD", "CREDENTIAL", "AUTH",
}

func detectDotenv(text string) []types.Detection {
	return regexSpans(text, dotenvRe, "config.dotenv", 0.4, func(s string) bool {
		name, _, ok := strings.Cut(s, "=")
		if !ok {
			return false
		}
		name = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(name), "export"))
		for _, part := range sensitiveKeyParts {
			if strings.Contains(name, part) {
				return true
			}
		}
		return false
	})
}
