package detect

import (
	"regexp"

	"github.com/HPNChanel/data-guardian/internal/types"
)

var (
	awsKeyRe    = regexp.MustCompile(`\b(?:AKIA|ASIA|ABIA|ACCA)[0-9A-Z]{16}\b`)
	googleKeyRe = regexp.MustCompile(`\bAIza[0-9A-Za-z_-]{35}\b`)
	bearerRe    = regexp.MustCompile(`(?i)\bbearer[ \t]+[A-Za-z0-9._~+/-]{16,}=*`)
)

func detectAWSAccessKey(text string) []types.Detection {
	return regexSpans(text, awsKeyRe, "secrets.aws_access_key", 0.9, nil)
}

func detectGoogleAPIKey(text string) []types.Detection {
	return regexSpans(text, googleKeyRe, "secrets.google_api_key", 0.9, nil)
}

func detectBearerToken(text string) []types.Detection {
	return regexSpans(text, bearerRe, "secrets.bearer_token", 0.8, nil)
}
