package detect

import (
	"regexp"

	"github.com/HPNChanel/data-guardian/internal/types"
)

var privateKeyRe = regexp.MustCompile(`-----BEGIN (?:RSA |EC |DSA |OPENSSH |ENCRYPTED )?PRIVATE KEY-----(?s:.*?)-----END (?:RSA |EC |DSA |OPENSSH |ENCRYPTED )?PRIVATE KEY-----`)

func detectPrivateKey(text string) []types.Detection {
	return regexSpans(text, privateKeyRe, "secrets.private_key", 0.95, nil)
}
