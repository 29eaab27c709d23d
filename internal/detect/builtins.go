package detect

// builtins lists the detectors every registry starts with. Order here is
// the order detectors run in, and the order Names reports.
var builtins = []entry{
	{"pii.email", wrap(detectEmail)},
	{"pii.phone", wrap(detectPhone)},
	{"pii.ssn", wrap(detectSSN)},
	{"pii.credit_card", wrap(detectCreditCard)},
	{"pii.iban", wrap(detectIBAN)},
	{"pii.ipv4", wrap(detectIPv4)},
	{"pii.ipv6", wrap(detectIPv6)},
	{"secrets.aws_access_key", wrap(detectAWSAccessKey)},
	{"secrets.google_api_key", wrap(detectGoogleAPIKey)},
	{"secrets.jwt", wrap(detectJWT)},
	{"secrets.private_key", wrap(detectPrivateKey)},
	{"secrets.bearer_token", wrap(detectBearerToken)},
	{"config.dotenv", wrap(detectDotenv)},
	{"config.url_creds", wrap(detectURLCreds)},
}
