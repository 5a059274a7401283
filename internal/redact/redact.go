// Package redact scrubs sensitive values out of strings before they reach a
// log line or an error envelope. The patterns cover what this service
// actually carries around: database URLs, session JWTs, webhook ingest tokens
// and their HMAC signatures, webhook secrets, and user email addresses.
package redact

import "regexp"

// Redaction placeholders. Each pattern substitutes a named placeholder so a
// scrubbed log line still says what kind of value was removed.
const (
	CredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	KeyPlaceholder        = "[REDACTED_KEY]"
	JWTPlaceholder        = "[REDACTED_JWT]"
	SignaturePlaceholder  = "[REDACTED_SIGNATURE]"
	TokenPlaceholder      = "[REDACTED_TOKEN]"
	EmailPlaceholder      = "[REDACTED_EMAIL]"
	PathPlaceholder       = "[REDACTED_PATH]"
)

type rule struct {
	pattern     *regexp.Regexp
	placeholder string
}

// Rules run in order: the connection-string and keyword rules eat their
// values before the narrower hex rules get a look, and the 64-hex signature
// rule must run before the 32-hex token rule so a signature is not half
// matched as a token.
var rules = []rule{
	// postgres://user:password@ in connection errors
	{regexp.MustCompile(`(?i)(postgres|postgresql|mysql)://[^@\s]+@`), CredentialPlaceholder},

	// password=... / pwd: ... fragments
	{regexp.MustCompile(`(?i)(password|passwd|pwd)([=:\s]['"]?)[^'"&\s]{3,}`), CredentialPlaceholder},

	// secret=..., session_secret: ..., api_key=... fragments, including the
	// per-webhook HMAC secret from webhook configs
	{regexp.MustCompile(`(?i)(secret|session[_-]?secret|api[_-]?key|access[_-]?key)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`), KeyPlaceholder},

	// session JWTs (three base64url segments)
	{regexp.MustCompile(`eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+`), JWTPlaceholder},

	// X-Hub-Signature-256 header values
	{regexp.MustCompile(`(?i)sha256=[0-9a-f]{64}`), SignaturePlaceholder},

	// webhook ingest tokens (32 lowercase hex chars)
	{regexp.MustCompile(`\b[0-9a-f]{32}\b`), TokenPlaceholder},

	// email addresses
	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), EmailPlaceholder},

	// absolute file paths leaked from config or migration errors
	{regexp.MustCompile(`(/[\w.-]+){2,}`), PathPlaceholder},
}

// String redacts sensitive values from the input string.
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, r := range rules {
		result = r.pattern.ReplaceAllString(result, r.placeholder)
	}
	return result
}

// Error redacts sensitive values from an error's message. A nil error
// redacts to the empty string.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
