// Package redact scrubs secret-shaped substrings out of text before it is
// logged or persisted. Adapted from andymwolf-agentium's
// internal/security/scrubber.go, trimmed to the patterns relevant to this
// module's own credential surface (spec.md §6's ZAI_API_KEY/GEMINI_API_KEY/
// OPENAI_API_KEY, plus generic bearer/API-key/JWT shapes adapter stdout can
// plausibly echo back).
package redact

import "regexp"

var patterns = []*regexp.Regexp{
	// Generic "key: value" / "key=value" secrets, incl. the three named
	// provider env vars.
	regexp.MustCompile(`(?i)(api[_-]?key|apikey|access[_-]?token|auth[_-]?token|secret[_-]?key|zai[_-]?api[_-]?key|gemini[_-]?api[_-]?key|openai[_-]?api[_-]?key)[\s]*[:=][\s]*["']?([a-zA-Z0-9_\-./+=]{12,})["']?`),

	// Bearer tokens.
	regexp.MustCompile(`(?i)bearer\s+([a-zA-Z0-9_\-./+=]{12,})`),

	// GitHub-style tokens, in case an adapter's prompt leaks a repo credential.
	regexp.MustCompile(`gh[pousr]_[a-zA-Z0-9]{36}`),

	// JWTs.
	regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`),

	// PEM private key blocks.
	regexp.MustCompile(`-----BEGIN\s+(?:RSA\s+)?PRIVATE\s+KEY-----[\s\S]+?-----END\s+(?:RSA\s+)?PRIVATE\s+KEY-----`),
}

const mask = "[REDACTED]"

// Scrub returns input with every recognized secret-shaped substring
// replaced by a fixed mask. Safe to call on plain, non-secret text.
func Scrub(input string) string {
	out := input
	for _, p := range patterns {
		out = p.ReplaceAllString(out, mask)
	}
	return out
}
