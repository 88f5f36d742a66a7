package trace

import (
	"regexp"
	"strings"
)

// Redacted replaces denied values in sink output.
const Redacted = "[REDACTED]"

// DefaultDenyKeys are mapping keys whose values are always redacted,
// case-insensitively.
var DefaultDenyKeys = []string{
	"api_key",
	"authorization",
	"password",
	"token",
	"secret",
	"cookie",
	"session",
	"client_secret",
	"private_key",
}

// DefaultMaxText bounds string values before truncation.
const DefaultMaxText = 2048

type regexRule struct {
	pattern     *regexp.Regexp
	replacement string
}

var defaultRules = []regexRule{
	{regexp.MustCompile(`(?i)(Bearer\s+)[A-Za-z0-9.\-_=]+`), "${1}" + Redacted},
	{regexp.MustCompile(`([A-Za-z0-9]{4})[A-Za-z0-9]{8,}([A-Za-z0-9]{4})`), "${1}" + Redacted + "${2}"},
}

// Masker redacts sensitive fields and truncates large string payloads before
// they reach a sink.
type Masker struct {
	denyKeys map[string]bool
	maxText  int
	rules    []regexRule
}

// NewMasker builds a masker with the given deny keys and text bound. Zero
// maxText disables truncation.
func NewMasker(denyKeys []string, maxText int) *Masker {
	deny := make(map[string]bool, len(denyKeys))
	for _, key := range denyKeys {
		deny[strings.ToLower(key)] = true
	}
	return &Masker{denyKeys: deny, maxText: maxText, rules: defaultRules}
}

// DefaultMasker uses the default deny keys and text bound.
func DefaultMasker() *Masker {
	return NewMasker(DefaultDenyKeys, DefaultMaxText)
}

// Redact walks the value and returns a masked copy. The input is never
// mutated.
func (m *Masker) Redact(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			if m.denyKeys[strings.ToLower(key)] {
				out[key] = Redacted
				continue
			}
			out[key] = m.Redact(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = m.Redact(item)
		}
		return out
	case string:
		return m.sanitize(v)
	default:
		return v
	}
}

func (m *Masker) sanitize(text string) string {
	result := text
	for _, rule := range m.rules {
		result = rule.pattern.ReplaceAllString(result, rule.replacement)
	}
	if m.maxText > 0 && len(result) > m.maxText {
		return result[:m.maxText] + "..."
	}
	return result
}
