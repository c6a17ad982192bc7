package logging

import (
	"fmt"
	"regexp"
	"strings"
)

// Redactor masks credentials in log fields.
type Redactor struct {
	patterns []*redactPattern
}

type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Built-in pattern names.
const (
	PatternAWSAccessKey = "aws_access_key"
	PatternKeyValue     = "key_value"
	PatternAuthHeader   = "auth_header"
	PatternURLUserInfo  = "url_userinfo"
)

// NewRedactor creates a Redactor with the built-in patterns plus custom
// regular expressions, whose matches are replaced by "***". Invalid custom
// patterns are returned as an error.
func NewRedactor(custom []string) (*Redactor, error) {
	r := &Redactor{}
	r.addDefaultPatterns()

	for i, p := range custom {
		regex, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("redact pattern %d: %w", i, err)
		}
		r.patterns = append(r.patterns, &redactPattern{
			name:        fmt.Sprintf("custom_%d", i),
			regex:       regex,
			replacement: "***",
		})
	}

	return r, nil
}

func (r *Redactor) addDefaultPatterns() {
	defaults := []struct {
		name        string
		regex       string
		replacement string
	}{
		{PatternAWSAccessKey, `\b(AKIA|ASIA)[A-Z0-9]{16}\b`, "$1***"},
		{PatternKeyValue, `(?i)\b(password|passwd|pwd|secret|secret_key|token)=[^\s&]+`, "$1=***"},
		{PatternAuthHeader, `(?i)\b(Bearer|Negotiate|Basic)\s+[a-zA-Z0-9\-._~+/]+=*`, "$1 ***"},
		{PatternURLUserInfo, `(https?://)[^/\s:@]+:[^/\s@]+@`, "$1***@"},
	}

	for _, p := range defaults {
		r.patterns = append(r.patterns, &redactPattern{
			name:        p.name,
			regex:       regexp.MustCompile(p.regex),
			replacement: p.replacement,
		})
	}
}

// RedactString applies every pattern to value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}
	for _, pattern := range r.patterns {
		value = pattern.regex.ReplaceAllString(value, pattern.replacement)
	}
	return value
}

// RedactArgs redacts variadic log arguments of the form key1, value1, ...
func (r *Redactor) RedactArgs(args ...any) []any {
	if len(args) == 0 {
		return args
	}

	redacted := make([]any, len(args))
	copy(redacted, args)

	for i := 1; i < len(redacted); i += 2 {
		if key, ok := redacted[i-1].(string); ok && isSensitiveKey(key) {
			redacted[i] = redactValue(redacted[i])
			continue
		}
		if str, ok := redacted[i].(string); ok {
			redacted[i] = r.RedactString(str)
		}
	}

	return redacted
}

var sensitiveKeys = []string{
	"password", "passwd", "pwd",
	"secret", "token",
	"authorization", "credential",
	"access_key", "accesskey",
}

// isSensitiveKey checks if a key name indicates sensitive data.
func isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lowerKey, sensitive) {
			return true
		}
	}
	return false
}

// redactValue keeps a short prefix of string values for debugging.
func redactValue(value any) any {
	v, ok := value.(string)
	if !ok {
		return "***"
	}
	if v == "" {
		return ""
	}
	if len(v) <= 4 {
		return "***"
	}
	return v[:4] + "***"
}
