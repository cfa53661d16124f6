// Package libredact scrubs credentials and bearer tokens from text before it
// is logged or posted to chat.
package libredact

import (
	"regexp"
	"strings"
)

// Placeholder replaces every redacted span.
const Placeholder = "<redacted>"

var bearerPattern = regexp.MustCompile(`(?i)bearer\s[\w+.-]+`)

// Redactor is immutable after New and safe for concurrent use.
type Redactor struct {
	secrets *regexp.Regexp
}

// New builds a Redactor for the given secrets. Empty values are ignored.
func New(secrets ...string) *Redactor {
	quoted := make([]string, 0, len(secrets))
	for _, s := range secrets {
		if s == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(s))
	}
	r := &Redactor{}
	if len(quoted) > 0 {
		r.secrets = regexp.MustCompile(strings.Join(quoted, "|"))
	}
	return r
}

// SplitList splits a comma separated list of secrets, trimming blanks.
func SplitList(list string) []string {
	var out []string
	for _, item := range strings.Split(list, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Redact returns text with configured secrets, bearer tokens and each
// extra substring replaced by Placeholder.
func (r *Redactor) Redact(text string, extra ...string) string {
	if r != nil && r.secrets != nil {
		text = r.secrets.ReplaceAllLiteralString(text, Placeholder)
	}
	text = bearerPattern.ReplaceAllLiteralString(text, Placeholder)
	for _, e := range extra {
		if e == "" {
			continue
		}
		text = strings.ReplaceAll(text, e, Placeholder)
	}
	return text
}
