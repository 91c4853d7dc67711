// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// badUnicodeEscape matches \u escapes with fewer than four hex digits.
var badUnicodeEscape = regexp.MustCompile(`\\u([0-9a-fA-F]{0,3})([^0-9a-fA-F]|$)`)

// CleanJSON strips the decorations models put around JSON replies: Markdown
// code fences, a doubled outer brace pair, short \u escapes, and leading or
// trailing prose outside the outermost object.
func CleanJSON(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		if i := strings.Index(s, "\n"); i >= 0 {
			s = s[i+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}

	if strings.HasPrefix(s, "{{") && strings.HasSuffix(s, "}}") {
		s = s[1 : len(s)-1]
	}

	if start, end := strings.Index(s, "{"), strings.LastIndex(s, "}"); start >= 0 && end > start {
		s = s[start : end+1]
	}

	s = badUnicodeEscape.ReplaceAllStringFunc(s, func(m string) string {
		sub := badUnicodeEscape.FindStringSubmatch(m)
		digits := sub[1]
		return `\u` + strings.Repeat("0", 4-len(digits)) + digits + sub[2]
	})
	return s
}

// DecodeJSON cleans a model reply and unmarshals it into v. Failures wrap
// ErrMalformedOutput.
func DecodeJSON(reply string, v any) error {
	cleaned := CleanJSON(reply)
	if cleaned == "" {
		return fmt.Errorf("%w: %w", ErrMalformedOutput, ErrEmptyResponse)
	}
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return nil
}
