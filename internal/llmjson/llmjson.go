// Package llmjson decodes JSON out of language-model responses, which are
// not guaranteed to be well-formed: models wrap payloads in code fences,
// prepend commentary, or trail explanations after the closing brace.
package llmjson

import (
	"encoding/json"
	"fmt"
)

// ParseError reports that neither a strict parse nor brace extraction
// produced valid JSON. Raw keeps the full model output for diagnostics.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("decode model output: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Decode tries a strict unmarshal of text into v. On failure it extracts
// the first balanced {...} span and parses that instead. If both attempts
// fail it returns a *ParseError carrying the raw text.
func Decode(text string, v any) error {
	strictErr := json.Unmarshal([]byte(text), v)
	if strictErr == nil {
		return nil
	}

	span, ok := Extract(text)
	if !ok {
		return &ParseError{Raw: text, Err: strictErr}
	}

	if err := json.Unmarshal([]byte(span), v); err != nil {
		return &ParseError{Raw: text, Err: err}
	}
	return nil
}

// Extract returns the first balanced top-level {...} span in text. The scan
// is string-aware so braces inside JSON string values do not affect depth.
func Extract(text string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		c := text[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			if start >= 0 {
				inString = true
			}
		case '{':
			if start < 0 {
				start = i
			}
			depth++
		case '}':
			if start < 0 {
				continue
			}
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}

	return "", false
}
