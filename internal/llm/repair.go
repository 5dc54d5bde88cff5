package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Providers frequently wrap JSON in code fences or prose even when told not
// to, and occasionally emit near-JSON (single quotes, trailing commas, bare
// keys). ParseTolerant applies a fixed sequence of cleanup passes before
// giving up, so stage payload handling stays auditable in one place.

var (
	trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)
	bareKeyRe       = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
)

// ParseTolerant parses a provider response into a JSON object, tolerating
// markdown wrappers, surrounding prose, and common near-JSON defects. It
// returns a ParseError when no repair pass yields valid JSON.
func ParseTolerant(text string) (map[string]any, error) {
	candidates := []string{
		CleanJSONBlock(text),
	}
	extracted := ExtractJSONObject(candidates[0])
	if extracted != candidates[0] {
		candidates = append(candidates, extracted)
	}
	candidates = append(candidates, RepairJSON(extracted))

	var lastErr error
	for _, candidate := range candidates {
		var payload map[string]any
		if err := json.Unmarshal([]byte(candidate), &payload); err == nil {
			return payload, nil
		} else {
			lastErr = err
		}
	}
	return nil, &ParseError{Message: "response is not a JSON object after repair", Cause: lastErr}
}

// CleanJSONBlock removes markdown code fence wrappers from a response.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		// Skip a language identifier left on the first line.
		if idx := strings.Index(text, "\n"); idx >= 0 {
			firstLine := strings.TrimSpace(text[:idx])
			if firstLine != "" && len(firstLine) < 20 && !strings.ContainsAny(firstLine, " {[") {
				text = text[idx+1:]
			}
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	return text
}

// ExtractJSONObject extracts the first balanced JSON object from mixed
// content, dropping any prose around it. Input without braces is returned
// unchanged.
func ExtractJSONObject(text string) string {
	start := strings.Index(text, "{")
	if start == -1 {
		return text
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return text[start:]
}

// RepairJSON applies best-effort fixes for common near-JSON defects:
// trailing commas, bare keys, and single-quoted keys/values.
func RepairJSON(text string) string {
	text = fixTrailingCommas(text)
	text = quoteBareKeys(text)
	text = fixSingleQuotes(text)
	return text
}

// fixTrailingCommas removes commas directly before a closing brace/bracket.
func fixTrailingCommas(text string) string {
	return trailingCommaRe.ReplaceAllString(text, "$1")
}

// quoteBareKeys wraps unquoted object keys in double quotes.
func quoteBareKeys(text string) string {
	return bareKeyRe.ReplaceAllString(text, `$1"$2":`)
}

// fixSingleQuotes converts single-quoted keys and values to double-quoted.
// This is deliberately blunt; it runs only after stricter parses have failed.
func fixSingleQuotes(text string) string {
	return strings.ReplaceAll(text, "'", `"`)
}
