package utils

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSONObject is returned when a model response contains no balanced JSON object.
var ErrNoJSONObject = errors.New("no JSON object found in model response")

// StripCodeFences removes a surrounding markdown code block (```json ... ``` or ``` ... ```).
func StripCodeFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		// drop the language tag on the opening fence line
		if nl := strings.IndexByte(cleaned, '\n'); nl >= 0 && !strings.ContainsAny(cleaned[:nl], "{[") {
			cleaned = cleaned[nl+1:]
		} else {
			cleaned = strings.TrimPrefix(cleaned, "json")
		}
		if idx := strings.LastIndex(cleaned, "```"); idx >= 0 {
			cleaned = cleaned[:idx]
		}
	}
	return strings.TrimSpace(cleaned)
}

// ExtractJSONObject returns the first balanced top-level {...} block in s.
// Braces inside JSON strings (including escaped quotes) are ignored.
func ExtractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	for start >= 0 {
		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(s); i++ {
			c := s[i]
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
				inString = true
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
		// unbalanced from this opening brace; try the next one
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// ParseModelResponse decodes the first JSON object found in a generative model response.
// Missing required keys are filled from defaults (or left absent when no default exists).
// The boolean is false when no object could be extracted or decoded; the returned map is
// then populated from defaults only. It never panics.
func ParseModelResponse(raw string, required []string, defaults map[string]any) (map[string]any, bool) {
	out := make(map[string]any, len(required))

	block, ok := ExtractJSONObject(StripCodeFences(raw))
	parsed := false
	if ok {
		if err := json.Unmarshal([]byte(block), &out); err == nil {
			parsed = true
		} else {
			out = make(map[string]any, len(required))
		}
	}

	for _, key := range required {
		if v, exists := out[key]; exists && v != nil {
			continue
		}
		if def, exists := defaults[key]; exists {
			out[key] = def
		}
	}

	return out, parsed
}

// DecodeModelResponse decodes the first JSON object of raw into target.
func DecodeModelResponse(raw string, target any) error {
	block, ok := ExtractJSONObject(StripCodeFences(raw))
	if !ok {
		return ErrNoJSONObject
	}
	return json.Unmarshal([]byte(block), target)
}

// DecodeModelResponseDefaults runs ParseModelResponse and decodes the defaulted object into
// target. It returns ErrNoJSONObject when raw holds no decodable object.
func DecodeModelResponseDefaults(raw string, required []string, defaults map[string]any, target any) error {
	out, ok := ParseModelResponse(raw, required, defaults)
	if !ok {
		return ErrNoJSONObject
	}
	data, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

// StringList returns the non-blank trimmed strings of a decoded JSON array.
// Non-string elements are skipped; anything other than an array yields nil.
func StringList(v any) []string {
	var items []any
	switch t := v.(type) {
	case []any:
		items = t
	case []string:
		for _, s := range t {
			items = append(items, s)
		}
	default:
		return nil
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
