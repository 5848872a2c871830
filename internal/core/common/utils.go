package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSON is returned when a response contains no JSON object at all.
var ErrNoJSON = errors.New("no JSON object found in response")

// RepairJSON cleans a model response so it can be decoded. It strips markdown
// fences, drops any preamble before the first '{' and, when the text does not
// end with '}', truncates it after the last '}'.
func RepairJSON(response string) (string, error) {
	s := strings.TrimSpace(response)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	s = strings.TrimSpace(s)

	start := strings.IndexByte(s, '{')
	if start == -1 {
		return "", ErrNoJSON
	}
	s = s[start:]

	if !strings.HasSuffix(s, "}") {
		end := strings.LastIndexByte(s, '}')
		if end == -1 {
			return "", ErrNoJSON
		}
		s = s[:end+1]
	}
	return s, nil
}

// ParseJSON cleans and unmarshals a JSON string into a type T.
// It handles common LLM quirks like surrounding markdown or extra text.
func ParseJSON[T any](response string) (T, error) {
	var zero T
	jsonStr, err := RepairJSON(response)
	if err != nil {
		return zero, err
	}

	var result T
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return zero, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return result, nil
}

// NormalizeTaxID keeps only the digits of s and returns them when exactly
// nine remain. Anything else yields "".
func NormalizeTaxID(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() != 9 {
		return ""
	}
	return b.String()
}
