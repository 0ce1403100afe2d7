package jsonutil

import (
	"encoding/json"
	"strings"
)

// Clean strips markdown code fences and any prose surrounding the first
// JSON object or array in a model response.
func Clean(response string) string {
	response = strings.ReplaceAll(response, "```json", "")
	response = strings.ReplaceAll(response, "```", "")

	objStart := strings.Index(response, "{")
	arrStart := strings.Index(response, "[")

	start, end := objStart, strings.LastIndex(response, "}")
	if objStart < 0 || (arrStart >= 0 && arrStart < objStart) {
		start, end = arrStart, strings.LastIndex(response, "]")
	}

	if start >= 0 && end > start {
		response = response[start : end+1]
	}

	return strings.TrimSpace(response)
}

// Parse cleans a potentially fenced model response and unmarshals it.
func Parse(response string, target any) error {
	return json.Unmarshal([]byte(Clean(response)), target)
}
