package ai

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"filesorter/internal/models"
)

var (
	ErrNoJSONObject = errors.New("no JSON object in response")
	ErrInvalidJSON  = errors.New("response is not valid JSON")
)

// ClassificationError is returned when the classification request fails or
// its output cannot be parsed. Raw holds the model output, if any.
type ClassificationError struct {
	Raw string
	Err error
}

func (e *ClassificationError) Error() string {
	if e.Raw == "" {
		return fmt.Sprintf("분류 요청 또는 JSON 파싱 실패: %v", e.Err)
	}
	return fmt.Sprintf("분류 요청 또는 JSON 파싱 실패: %v\n응답 원문:\n%s", e.Err, e.Raw)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

// ExtractJSON pulls the JSON object out of a model reply. Markdown fences are
// dropped first, then everything outside the outermost braces.
func ExtractJSON(raw string) (models.ClassificationSpec, error) {
	text := stripFences(raw)
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return nil, ErrNoJSONObject
	}
	candidate := text[start : end+1]
	if !gjson.Valid(candidate) {
		return nil, ErrInvalidJSON
	}
	if !gjson.Parse(candidate).IsObject() {
		return nil, ErrNoJSONObject
	}
	return models.ClassificationSpec(pretty.Ugly([]byte(candidate))), nil
}

func stripFences(raw string) string {
	text := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(strings.ToLower(text), "```json"):
		text = text[len("```json"):]
	case strings.HasPrefix(text, "```"):
		text = text[len("```"):]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
