// Package parse recovers structured fragments from free-form model output.
// Generation protocols are asked to emit section suggestions as a JSON block;
// models frequently emit that JSON slightly malformed (single quotes, bare
// keys, trailing commas), so parsing falls back to jsonrepair before giving
// up.
package parse

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ErrNoSuggestions is returned when the text contains no recognizable
// suggestion block.
var ErrNoSuggestions = errors.New("parse: no section suggestions found")

// SectionSuggestion is one piece of generated content the model proposes for
// promotion into the document store.
type SectionSuggestion struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// suggestionsTagPattern matches <sections>[...]</sections> blocks. Dot-all so
// the array can span lines.
var suggestionsTagPattern = regexp.MustCompile(`(?s)<sections>\s*(\[.*?\])\s*</sections>`)

// fencedJSONPattern matches ```json ... ``` fenced blocks containing an array.
var fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\[.*?\\])\\s*```")

// ExtractSuggestions finds and decodes a section-suggestion block in model
// output. It checks <sections> tags first, then fenced JSON blocks. Malformed
// JSON is repaired before the decode is retried.
func ExtractSuggestions(text string) ([]SectionSuggestion, error) {
	raw := ""
	if match := suggestionsTagPattern.FindStringSubmatch(text); len(match) == 2 {
		raw = match[1]
	} else if match := fencedJSONPattern.FindStringSubmatch(text); len(match) == 2 {
		raw = match[1]
	}
	if raw == "" {
		return nil, ErrNoSuggestions
	}

	suggestions, err := decodeSuggestions(raw)
	if err != nil {
		return nil, err
	}

	kept := suggestions[:0]
	for _, suggestion := range suggestions {
		if strings.TrimSpace(suggestion.Content) != "" {
			kept = append(kept, suggestion)
		}
	}
	if len(kept) == 0 {
		return nil, ErrNoSuggestions
	}
	return kept, nil
}

func decodeSuggestions(raw string) ([]SectionSuggestion, error) {
	var suggestions []SectionSuggestion

	err := json.Unmarshal([]byte(raw), &suggestions)
	if err == nil {
		return suggestions, nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(raw)
	if repairErr != nil {
		return nil, fmt.Errorf("parse: suggestions block is not valid JSON and could not be repaired: %w (repair: %v)", err, repairErr)
	}

	if err := json.Unmarshal([]byte(repaired), &suggestions); err != nil {
		return nil, fmt.Errorf("parse: repaired suggestions block still failed to decode: %w", err)
	}
	return suggestions, nil
}
