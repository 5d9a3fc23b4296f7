package pipeline

import (
	"fmt"
	"regexp"
	"strings"

	"lifebook/pkg/domain"
)

// BuildNarrativePrompt renders an answer set as Q/A pairs in the fixed order
// given by orderedKeys. Keys absent or empty in the answers are skipped, so
// the model only ever sees questions the user actually answered.
func BuildNarrativePrompt(orderedKeys []string, labels map[string]string, answers domain.AnswerSet) string {
	pairs := make([]string, 0, len(orderedKeys))
	for _, key := range orderedKeys {
		answer := answers.Get(key)
		if answer == "" {
			continue
		}
		label := labels[key]
		if label == "" {
			label = key
		}
		pairs = append(pairs, fmt.Sprintf("Q: %s\nA: %s", label, answer))
	}
	return strings.Join(pairs, "\n\n")
}

// ProfileField is one labelled line of a profile-style prompt.
type ProfileField struct {
	Key   string
	Label string
}

// BuildProfilePrompt renders answers as "- label: value" lines, substituting
// placeholder for missing answers so the model sees every field.
func BuildProfilePrompt(fields []ProfileField, answers domain.AnswerSet, placeholder string) string {
	lines := make([]string, 0, len(fields))
	for _, field := range fields {
		value := answers.Get(field.Key)
		if value == "" {
			value = placeholder
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", field.Label, value))
	}
	return strings.Join(lines, "\n")
}

var numberedPrefix = regexp.MustCompile(`^\d+\.\s*`)

// ParseNumberedList splits model output formatted as "1. item" lines into a
// list, stripping the numeric prefixes and dropping blank lines. The result
// is capped at max entries.
func ParseNumberedList(raw string, max int) []string {
	lines := strings.Split(raw, "\n")
	items := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(numberedPrefix.ReplaceAllString(strings.TrimSpace(line), ""))
		if line == "" {
			continue
		}
		items = append(items, line)
		if max > 0 && len(items) == max {
			break
		}
	}
	return items
}
