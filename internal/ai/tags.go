package ai

import (
	"encoding/json"
	"regexp"
	"strings"
)

// MaxTags caps how many tags a note can receive from one generation.
const MaxTags = 5

var quotedFragment = regexp.MustCompile(`"([^"]+)"`)

// DefaultTags returns the hardcoded pair used when no tags could be
// recovered from the model output.
func DefaultTags() []string {
	return []string{"general", "note"}
}

// ParseTagList recovers a tag list from raw model output in two stages:
// a strict JSON array parse first, then a best-effort scan for quoted
// substrings when the model wrapped the array in prose or returned
// something else entirely. Results are lowercased and capped at MaxTags;
// an empty result falls back to DefaultTags. It never fails.
func ParseTagList(raw string) []string {
	var tags []string

	var parsed []string
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &parsed); err == nil {
		tags = parsed
	} else {
		for _, match := range quotedFragment.FindAllStringSubmatch(raw, -1) {
			tags = append(tags, match[1])
		}
	}

	if len(tags) > MaxTags {
		tags = tags[:MaxTags]
	}
	for i, tag := range tags {
		tags[i] = strings.ToLower(tag)
	}

	if len(tags) == 0 {
		return DefaultTags()
	}
	return tags
}
