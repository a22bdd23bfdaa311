package ai

import (
	"reflect"
	"strings"
	"testing"
)

func TestParseTagListStrictJSON(t *testing.T) {
	tags := ParseTagList(`["Go", "notes", "ai"]`)
	want := []string{"go", "notes", "ai"}
	if !reflect.DeepEqual(tags, want) {
		t.Fatalf("got %v, want %v", tags, want)
	}
}

func TestParseTagListTruncatesToFive(t *testing.T) {
	tags := ParseTagList(`["a","b","c","d","e","f","g"]`)
	if len(tags) != MaxTags {
		t.Fatalf("got %d tags, want %d", len(tags), MaxTags)
	}
	if tags[4] != "e" {
		t.Fatalf("expected first five tags kept in order, got %v", tags)
	}
}

func TestParseTagListQuotedRecovery(t *testing.T) {
	// Malformed model output that still contains quoted fragments
	tags := ParseTagList(`Here are your tags: "alpha" "beta"`)
	want := []string{"alpha", "beta"}
	if !reflect.DeepEqual(tags, want) {
		t.Fatalf("got %v, want %v", tags, want)
	}
}

func TestParseTagListDefaultFallback(t *testing.T) {
	for _, raw := range []string{"", "no tags here", "[]", "null"} {
		tags := ParseTagList(raw)
		if !reflect.DeepEqual(tags, DefaultTags()) {
			t.Fatalf("raw %q: got %v, want default pair", raw, tags)
		}
	}
}

func TestParseTagListAlwaysLowercaseNonEmpty(t *testing.T) {
	inputs := []string{
		`["ALPHA","Beta"]`,
		`The tags are "GAMMA" and "Delta".`,
		`garbage`,
	}
	for _, raw := range inputs {
		tags := ParseTagList(raw)
		if len(tags) == 0 || len(tags) > MaxTags {
			t.Fatalf("raw %q: got %d tags", raw, len(tags))
		}
		for _, tag := range tags {
			if tag != strings.ToLower(tag) {
				t.Fatalf("raw %q: tag %q not lowercase", raw, tag)
			}
		}
	}
}

func TestFallbackSummary(t *testing.T) {
	long := strings.Repeat("x", 250)
	got := FallbackSummary(long)
	want := "Note about: " + strings.Repeat("x", 100) + "..."
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	short := FallbackSummary("short note")
	if short != "Note about: short note..." {
		t.Fatalf("got %q", short)
	}
}
