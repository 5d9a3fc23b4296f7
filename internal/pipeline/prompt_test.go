package pipeline

import (
	"strings"
	"testing"

	"lifebook/pkg/domain"
)

func TestBuildNarrativePromptKeepsKeyOrder(t *testing.T) {
	answers := domain.AnswerSet{
		"second": "b",
		"first":  "a",
		"third":  "c",
	}
	labels := map[string]string{"first": "첫번째", "second": "두번째"}
	got := BuildNarrativePrompt([]string{"first", "second", "third"}, labels, answers)
	want := "Q: 첫번째\nA: a\n\nQ: 두번째\nA: b\n\nQ: third\nA: c"
	if got != want {
		t.Fatalf("prompt mismatch:\ngot:  %q\nwant: %q", got, want)
	}
}

func TestBuildNarrativePromptSkipsEmptyAnswers(t *testing.T) {
	answers := domain.AnswerSet{"a": "value", "b": "  ", "c": ""}
	got := BuildNarrativePrompt([]string{"a", "b", "c", "d"}, nil, answers)
	if strings.Contains(got, "b") || strings.Contains(got, "c") || strings.Contains(got, "d") {
		t.Fatalf("empty or absent answers should be skipped, got %q", got)
	}
	if got != "Q: a\nA: value" {
		t.Fatalf("unexpected prompt %q", got)
	}
}

func TestBuildProfilePromptUsesPlaceholder(t *testing.T) {
	fields := []ProfileField{
		{Key: "ask_theme", Label: "그림책 주제"},
		{Key: "ask_purpose", Label: "그림책 목적"},
	}
	answers := domain.AnswerSet{"ask_theme": "우정"}
	got := BuildProfilePrompt(fields, answers, "지정 안함")
	want := "- 그림책 주제: 우정\n- 그림책 목적: 지정 안함"
	if got != want {
		t.Fatalf("prompt mismatch:\ngot:  %q\nwant: %q", got, want)
	}
}

func TestParseNumberedList(t *testing.T) {
	raw := "1. 첫 번째 제목\n2. 두 번째 제목\n\n3. 세 번째 제목\n4. 네 번째 제목\n5. 다섯 번째 제목"
	got := ParseNumberedList(raw, 4)
	if len(got) != 4 {
		t.Fatalf("expected 4 items, got %d: %v", len(got), got)
	}
	if got[0] != "첫 번째 제목" || got[3] != "네 번째 제목" {
		t.Fatalf("prefixes not stripped: %v", got)
	}
}

func TestParseNumberedListKeepsUnnumberedLines(t *testing.T) {
	got := ParseNumberedList("2024년의 기록\n1. 제목", 4)
	if len(got) != 2 || got[0] != "2024년의 기록" {
		t.Fatalf("unnumbered line mangled: %v", got)
	}
}
