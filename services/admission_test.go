package services

import (
	"errors"
	"strings"
	"testing"
)

func TestCountWords(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"single word", "hello", 1},
		{"simple sentence", "one two three", 3},
		{"collapsed whitespace", "one  two\tthree\nfour", 4},
		{"leading whitespace counts an empty token", " one two", 3},
		{"trailing whitespace counts an empty token", "one two ", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountWords(tt.text); got != tt.want {
				t.Errorf("CountWords(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestCheckAdmissionTooShort(t *testing.T) {
	_, err := CheckAdmission("short", 10, 5000)
	if err == nil {
		t.Fatal("expected error for content under the minimum length")
	}
	var admissionErr *AdmissionError
	if !errors.As(err, &admissionErr) {
		t.Fatalf("expected AdmissionError, got %T", err)
	}
	if admissionErr.Reason != ReasonTooShort {
		t.Errorf("Reason = %q, want %q", admissionErr.Reason, ReasonTooShort)
	}
	if admissionErr.CharCount != 5 {
		t.Errorf("CharCount = %d, want 5", admissionErr.CharCount)
	}
}

func TestCheckAdmissionTooLong(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("word ", 5001))

	_, err := CheckAdmission(text, 10, 5000)
	if err == nil {
		t.Fatal("expected error for content over the word limit")
	}
	var admissionErr *AdmissionError
	if !errors.As(err, &admissionErr) {
		t.Fatalf("expected AdmissionError, got %T", err)
	}
	if admissionErr.Reason != ReasonTooLong {
		t.Errorf("Reason = %q, want %q", admissionErr.Reason, ReasonTooLong)
	}
	if admissionErr.WordCount != 5001 {
		t.Errorf("WordCount = %d, want 5001", admissionErr.WordCount)
	}
}

func TestCheckAdmissionShortBeatsLong(t *testing.T) {
	// Below the character minimum the word limit is never evaluated, even
	// if the text would also exceed it.
	_, err := CheckAdmission("a b c", 10, 2)
	var admissionErr *AdmissionError
	if !errors.As(err, &admissionErr) {
		t.Fatalf("expected AdmissionError, got %v", err)
	}
	if admissionErr.Reason != ReasonTooShort {
		t.Errorf("Reason = %q, want %q", admissionErr.Reason, ReasonTooShort)
	}
}

func TestCheckAdmissionEligible(t *testing.T) {
	admission, err := CheckAdmission("this note has plenty of content to process", 10, 5000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !admission.Eligible {
		t.Error("expected eligible admission")
	}
	if admission.WordCount != 8 {
		t.Errorf("WordCount = %d, want 8", admission.WordCount)
	}
	if admission.CharCount != 42 {
		t.Errorf("CharCount = %d, want 42", admission.CharCount)
	}
}

func TestCheckAdmissionBoundaries(t *testing.T) {
	// Exactly the minimum length is admitted; exactly the word limit is
	// admitted. Rejection is strict inequality on both sides.
	if _, err := CheckAdmission("Exactly10.", 10, 5000); err != nil {
		t.Errorf("exactly min length should pass, got %v", err)
	}
	atLimit := strings.TrimSpace(strings.Repeat("word ", 5000))
	if _, err := CheckAdmission(atLimit, 10, 5000); err != nil {
		t.Errorf("exactly the word limit should pass, got %v", err)
	}
}
