package services

import (
	"regexp"
)

var whitespaceRuns = regexp.MustCompile(`\s+`)

// Admission is the eligibility decision for automatic enrichment,
// computed per invocation and never persisted.
type Admission struct {
	Eligible  bool
	CharCount int
	WordCount int
}

// CountWords counts whitespace-delimited tokens by splitting on
// whitespace runs. Leading or trailing whitespace yields empty tokens
// that are counted too; this approximation is part of the policy
// contract and must not be "fixed".
func CountWords(text string) int {
	return len(whitespaceRuns.Split(text, -1))
}

// CheckAdmission is the single shared eligibility gate. Every entry point
// (note creation hint, batch endpoint, streaming endpoint, queue worker)
// goes through it so the thresholds cannot drift between call sites.
//
// Content under minContentLength characters is rejected regardless of
// word count; content over maxWordCount words is rejected to bound cost,
// with the computed count carried in the error for user messaging.
func CheckAdmission(text string, minContentLength, maxWordCount int) (Admission, error) {
	charCount := len(text)
	if charCount < minContentLength {
		return Admission{CharCount: charCount}, &AdmissionError{
			Reason:    ReasonTooShort,
			CharCount: charCount,
		}
	}

	wordCount := CountWords(text)
	if wordCount > maxWordCount {
		return Admission{CharCount: charCount, WordCount: wordCount}, &AdmissionError{
			Reason:    ReasonTooLong,
			CharCount: charCount,
			WordCount: wordCount,
		}
	}

	return Admission{Eligible: true, CharCount: charCount, WordCount: wordCount}, nil
}
