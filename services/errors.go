package services

import (
	"errors"
	"fmt"
)

// Admission rejection reasons
const (
	ReasonTooShort = "too_short"
	ReasonTooLong  = "too_long"
)

// ErrNoteNotFound is returned when a note does not exist or belongs to a
// different user.
var ErrNoteNotFound = errors.New("note not found")

// ErrEnrichmentInProgress is returned when a second enrichment is
// triggered for a note whose pipeline is still running.
var ErrEnrichmentInProgress = errors.New("enrichment already in progress for this note")

// AdmissionError is a terminal rejection by the admission policy. Nothing
// is persisted when it fires. The computed counts are carried so callers
// can report them verbatim.
type AdmissionError struct {
	Reason    string
	CharCount int
	WordCount int
}

func (e *AdmissionError) Error() string {
	switch e.Reason {
	case ReasonTooShort:
		return fmt.Sprintf("insufficient content to process: %d characters", e.CharCount)
	case ReasonTooLong:
		return fmt.Sprintf("note exceeds word limit for AI processing: %d words", e.WordCount)
	}
	return "note not eligible for AI processing"
}

// PersistenceError marks a failure to save results after generation work
// already completed. The enrichment output is lost and the run must be
// retried from scratch.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist enrichment (%s): %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
