package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"notevault-backend/internal/logger"
	"notevault-backend/services"

	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const TaskEnrichNote = "note:enrich"

// EnrichNotePayload identifies the note a background enrichment task
// should process.
type EnrichNotePayload struct {
	NoteID string `json:"note_id"`
	UserID string `json:"user_id"`
}

// NewEnrichNoteTask builds an asynq task for enriching one note.
func NewEnrichNoteTask(noteID, userID string) (*asynq.Task, error) {
	payload, err := json.Marshal(EnrichNotePayload{NoteID: noteID, UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal enrich payload: %w", err)
	}
	return asynq.NewTask(TaskEnrichNote, payload,
		asynq.MaxRetry(3),
		asynq.Timeout(5*time.Minute),
	), nil
}

// TaskProcessor handles background tasks pulled off the queue.
type TaskProcessor struct {
	enrichment *services.EnrichmentService
}

func NewTaskProcessor(enrichment *services.EnrichmentService) *TaskProcessor {
	return &TaskProcessor{enrichment: enrichment}
}

// HandleEnrichNote runs the batch enrichment pipeline for a queued note.
// Rejections that can never succeed on retry (ineligible content, note
// gone) skip the retry machinery; transient failures are retried.
func (p *TaskProcessor) HandleEnrichNote(ctx context.Context, task *asynq.Task) error {
	var payload EnrichNotePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal enrich payload: %v: %w", err, asynq.SkipRetry)
	}

	noteID, err := primitive.ObjectIDFromHex(payload.NoteID)
	if err != nil {
		return fmt.Errorf("invalid note id %q: %w", payload.NoteID, asynq.SkipRetry)
	}
	userID, err := primitive.ObjectIDFromHex(payload.UserID)
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", payload.UserID, asynq.SkipRetry)
	}

	result, err := p.enrichment.Process(ctx, noteID, userID)
	if err != nil {
		var admissionErr *services.AdmissionError
		if errors.As(err, &admissionErr) {
			logger.Info("Skipping ineligible note", "note_id", payload.NoteID, "reason", admissionErr.Reason)
			return fmt.Errorf("note not eligible: %v: %w", err, asynq.SkipRetry)
		}
		if errors.Is(err, services.ErrNoteNotFound) {
			logger.Info("Skipping missing note", "note_id", payload.NoteID)
			return fmt.Errorf("note not found: %w", asynq.SkipRetry)
		}
		return fmt.Errorf("failed to enrich note %s: %w", payload.NoteID, err)
	}

	logger.Info("Note enriched",
		"note_id", payload.NoteID,
		"chunks", result.Chunks,
		"tokens", result.Tokens,
	)
	return nil
}
