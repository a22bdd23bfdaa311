package services

import (
	"context"

	"notevault-backend/internal/logger"
	"notevault-backend/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Stream event types.
const (
	StreamStatus   = "status"
	StreamSummary  = "summary"
	StreamTags     = "tags"
	StreamComplete = "complete"
	StreamError    = "error"
)

// StreamEvent is one frame of a streaming enrichment run. Fields are
// populated per type: Message for status and error, Content for summary
// fragments, Tags for tags, and Summary/Tags/Tokens for complete.
type StreamEvent struct {
	Type    string   `json:"type"`
	Message string   `json:"message,omitempty"`
	Content string   `json:"content,omitempty"`
	Tags    []string `json:"tags,omitempty"`
	Summary string   `json:"summary,omitempty"`
	Tokens  int      `json:"tokens,omitempty"`
}

// ProcessStream runs the streaming pipeline for an already-fetched,
// already-admitted note, writing progress frames to events. It always
// closes the channel after exactly one terminal frame (complete or
// error). Summary text is forwarded fragment by fragment as the model
// produces it; tags and embeddings run after the summary finishes.
//
// A failed model stream is terminal here, unlike the batch path: the
// client is watching, so a silent fallback would misrepresent what it
// saw stream in.
func (s *EnrichmentService) ProcessStream(ctx context.Context, note *models.Note, userID primitive.ObjectID, events chan<- StreamEvent) {
	defer close(events)

	noteID := note.ID

	if !s.locks.TryAcquire(noteID.Hex()) {
		send(ctx, events, StreamEvent{Type: StreamError, Message: "Note is already being processed"})
		return
	}
	defer s.locks.Release(noteID.Hex())

	text := note.Content

	if !send(ctx, events, StreamEvent{Type: StreamStatus, Message: "Generating summary..."}) {
		return
	}

	summary, err := s.gateway.SummarizeStream(ctx, text, func(fragment string) {
		send(ctx, events, StreamEvent{Type: StreamSummary, Content: fragment})
	})
	if err != nil {
		logger.Error("Streaming summarization failed", "note_id", noteID.Hex(), "error", err)
		send(ctx, events, StreamEvent{Type: StreamError, Message: "AI processing failed"})
		return
	}

	if !send(ctx, events, StreamEvent{Type: StreamStatus, Message: "Generating tags..."}) {
		return
	}
	tags := s.gateway.GenerateTags(ctx, text)
	if !send(ctx, events, StreamEvent{Type: StreamTags, Tags: tags}) {
		return
	}

	if !send(ctx, events, StreamEvent{Type: StreamStatus, Message: "Creating embeddings..."}) {
		return
	}
	chunks := ChunkText(text, s.cfg.ChunkSize, s.cfg.ChunkOverlap)
	s.generateEmbeddings(ctx, noteID, chunks)

	tokens := EstimateTokens(text)
	if err := s.store.UpdateEnrichment(ctx, noteID, summary, tags, tokens); err != nil {
		logger.Error("Failed to save streaming enrichment", "note_id", noteID.Hex(), "error", err)
		send(ctx, events, StreamEvent{Type: StreamError, Message: "Failed to update note with AI data"})
		return
	}

	s.logEvent(ctx, noteID, userID, map[string]interface{}{
		"chunks":         len(chunks),
		"tags":           tags,
		"tokens":         tokens,
		"summary_length": len(summary),
		"streaming":      true,
	})

	send(ctx, events, StreamEvent{
		Type:    StreamComplete,
		Summary: summary,
		Tags:    tags,
		Tokens:  tokens,
	})
}

// send delivers an event unless the consumer is gone. Returns false once
// the context is done so the producer can stop early instead of leaking.
func send(ctx context.Context, events chan<- StreamEvent, event StreamEvent) bool {
	select {
	case events <- event:
		return true
	case <-ctx.Done():
		return false
	}
}
