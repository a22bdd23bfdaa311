package services

import (
	"context"

	"notevault-backend/internal/ai"
	"notevault-backend/internal/config"
	"notevault-backend/internal/logger"
	"notevault-backend/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// EnrichmentService drives the note enrichment pipeline: admission,
// chunking, embeddings, summary, tags, persistence and the event log.
// The model gateway and record store are injected.
type EnrichmentService struct {
	cfg     *config.Config
	store   NoteStore
	gateway ai.Gateway
	locks   *NoteLocks
}

func NewEnrichmentService(cfg *config.Config, store NoteStore, gateway ai.Gateway) *EnrichmentService {
	return &EnrichmentService{
		cfg:     cfg,
		store:   store,
		gateway: gateway,
		locks:   NewNoteLocks(),
	}
}

// EnrichmentResult is the outcome of a completed batch run.
type EnrichmentResult struct {
	Summary string   `json:"summary"`
	Tags    []string `json:"tags"`
	Chunks  int      `json:"chunks"`
	Tokens  int      `json:"tokens"`
}

// EstimateTokens approximates the token count of text as ceil(len/4).
// A fixed heuristic, not a tokenizer.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// CheckAdmission evaluates the configured eligibility thresholds for the
// given text. All entry points share this one gate.
func (s *EnrichmentService) CheckAdmission(text string) (Admission, error) {
	return CheckAdmission(text, s.cfg.MinContentLength, s.cfg.MaxWordCount)
}

// Process runs the batch pipeline to completion:
//
//	fetch -> admission -> chunk -> embeddings (best-effort) ->
//	summary (fallback) -> tags (fallback) -> persist -> event
//
// Admission failure and persistence failure are terminal; model failures
// are absorbed via the gateway's fallback values and never fail the run.
func (s *EnrichmentService) Process(ctx context.Context, noteID, userID primitive.ObjectID) (*EnrichmentResult, error) {
	tracer := otel.Tracer("enrichment")
	ctx, span := tracer.Start(ctx, "enrichment.process")
	defer span.End()
	span.SetAttributes(attribute.String("note.id", noteID.Hex()))

	note, err := s.store.GetNote(ctx, noteID, userID)
	if err != nil {
		return nil, err
	}

	text := note.Content
	if _, err := s.CheckAdmission(text); err != nil {
		return nil, err
	}

	if !s.locks.TryAcquire(noteID.Hex()) {
		return nil, ErrEnrichmentInProgress
	}
	defer s.locks.Release(noteID.Hex())

	chunks := ChunkText(text, s.cfg.ChunkSize, s.cfg.ChunkOverlap)
	span.SetAttributes(attribute.Int("enrichment.chunks", len(chunks)))

	s.generateEmbeddings(ctx, noteID, chunks)

	summary := s.gateway.Summarize(ctx, text)
	tags := s.gateway.GenerateTags(ctx, text)
	tokens := EstimateTokens(text)

	if err := s.store.UpdateEnrichment(ctx, noteID, summary, tags, tokens); err != nil {
		return nil, &PersistenceError{Op: "update note", Err: err}
	}

	s.logEvent(ctx, noteID, userID, map[string]interface{}{
		"chunks":         len(chunks),
		"tags":           tags,
		"tokens":         tokens,
		"summary_length": len(summary),
	})

	return &EnrichmentResult{
		Summary: summary,
		Tags:    tags,
		Chunks:  len(chunks),
		Tokens:  tokens,
	}, nil
}

// generateEmbeddings runs the best-effort embedding phase. Prior chunk
// rows are replaced so indices stay contiguous from 0 across re-runs.
// Chunks are embedded strictly in sequence; the first failed model call
// or insert abandons the rest of the phase, keeping whatever rows were
// already written. The pipeline continues either way.
func (s *EnrichmentService) generateEmbeddings(ctx context.Context, noteID primitive.ObjectID, chunks []string) {
	if err := s.store.DeleteChunks(ctx, noteID); err != nil {
		logger.Error("Failed to clear prior chunks, skipping embeddings",
			"note_id", noteID.Hex(), "error", err)
		return
	}

	for index, chunk := range chunks {
		embedding, err := s.gateway.Embed(ctx, chunk)
		if err != nil {
			logger.Error("Embedding generation failed, abandoning remaining chunks",
				"note_id", noteID.Hex(), "chunk_index", index, "error", err)
			return
		}
		if err := s.store.InsertChunk(ctx, noteID, index, chunk, embedding); err != nil {
			logger.Error("Chunk insert failed, abandoning remaining chunks",
				"note_id", noteID.Hex(), "chunk_index", index, "error", err)
			return
		}
	}
}

// logEvent appends a summarized event. Event-log failures are logged but
// do not fail a run whose results are already saved.
func (s *EnrichmentService) logEvent(ctx context.Context, noteID, userID primitive.ObjectID, details map[string]interface{}) {
	if err := s.store.AppendEvent(ctx, noteID, userID, models.EventSummarized, details); err != nil {
		logger.Error("Failed to append note event", "note_id", noteID.Hex(), "error", err)
	}
}
