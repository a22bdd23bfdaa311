package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"notevault-backend/internal/config"
	"notevault-backend/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeGateway struct {
	summary         string
	tags            []string
	streamFragments []string
	streamErr       error
	embedFailAt     int // chunk index that fails, -1 for never
	embedCalls      int
}

func (g *fakeGateway) Summarize(ctx context.Context, text string) string {
	return g.summary
}

func (g *fakeGateway) SummarizeStream(ctx context.Context, text string, onFragment func(fragment string)) (string, error) {
	if g.streamErr != nil {
		return "", g.streamErr
	}
	var full strings.Builder
	for _, fragment := range g.streamFragments {
		onFragment(fragment)
		full.WriteString(fragment)
	}
	return full.String(), nil
}

func (g *fakeGateway) GenerateTags(ctx context.Context, text string) []string {
	return g.tags
}

func (g *fakeGateway) Embed(ctx context.Context, text string) ([]float32, error) {
	call := g.embedCalls
	g.embedCalls++
	if g.embedFailAt >= 0 && call == g.embedFailAt {
		return nil, errors.New("embed failed")
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type storedChunk struct {
	index   int
	content string
}

type storedEvent struct {
	eventType string
	details   map[string]interface{}
}

type fakeStore struct {
	note      *models.Note
	updateErr error
	insertErr error
	appendErr error

	chunks        []storedChunk
	events        []storedEvent
	deletedChunks bool
	updated       bool
	savedSummary  string
	savedTags     []string
	savedTokens   int
}

func (s *fakeStore) GetNote(ctx context.Context, noteID, userID primitive.ObjectID) (*models.Note, error) {
	if s.note == nil || s.note.ID != noteID || s.note.UserID != userID {
		return nil, ErrNoteNotFound
	}
	return s.note, nil
}

func (s *fakeStore) UpdateEnrichment(ctx context.Context, noteID primitive.ObjectID, summary string, tags []string, tokens int) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updated = true
	s.savedSummary = summary
	s.savedTags = tags
	s.savedTokens = tokens
	return nil
}

func (s *fakeStore) DeleteChunks(ctx context.Context, noteID primitive.ObjectID) error {
	s.deletedChunks = true
	s.chunks = nil
	return nil
}

func (s *fakeStore) InsertChunk(ctx context.Context, noteID primitive.ObjectID, index int, content string, embedding []float32) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.chunks = append(s.chunks, storedChunk{index: index, content: content})
	return nil
}

func (s *fakeStore) AppendEvent(ctx context.Context, noteID, userID primitive.ObjectID, eventType string, details map[string]interface{}) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.events = append(s.events, storedEvent{eventType: eventType, details: details})
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		ChunkSize:        1000,
		ChunkOverlap:     150,
		MinContentLength: 10,
		MaxWordCount:     5000,
	}
}

func testNote(content string) *models.Note {
	return &models.Note{
		ID:      primitive.NewObjectID(),
		UserID:  primitive.NewObjectID(),
		Title:   "test note",
		Content: content,
	}
}

func TestProcessHappyPath(t *testing.T) {
	content := strings.Repeat("note text ", 250) // 2500 chars
	note := testNote(content)
	store := &fakeStore{note: note}
	gateway := &fakeGateway{
		summary:     "A note about note text.",
		tags:        []string{"notes", "testing"},
		embedFailAt: -1,
	}
	svc := NewEnrichmentService(testConfig(), store, gateway)

	result, err := svc.Process(context.Background(), note.ID, note.UserID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantChunks := len(ChunkText(content, 1000, 150))
	if result.Chunks != wantChunks {
		t.Errorf("Chunks = %d, want %d", result.Chunks, wantChunks)
	}
	if len(store.chunks) != wantChunks {
		t.Errorf("persisted %d chunks, want %d", len(store.chunks), wantChunks)
	}
	if !store.deletedChunks {
		t.Error("prior chunks were not cleared before re-embedding")
	}
	if result.Summary != gateway.summary {
		t.Errorf("Summary = %q, want %q", result.Summary, gateway.summary)
	}
	if result.Tokens != (len(content)+3)/4 {
		t.Errorf("Tokens = %d, want %d", result.Tokens, (len(content)+3)/4)
	}
	if !store.updated || store.savedSummary != gateway.summary {
		t.Error("enrichment was not persisted")
	}

	if len(store.events) != 1 {
		t.Fatalf("got %d events, want 1", len(store.events))
	}
	event := store.events[0]
	if event.eventType != models.EventSummarized {
		t.Errorf("event type = %q, want %q", event.eventType, models.EventSummarized)
	}
	if event.details["chunks"] != wantChunks {
		t.Errorf("event chunks = %v, want %d", event.details["chunks"], wantChunks)
	}
}

func TestProcessEmbeddingFailureIsNotFatal(t *testing.T) {
	content := strings.Repeat("x", 4000) // 5 chunks at size 1000 / overlap 150
	note := testNote(content)
	store := &fakeStore{note: note}
	gateway := &fakeGateway{
		summary:     "summary",
		tags:        []string{"general"},
		embedFailAt: 2,
	}
	svc := NewEnrichmentService(testConfig(), store, gateway)

	result, err := svc.Process(context.Background(), note.ID, note.UserID)
	if err != nil {
		t.Fatalf("embedding failure should not fail the run: %v", err)
	}

	// Chunks 0 and 1 were written before chunk 2 failed; 3 and 4 abandoned.
	if len(store.chunks) != 2 {
		t.Errorf("persisted %d chunks, want 2", len(store.chunks))
	}
	if !store.updated {
		t.Error("summary and tags should still be persisted")
	}
	// The reported chunk count reflects the chunking, not the writes.
	if result.Chunks != 5 {
		t.Errorf("Chunks = %d, want 5", result.Chunks)
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		length int
		want   int
	}{
		{0, 0},
		{1, 1},
		{4, 1},
		{5, 2},
		{2500, 625},
	}
	for _, tt := range tests {
		got := EstimateTokens(strings.Repeat("a", tt.length))
		if got != tt.want {
			t.Errorf("EstimateTokens(len %d) = %d, want %d", tt.length, got, tt.want)
		}
	}
}

func TestProcessAdmissionRejection(t *testing.T) {
	note := testNote("short")
	store := &fakeStore{note: note}
	svc := NewEnrichmentService(testConfig(), store, &fakeGateway{embedFailAt: -1})

	_, err := svc.Process(context.Background(), note.ID, note.UserID)
	var admissionErr *AdmissionError
	if !errors.As(err, &admissionErr) {
		t.Fatalf("expected AdmissionError, got %v", err)
	}
	if store.updated || store.deletedChunks || len(store.events) != 0 {
		t.Error("rejected note must not be touched")
	}
}

func TestProcessNoteNotFound(t *testing.T) {
	note := testNote("plenty of content here to process")
	store := &fakeStore{note: note}
	svc := NewEnrichmentService(testConfig(), store, &fakeGateway{embedFailAt: -1})

	_, err := svc.Process(context.Background(), note.ID, primitive.NewObjectID())
	if !errors.Is(err, ErrNoteNotFound) {
		t.Fatalf("expected ErrNoteNotFound for another user's note, got %v", err)
	}
}

func TestProcessPersistenceFailure(t *testing.T) {
	note := testNote("plenty of content here to process")
	store := &fakeStore{note: note, updateErr: errors.New("write timeout")}
	svc := NewEnrichmentService(testConfig(), store, &fakeGateway{
		summary:     "summary",
		tags:        []string{"general"},
		embedFailAt: -1,
	})

	_, err := svc.Process(context.Background(), note.ID, note.UserID)
	var persistenceErr *PersistenceError
	if !errors.As(err, &persistenceErr) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	if len(store.events) != 0 {
		t.Error("no event should be logged when the update fails")
	}
}

func TestProcessConcurrentRunRejected(t *testing.T) {
	note := testNote("plenty of content here to process")
	store := &fakeStore{note: note}
	svc := NewEnrichmentService(testConfig(), store, &fakeGateway{embedFailAt: -1})

	svc.locks.TryAcquire(note.ID.Hex())
	defer svc.locks.Release(note.ID.Hex())

	_, err := svc.Process(context.Background(), note.ID, note.UserID)
	if !errors.Is(err, ErrEnrichmentInProgress) {
		t.Fatalf("expected ErrEnrichmentInProgress, got %v", err)
	}
}

func TestProcessEventFailureIsNotFatal(t *testing.T) {
	note := testNote("plenty of content here to process")
	store := &fakeStore{note: note, appendErr: errors.New("events collection down")}
	svc := NewEnrichmentService(testConfig(), store, &fakeGateway{
		summary:     "summary",
		tags:        []string{"general"},
		embedFailAt: -1,
	})

	result, err := svc.Process(context.Background(), note.ID, note.UserID)
	if err != nil {
		t.Fatalf("event append failure should not fail the run: %v", err)
	}
	if result.Summary != "summary" {
		t.Errorf("Summary = %q, want %q", result.Summary, "summary")
	}
}
