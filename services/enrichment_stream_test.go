package services

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func collectStream(t *testing.T, svc *EnrichmentService, store *fakeStore) []StreamEvent {
	t.Helper()
	events := make(chan StreamEvent)
	go svc.ProcessStream(context.Background(), store.note, store.note.UserID, events)

	var got []StreamEvent
	for event := range events {
		got = append(got, event)
	}
	return got
}

func terminalEvents(events []StreamEvent) []StreamEvent {
	var terminal []StreamEvent
	for _, event := range events {
		if event.Type == StreamComplete || event.Type == StreamError {
			terminal = append(terminal, event)
		}
	}
	return terminal
}

func TestProcessStreamHappyPath(t *testing.T) {
	note := testNote("plenty of content here to stream through the pipeline")
	store := &fakeStore{note: note}
	gateway := &fakeGateway{
		streamFragments: []string{"A note ", "about ", "streaming."},
		tags:            []string{"streaming", "notes"},
		embedFailAt:     -1,
	}
	svc := NewEnrichmentService(testConfig(), store, gateway)

	events := collectStream(t, svc, store)
	if len(events) == 0 {
		t.Fatal("no events received")
	}

	terminal := terminalEvents(events)
	if len(terminal) != 1 {
		t.Fatalf("got %d terminal events, want exactly 1", len(terminal))
	}
	last := events[len(events)-1]
	if last.Type != StreamComplete {
		t.Fatalf("last event type = %q, want %q", last.Type, StreamComplete)
	}

	var fragments strings.Builder
	sawTags := false
	for _, event := range events {
		switch event.Type {
		case StreamSummary:
			if sawTags {
				t.Error("summary fragment arrived after tags")
			}
			fragments.WriteString(event.Content)
		case StreamTags:
			sawTags = true
		}
	}
	if !sawTags {
		t.Error("no tags event received")
	}
	if fragments.String() != last.Summary {
		t.Errorf("fragments %q do not assemble into final summary %q", fragments.String(), last.Summary)
	}
	if last.Tokens != (len(note.Content)+3)/4 {
		t.Errorf("Tokens = %d, want %d", last.Tokens, (len(note.Content)+3)/4)
	}

	if !store.updated || store.savedSummary != last.Summary {
		t.Error("streaming results were not persisted")
	}
	if len(store.events) != 1 {
		t.Fatalf("got %d persisted events, want 1", len(store.events))
	}
	if store.events[0].details["streaming"] != true {
		t.Error("persisted event should be marked as streaming")
	}
}

func TestProcessStreamModelFailure(t *testing.T) {
	note := testNote("plenty of content here to stream through the pipeline")
	store := &fakeStore{note: note}
	gateway := &fakeGateway{streamErr: errors.New("upstream unavailable"), embedFailAt: -1}
	svc := NewEnrichmentService(testConfig(), store, gateway)

	events := collectStream(t, svc, store)

	last := events[len(events)-1]
	if last.Type != StreamError {
		t.Fatalf("last event type = %q, want %q", last.Type, StreamError)
	}
	if last.Message != "AI processing failed" {
		t.Errorf("error message = %q", last.Message)
	}
	if len(terminalEvents(events)) != 1 {
		t.Error("expected exactly one terminal event")
	}
	if store.updated {
		t.Error("nothing should be persisted after a failed stream")
	}
}

func TestProcessStreamPersistenceFailure(t *testing.T) {
	note := testNote("plenty of content here to stream through the pipeline")
	store := &fakeStore{note: note, updateErr: errors.New("write timeout")}
	gateway := &fakeGateway{
		streamFragments: []string{"summary"},
		tags:            []string{"general"},
		embedFailAt:     -1,
	}
	svc := NewEnrichmentService(testConfig(), store, gateway)

	events := collectStream(t, svc, store)

	last := events[len(events)-1]
	if last.Type != StreamError {
		t.Fatalf("last event type = %q, want %q", last.Type, StreamError)
	}
	if last.Message != "Failed to update note with AI data" {
		t.Errorf("error message = %q", last.Message)
	}
	if len(store.events) != 0 {
		t.Error("no event should be logged when the update fails")
	}
}

func TestProcessStreamConcurrentRunRejected(t *testing.T) {
	note := testNote("plenty of content here to stream through the pipeline")
	store := &fakeStore{note: note}
	svc := NewEnrichmentService(testConfig(), store, &fakeGateway{embedFailAt: -1})

	svc.locks.TryAcquire(note.ID.Hex())
	defer svc.locks.Release(note.ID.Hex())

	events := collectStream(t, svc, store)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Type != StreamError {
		t.Errorf("event type = %q, want %q", events[0].Type, StreamError)
	}
}

func TestProcessStreamDisconnectStopsProducer(t *testing.T) {
	note := testNote("plenty of content here to stream through the pipeline")
	store := &fakeStore{note: note}
	gateway := &fakeGateway{
		streamFragments: []string{"a", "b", "c"},
		tags:            []string{"general"},
		embedFailAt:     -1,
	}
	svc := NewEnrichmentService(testConfig(), store, gateway)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	events := make(chan StreamEvent)
	done := make(chan struct{})
	go func() {
		svc.ProcessStream(ctx, note, note.UserID, events)
		close(done)
	}()

	// Nobody reads from events; the cancelled context must unblock the
	// producer and let it close the channel.
	<-done
}
