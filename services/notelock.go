package services

import "sync"

// NoteLocks guards against concurrent enrichment of the same note.
// Without it a duplicate trigger races the first run: duplicate chunk
// rows, clobbered summary. Locks are in-memory and scoped to the process;
// the queue worker and the API server each serialize their own runs.
type NoteLocks struct {
	inFlight sync.Map
}

func NewNoteLocks() *NoteLocks {
	return &NoteLocks{}
}

// TryAcquire marks the note as being enriched. Returns false if a run is
// already in flight.
func (l *NoteLocks) TryAcquire(noteID string) bool {
	_, loaded := l.inFlight.LoadOrStore(noteID, struct{}{})
	return !loaded
}

// Release clears the in-flight marker.
func (l *NoteLocks) Release(noteID string) {
	l.inFlight.Delete(noteID)
}
