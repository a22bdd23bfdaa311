package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Note event types, fixed vocabulary
const (
	EventCreated    = "created"
	EventUpdated    = "updated"
	EventSummarized = "summarized"
)

// Note is a user's captured text item, optionally enriched with an
// AI-generated summary, tags and a token estimate.
type Note struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     primitive.ObjectID `bson:"user_id" json:"user_id"`
	Title      string             `bson:"title,omitempty" json:"title,omitempty"`
	Content    string             `bson:"content,omitempty" json:"content,omitempty"`
	FileURL    string             `bson:"file_url,omitempty" json:"file_url,omitempty"`
	SourceType string             `bson:"source_type" json:"source_type"`
	Summary    string             `bson:"summary,omitempty" json:"summary,omitempty"`
	Tags       []string           `bson:"tags,omitempty" json:"tags,omitempty"`
	Tokens     int                `bson:"tokens,omitempty" json:"tokens,omitempty"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}

// NoteChunk is one retrieval-sized segment of a note's content with its
// embedding vector. Indices are contiguous from 0 in extraction order.
type NoteChunk struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	NoteID     primitive.ObjectID `bson:"note_id" json:"note_id"`
	ChunkIndex int                `bson:"chunk_index" json:"chunk_index"`
	Content    string             `bson:"content" json:"content"`
	Embedding  []float32          `bson:"embedding,omitempty" json:"embedding,omitempty"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}

// NoteEvent is an append-only record of a pipeline outcome for a note.
type NoteEvent struct {
	ID        primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	NoteID    primitive.ObjectID     `bson:"note_id" json:"note_id"`
	UserID    primitive.ObjectID     `bson:"user_id" json:"user_id"`
	EventType string                 `bson:"event_type" json:"event_type"`
	Details   map[string]interface{} `bson:"details,omitempty" json:"details,omitempty"`
	CreatedAt time.Time              `bson:"created_at" json:"created_at"`
}

// Request/response payloads

type CreateNoteRequest struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	SourceType string `json:"source_type" binding:"omitempty,oneof=text audio pdf web"`
}

type UpdateNoteRequest struct {
	Title   *string  `json:"title" binding:"omitempty,min=1,max=500"`
	Content *string  `json:"content"`
	Tags    []string `json:"tags"`
}

type SearchRequest struct {
	Query string   `json:"query" binding:"required,min=1"`
	Tags  []string `json:"tags"`
}
