package services

import (
	"context"
	"time"

	"notevault-backend/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// NoteStore is the record-store contract the enrichment pipeline depends
// on. Access control is enforced by owner-scoping every read. Injected so
// tests run against fakes instead of a live database.
type NoteStore interface {
	GetNote(ctx context.Context, noteID, userID primitive.ObjectID) (*models.Note, error)
	UpdateEnrichment(ctx context.Context, noteID primitive.ObjectID, summary string, tags []string, tokens int) error
	DeleteChunks(ctx context.Context, noteID primitive.ObjectID) error
	InsertChunk(ctx context.Context, noteID primitive.ObjectID, index int, content string, embedding []float32) error
	AppendEvent(ctx context.Context, noteID, userID primitive.ObjectID, eventType string, details map[string]interface{}) error
}

// MongoNoteStore implements NoteStore over the notes, note_chunks and
// note_events collections.
type MongoNoteStore struct {
	notes  *mongo.Collection
	chunks *mongo.Collection
	events *mongo.Collection
}

func NewMongoNoteStore(db *mongo.Database) *MongoNoteStore {
	return &MongoNoteStore{
		notes:  db.Collection("notes"),
		chunks: db.Collection("note_chunks"),
		events: db.Collection("note_events"),
	}
}

func (s *MongoNoteStore) GetNote(ctx context.Context, noteID, userID primitive.ObjectID) (*models.Note, error) {
	var note models.Note
	err := s.notes.FindOne(ctx, bson.M{"_id": noteID, "user_id": userID}).Decode(&note)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNoteNotFound
		}
		return nil, err
	}
	return &note, nil
}

func (s *MongoNoteStore) UpdateEnrichment(ctx context.Context, noteID primitive.ObjectID, summary string, tags []string, tokens int) error {
	_, err := s.notes.UpdateOne(ctx,
		bson.M{"_id": noteID},
		bson.M{"$set": bson.M{
			"summary":    summary,
			"tags":       tags,
			"tokens":     tokens,
			"updated_at": time.Now(),
		}},
	)
	return err
}

func (s *MongoNoteStore) DeleteChunks(ctx context.Context, noteID primitive.ObjectID) error {
	_, err := s.chunks.DeleteMany(ctx, bson.M{"note_id": noteID})
	return err
}

func (s *MongoNoteStore) InsertChunk(ctx context.Context, noteID primitive.ObjectID, index int, content string, embedding []float32) error {
	_, err := s.chunks.InsertOne(ctx, models.NoteChunk{
		NoteID:     noteID,
		ChunkIndex: index,
		Content:    content,
		Embedding:  embedding,
		CreatedAt:  time.Now(),
	})
	return err
}

func (s *MongoNoteStore) AppendEvent(ctx context.Context, noteID, userID primitive.ObjectID, eventType string, details map[string]interface{}) error {
	_, err := s.events.InsertOne(ctx, models.NoteEvent{
		NoteID:    noteID,
		UserID:    userID,
		EventType: eventType,
		Details:   details,
		CreatedAt: time.Now(),
	})
	return err
}
