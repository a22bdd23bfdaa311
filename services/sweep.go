package services

import (
	"context"
	"errors"
	"time"

	"notevault-backend/internal/config"
	"notevault-backend/internal/logger"
	"notevault-backend/models"

	"github.com/go-co-op/gocron"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SweepScheduler periodically picks up notes that have content but were
// never enriched (created before processing was requested, or whose
// enrichment run died) and enqueues them for background processing. The
// enqueue function is injected so the scheduler stays decoupled from the
// queue client.
type SweepScheduler struct {
	cfg       *config.Config
	notes     *mongo.Collection
	enqueue   func(noteID, userID string) error
	scheduler *gocron.Scheduler
}

func NewSweepScheduler(cfg *config.Config, db *mongo.Database, enqueue func(noteID, userID string) error) *SweepScheduler {
	return &SweepScheduler{
		cfg:       cfg,
		notes:     db.Collection("notes"),
		enqueue:   enqueue,
		scheduler: gocron.NewScheduler(time.UTC),
	}
}

// Start schedules the sweep at the configured interval and begins running
// it asynchronously.
func (s *SweepScheduler) Start() error {
	_, err := s.scheduler.Every(s.cfg.SweepInterval).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		s.Sweep(ctx)
	})
	if err != nil {
		return err
	}
	s.scheduler.StartAsync()
	logger.Info("Sweep scheduler started", "interval", s.cfg.SweepInterval.String())
	return nil
}

func (s *SweepScheduler) Stop() {
	s.scheduler.Stop()
}

// Sweep runs one pass: find up to SweepBatch unsummarized notes, filter
// through the shared admission gate, and enqueue the eligible ones.
// Ineligible notes are skipped quietly; they will never become eligible
// without an edit, and the next sweep re-evaluates them anyway.
func (s *SweepScheduler) Sweep(ctx context.Context) {
	filter := bson.M{
		"content": bson.M{"$ne": ""},
		"$or": []bson.M{
			{"summary": bson.M{"$exists": false}},
			{"summary": ""},
		},
	}

	opts := options.Find().
		SetSort(bson.M{"created_at": 1}).
		SetLimit(int64(s.cfg.SweepBatch))

	cursor, err := s.notes.Find(ctx, filter, opts)
	if err != nil {
		logger.Error("Sweep query failed", "error", err)
		return
	}
	defer cursor.Close(ctx)

	enqueued := 0
	skipped := 0
	for cursor.Next(ctx) {
		var note models.Note
		if err := cursor.Decode(&note); err != nil {
			logger.Error("Sweep decode failed", "error", err)
			continue
		}

		if _, err := CheckAdmission(note.Content, s.cfg.MinContentLength, s.cfg.MaxWordCount); err != nil {
			var admissionErr *AdmissionError
			if errors.As(err, &admissionErr) {
				skipped++
				continue
			}
			logger.Error("Sweep admission check failed", "note_id", note.ID.Hex(), "error", err)
			continue
		}

		if err := s.enqueue(note.ID.Hex(), note.UserID.Hex()); err != nil {
			logger.Error("Sweep enqueue failed", "note_id", note.ID.Hex(), "error", err)
			continue
		}
		enqueued++
	}

	if enqueued > 0 || skipped > 0 {
		logger.Info("Sweep pass complete", "enqueued", enqueued, "skipped", skipped)
	}
}
