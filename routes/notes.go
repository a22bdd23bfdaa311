package routes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"notevault-backend/internal/config"
	"notevault-backend/internal/logger"
	"notevault-backend/internal/queue"
	"notevault-backend/middleware"
	"notevault-backend/models"
	"notevault-backend/services"
	"notevault-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// withCommas renders n with thousands separators for user-facing messages.
func withCommas(n int) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	out := ""
	for i, digit := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out += ","
		}
		out += string(digit)
	}
	return out
}

// respondAdmissionError maps an admission rejection onto the 400 payloads
// the batch endpoints return.
func respondAdmissionError(c *gin.Context, cfg *config.Config, admissionErr *services.AdmissionError) {
	switch admissionErr.Reason {
	case services.ReasonTooShort:
		utils.RespondWithBadRequest(c,
			fmt.Sprintf("Insufficient content to process. Need at least %d characters.", cfg.MinContentLength),
			nil)
	case services.ReasonTooLong:
		utils.RespondWithBadRequest(c,
			fmt.Sprintf("Note exceeds %s word limit for AI processing", withCommas(cfg.MaxWordCount)),
			gin.H{"word_count": admissionErr.WordCount})
	default:
		utils.RespondWithBadRequest(c, "Content is not eligible for processing", nil)
	}
}

func SetupNoteRoutes(
	router *gin.Engine,
	cfg *config.Config,
	mongoClient *mongo.Client,
	authMW *middleware.AuthMiddleware,
	enrichment *services.EnrichmentService,
	store services.NoteStore,
	asynqClient *asynq.Client,
) {
	db := mongoClient.Database(cfg.DBName)
	notesCollection := db.Collection("notes")
	chunksCollection := db.Collection("note_chunks")
	eventsCollection := db.Collection("note_events")

	appendEvent := func(noteID, userID primitive.ObjectID, eventType string, details map[string]interface{}) {
		_, err := eventsCollection.InsertOne(context.Background(), models.NoteEvent{
			NoteID:    noteID,
			UserID:    userID,
			EventType: eventType,
			Details:   details,
			CreatedAt: time.Now(),
		})
		if err != nil {
			logger.Error("Failed to append note event", "note_id", noteID.Hex(), "error", err)
		}
	}

	notes := router.Group("/notes")
	notes.Use(authMW.RequireAuth())

	// Create note
	notes.POST("", func(c *gin.Context) {
		var req models.CreateNoteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}
		if req.Content == "" && req.Title == "" {
			utils.RespondWithBadRequest(c, "Note needs a title or content", nil)
			return
		}

		userID, err := primitive.ObjectIDFromHex(middleware.GetUserID(c))
		if err != nil {
			utils.RespondWithUnauthorized(c, "Invalid session")
			return
		}

		sourceType := req.SourceType
		if sourceType == "" {
			sourceType = "text"
		}

		now := time.Now()
		note := models.Note{
			UserID:     userID,
			Title:      req.Title,
			Content:    req.Content,
			SourceType: sourceType,
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		result, err := notesCollection.InsertOne(context.Background(), note)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to create note", nil)
			return
		}
		note.ID = result.InsertedID.(primitive.ObjectID)

		// Eligibility is advisory at creation time; processing is a
		// separate, explicit request.
		eligible := false
		if _, admErr := enrichment.CheckAdmission(note.Content); admErr == nil {
			eligible = true
		}

		appendEvent(note.ID, userID, models.EventCreated, map[string]interface{}{
			"source_type": sourceType,
			"eligible":    eligible,
		})

		c.JSON(http.StatusCreated, gin.H{
			"note":                    note,
			"eligible_for_processing": eligible,
		})
	})

	// List notes, newest first
	notes.GET("", func(c *gin.Context) {
		userID, err := primitive.ObjectIDFromHex(middleware.GetUserID(c))
		if err != nil {
			utils.RespondWithUnauthorized(c, "Invalid session")
			return
		}

		opts := options.Find().SetSort(bson.M{"created_at": -1}).SetLimit(100)
		cursor, err := notesCollection.Find(context.Background(), bson.M{"user_id": userID}, opts)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to fetch notes", nil)
			return
		}
		defer cursor.Close(context.Background())

		results := []models.Note{}
		if err := cursor.All(context.Background(), &results); err != nil {
			utils.RespondWithInternalError(c, "Failed to decode notes", nil)
			return
		}

		c.JSON(http.StatusOK, gin.H{"notes": results, "count": len(results)})
	})

	// Get one note
	notes.GET("/:id", func(c *gin.Context) {
		noteID, userID, ok := parseNoteRequest(c)
		if !ok {
			return
		}

		note, err := store.GetNote(c.Request.Context(), noteID, userID)
		if err != nil {
			if errors.Is(err, services.ErrNoteNotFound) {
				utils.RespondWithNotFound(c, "Note not found")
				return
			}
			utils.RespondWithInternalError(c, "Failed to fetch note", nil)
			return
		}

		c.JSON(http.StatusOK, note)
	})

	// Update note fields
	notes.PATCH("/:id", func(c *gin.Context) {
		noteID, userID, ok := parseNoteRequest(c)
		if !ok {
			return
		}

		var req models.UpdateNoteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		set := bson.M{"updated_at": time.Now()}
		changed := []string{}
		if req.Title != nil {
			set["title"] = *req.Title
			changed = append(changed, "title")
		}
		if req.Content != nil {
			set["content"] = *req.Content
			changed = append(changed, "content")
		}
		if req.Tags != nil {
			set["tags"] = req.Tags
			changed = append(changed, "tags")
		}
		if len(changed) == 0 {
			utils.RespondWithBadRequest(c, "No fields to update", nil)
			return
		}

		result, err := notesCollection.UpdateOne(context.Background(),
			bson.M{"_id": noteID, "user_id": userID},
			bson.M{"$set": set},
		)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to update note", nil)
			return
		}
		if result.MatchedCount == 0 {
			utils.RespondWithNotFound(c, "Note not found")
			return
		}

		appendEvent(noteID, userID, models.EventUpdated, map[string]interface{}{
			"fields": changed,
		})

		note, err := store.GetNote(c.Request.Context(), noteID, userID)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to fetch note", nil)
			return
		}
		c.JSON(http.StatusOK, note)
	})

	// Delete note and its chunks
	notes.DELETE("/:id", func(c *gin.Context) {
		noteID, userID, ok := parseNoteRequest(c)
		if !ok {
			return
		}

		result, err := notesCollection.DeleteOne(context.Background(),
			bson.M{"_id": noteID, "user_id": userID})
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to delete note", nil)
			return
		}
		if result.DeletedCount == 0 {
			utils.RespondWithNotFound(c, "Note not found")
			return
		}

		if _, err := chunksCollection.DeleteMany(context.Background(), bson.M{"note_id": noteID}); err != nil {
			logger.Error("Failed to delete note chunks", "note_id", noteID.Hex(), "error", err)
		}

		c.JSON(http.StatusOK, gin.H{"message": "Note deleted"})
	})

	// Run the enrichment pipeline. With ?async=1 the note is queued for a
	// background worker and the request returns immediately.
	notes.POST("/:id/process", func(c *gin.Context) {
		noteID, userID, ok := parseNoteRequest(c)
		if !ok {
			return
		}

		if c.Query("async") == "1" {
			// Ownership and eligibility are still checked inline so the
			// caller gets an immediate rejection instead of a silently
			// dropped task.
			note, err := store.GetNote(c.Request.Context(), noteID, userID)
			if err != nil {
				if errors.Is(err, services.ErrNoteNotFound) {
					utils.RespondWithNotFound(c, "Note not found")
					return
				}
				utils.RespondWithInternalError(c, "Failed to fetch note", nil)
				return
			}
			if _, err := enrichment.CheckAdmission(note.Content); err != nil {
				var admissionErr *services.AdmissionError
				if errors.As(err, &admissionErr) {
					respondAdmissionError(c, cfg, admissionErr)
					return
				}
				utils.RespondWithInternalError(c, "Failed to check note", nil)
				return
			}

			task, err := queue.NewEnrichNoteTask(noteID.Hex(), userID.Hex())
			if err != nil {
				utils.RespondWithInternalError(c, "Failed to queue note", nil)
				return
			}
			if _, err := asynqClient.Enqueue(task); err != nil {
				utils.RespondWithInternalError(c, "Failed to queue note", nil)
				return
			}

			c.JSON(http.StatusAccepted, gin.H{"message": "Note queued for processing"})
			return
		}

		result, err := enrichment.Process(c.Request.Context(), noteID, userID)
		if err != nil {
			var admissionErr *services.AdmissionError
			switch {
			case errors.As(err, &admissionErr):
				respondAdmissionError(c, cfg, admissionErr)
			case errors.Is(err, services.ErrNoteNotFound):
				utils.RespondWithNotFound(c, "Note not found")
			case errors.Is(err, services.ErrEnrichmentInProgress):
				utils.RespondWithConflict(c, "Note is already being processed")
			default:
				var persistenceErr *services.PersistenceError
				if errors.As(err, &persistenceErr) {
					utils.RespondWithInternalError(c, "Failed to update note with AI data", nil)
					return
				}
				utils.RespondWithInternalError(c, "Failed to process note", nil)
			}
			return
		}

		c.JSON(http.StatusOK, result)
	})

	// Stream the enrichment pipeline over SSE. Eligibility failures are
	// plain HTTP errors; once streaming starts, failures arrive as a
	// terminal error event.
	notes.GET("/:id/stream", func(c *gin.Context) {
		noteID, userID, ok := parseNoteRequest(c)
		if !ok {
			return
		}

		note, err := store.GetNote(c.Request.Context(), noteID, userID)
		if err != nil {
			if errors.Is(err, services.ErrNoteNotFound) {
				utils.RespondWithNotFound(c, "Note not found")
				return
			}
			utils.RespondWithInternalError(c, "Failed to fetch note", nil)
			return
		}

		if _, err := enrichment.CheckAdmission(note.Content); err != nil {
			var admissionErr *services.AdmissionError
			if errors.As(err, &admissionErr) && admissionErr.Reason == services.ReasonTooShort {
				utils.RespondWithBadRequest(c, "Insufficient content to process", nil)
				return
			}
			if errors.As(err, &admissionErr) {
				respondAdmissionError(c, cfg, admissionErr)
				return
			}
			utils.RespondWithInternalError(c, "Failed to check note", nil)
			return
		}

		flusher, ok := c.Writer.(http.Flusher)
		if !ok {
			utils.RespondWithInternalError(c, "Streaming not supported", nil)
			return
		}

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache, no-transform")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")
		c.Writer.WriteHeader(http.StatusOK)
		flusher.Flush()

		events := make(chan services.StreamEvent)
		go enrichment.ProcessStream(c.Request.Context(), note, userID, events)

		for event := range events {
			payload, err := json.Marshal(event)
			if err != nil {
				logger.Error("Failed to marshal stream event", "error", err)
				continue
			}
			fmt.Fprintf(c.Writer, "data: %s\n\n", payload)
			flusher.Flush()
		}
	})
}

// parseNoteRequest extracts the note id from the path and the user id
// from the session, writing the error response itself on failure.
func parseNoteRequest(c *gin.Context) (noteID, userID primitive.ObjectID, ok bool) {
	noteID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.RespondWithBadRequest(c, "Invalid note ID format", nil)
		return noteID, userID, false
	}
	userID, err = primitive.ObjectIDFromHex(middleware.GetUserID(c))
	if err != nil {
		utils.RespondWithUnauthorized(c, "Invalid session")
		return noteID, userID, false
	}
	return noteID, userID, true
}
