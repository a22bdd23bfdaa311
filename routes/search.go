package routes

import (
	"context"
	"net/http"
	"regexp"

	"notevault-backend/internal/config"
	"notevault-backend/middleware"
	"notevault-backend/models"
	"notevault-backend/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const searchResultLimit = 20

func SetupSearchRoutes(router *gin.Engine, cfg *config.Config, mongoClient *mongo.Client, authMW *middleware.AuthMiddleware) {
	db := mongoClient.Database(cfg.DBName)
	notesCollection := db.Collection("notes")

	// Keyword search across the user's notes. Matches title, content and
	// summary case-insensitively, with optional tag filtering.
	// TODO: rank with the stored chunk embeddings once a vector index is
	// available; this is plain substring matching.
	router.POST("/search", authMW.RequireAuth(), func(c *gin.Context) {
		var req models.SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		userID, err := primitive.ObjectIDFromHex(middleware.GetUserID(c))
		if err != nil {
			utils.RespondWithUnauthorized(c, "Invalid session")
			return
		}

		// The query is user text, not a pattern
		pattern := regexp.QuoteMeta(req.Query)
		textMatch := bson.M{"$regex": pattern, "$options": "i"}

		filter := bson.M{
			"user_id": userID,
			"$or": []bson.M{
				{"title": textMatch},
				{"content": textMatch},
				{"summary": textMatch},
			},
		}
		if len(req.Tags) > 0 {
			filter["tags"] = bson.M{"$in": req.Tags}
		}

		opts := options.Find().
			SetSort(bson.M{"created_at": -1}).
			SetLimit(searchResultLimit)

		cursor, err := notesCollection.Find(context.Background(), filter, opts)
		if err != nil {
			utils.RespondWithInternalError(c, "Search failed", nil)
			return
		}
		defer cursor.Close(context.Background())

		results := []models.Note{}
		if err := cursor.All(context.Background(), &results); err != nil {
			utils.RespondWithInternalError(c, "Failed to decode search results", nil)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"results": results,
			"count":   len(results),
			"query":   req.Query,
		})
	})
}
