package routes

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"notevault-backend/internal/config"
	"notevault-backend/middleware"
	"notevault-backend/models"
	"notevault-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func SetupExportRoutes(router *gin.Engine, cfg *config.Config, mongoClient *mongo.Client, authMW *middleware.AuthMiddleware) {
	db := mongoClient.Database(cfg.DBName)
	notesCollection := db.Collection("notes")

	// Export all of the user's notes as a spreadsheet. Lives outside the
	// /notes group so the path cannot collide with the :id wildcard.
	router.GET("/export/notes", authMW.RequireAuth(), func(c *gin.Context) {
		userID, err := primitive.ObjectIDFromHex(middleware.GetUserID(c))
		if err != nil {
			utils.RespondWithUnauthorized(c, "Invalid session")
			return
		}

		opts := options.Find().SetSort(bson.M{"created_at": -1})
		cursor, err := notesCollection.Find(context.Background(), bson.M{"user_id": userID}, opts)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to fetch notes", nil)
			return
		}
		defer cursor.Close(context.Background())

		notes := []models.Note{}
		if err := cursor.All(context.Background(), &notes); err != nil {
			utils.RespondWithInternalError(c, "Failed to decode notes", nil)
			return
		}

		f := excelize.NewFile()
		defer f.Close()

		sheetName := "Notes"
		index, err := f.NewSheet(sheetName)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to build export", nil)
			return
		}
		f.SetActiveSheet(index)
		f.DeleteSheet("Sheet1")

		headers := []string{"Title", "Content", "Summary", "Tags", "Source", "Tokens", "Created", "Updated"}
		for i, header := range headers {
			cell := fmt.Sprintf("%c1", 'A'+i)
			f.SetCellValue(sheetName, cell, header)
		}

		for i, note := range notes {
			row := i + 2
			f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), note.Title)
			f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), note.Content)
			f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), note.Summary)
			f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), strings.Join(note.Tags, ", "))
			f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), note.SourceType)
			f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), note.Tokens)
			f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), note.CreatedAt.Format("2006-01-02 15:04:05"))
			f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), note.UpdatedAt.Format("2006-01-02 15:04:05"))
		}

		f.SetColWidth(sheetName, "A", "A", 30)
		f.SetColWidth(sheetName, "B", "C", 60)
		f.SetColWidth(sheetName, "D", "H", 18)

		filename := fmt.Sprintf("notes-export-%s.xlsx", time.Now().Format("2006-01-02"))
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

		if err := f.Write(c.Writer); err != nil {
			utils.RespondWithInternalError(c, "Failed to write export", nil)
			return
		}
		c.Status(http.StatusOK)
	})
}
