package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"library_service/pkg/database"
	"library_service/pkg/loans"
	"library_service/pkg/models"
)

func reviewJSON(r models.Review) gin.H {
	return gin.H{
		"id":          r.ID,
		"rating":      r.Rating,
		"comment":     r.Comment,
		"review_date": r.ReviewDate.Format(dateLayout),
		"user_id":     r.UserID,
		"book_id":     r.BookID,
		"created_at":  r.CreatedAt,
		"updated_at":  r.UpdatedAt,
	}
}

func validRating(rating int) error {
	if rating < 1 || rating > 5 {
		return invalidInput("rating must be between 1 and 5")
	}
	return nil
}

func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, invalidInput("%s must be formatted as YYYY-MM-DD", field)
	}
	return t, nil
}

func (s *server) listReviews(c *gin.Context) {
	var reviews []models.Review
	if err := s.db.WithContext(c.Request.Context()).Order("id").Find(&reviews).Error; err != nil {
		abortWithError(c, err)
		return
	}
	items := make([]gin.H, len(reviews))
	for i, r := range reviews {
		items[i] = reviewJSON(r)
	}
	c.JSON(http.StatusOK, items)
}

func (s *server) getReview(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var review models.Review
	if err := s.db.WithContext(c.Request.Context()).First(&review, id).Error; err != nil {
		abortWithError(c, database.TranslateError(err))
		return
	}
	c.JSON(http.StatusOK, reviewJSON(review))
}

func (s *server) createReview(c *gin.Context) {
	var request struct {
		Rating     int    `json:"rating" binding:"required"`
		Comment    string `json:"comment"`
		ReviewDate string `json:"review_date"`
		UserID     uint   `json:"user_id" binding:"required"`
		BookID     uint   `json:"book_id" binding:"required"`
	}
	if !bindJSON(c, &request) {
		return
	}
	if err := validRating(request.Rating); err != nil {
		abortWithError(c, err)
		return
	}

	reviewDate := s.loans.Today()
	if request.ReviewDate != "" {
		d, err := parseDate("review_date", request.ReviewDate)
		if err != nil {
			abortWithError(c, err)
			return
		}
		reviewDate = d
	}

	db := s.db.WithContext(c.Request.Context())
	if err := exists(db, &models.User{}, request.UserID); err != nil {
		abortWithError(c, fmt.Errorf("user %d: %w", request.UserID, err))
		return
	}
	if err := exists(db, &models.Book{}, request.BookID); err != nil {
		abortWithError(c, fmt.Errorf("book %d: %w", request.BookID, err))
		return
	}

	review := models.Review{
		Rating:     request.Rating,
		Comment:    request.Comment,
		ReviewDate: loans.Date(reviewDate),
		UserID:     request.UserID,
		BookID:     request.BookID,
	}
	if err := db.Create(&review).Error; err != nil {
		abortWithError(c, database.TranslateError(err))
		return
	}
	c.JSON(http.StatusCreated, reviewJSON(review))
}

func (s *server) updateReview(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var request struct {
		Rating     *int    `json:"rating"`
		Comment    *string `json:"comment"`
		ReviewDate *string `json:"review_date"`
	}
	if !bindJSON(c, &request) {
		return
	}
	if request.Rating != nil {
		if err := validRating(*request.Rating); err != nil {
			abortWithError(c, err)
			return
		}
	}

	var review models.Review
	db := s.db.WithContext(c.Request.Context())
	if err := db.First(&review, id).Error; err != nil {
		abortWithError(c, database.TranslateError(err))
		return
	}
	if request.Rating != nil {
		review.Rating = *request.Rating
	}
	if request.Comment != nil {
		review.Comment = *request.Comment
	}
	if request.ReviewDate != nil {
		d, err := parseDate("review_date", *request.ReviewDate)
		if err != nil {
			abortWithError(c, err)
			return
		}
		review.ReviewDate = d
	}
	if err := db.Save(&review).Error; err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, reviewJSON(review))
}

func (s *server) deleteReview(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res := s.db.WithContext(c.Request.Context()).Delete(&models.Review{}, id)
	if res.Error != nil {
		abortWithError(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		abortWithError(c, models.ErrNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}
