package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"library_service/pkg/loans"
	"library_service/pkg/models"
)

const (
	dateLayout      = "2006-01-02"
	requestIDHeader = "X-Request-ID"
)

type server struct {
	db         *gorm.DB
	loans      *loans.Engine
	bcryptCost int
}

func newServer(db *gorm.DB, engine *loans.Engine, bcryptCost int) *server {
	return &server{db: db, loans: engine, bcryptCost: bcryptCost}
}

func (s *server) router() *gin.Engine {
	r := gin.New()
	r.Use(requestID(), gin.Logger(), gin.Recovery())

	r.GET("/", root)
	r.GET("/manage/health", s.healthCheck)

	r.POST("/auth", s.login)

	users := r.Group("/users")
	users.GET("", s.listUsers)
	users.POST("", s.createUser)
	users.GET("/:id", s.getUser)
	users.PATCH("/:id", s.updateUser)
	users.DELETE("/:id", s.deleteUser)
	users.POST("/:id/update-password", s.updatePassword)

	books := r.Group("/books")
	books.GET("", s.listBooks)
	books.POST("", s.createBook)
	books.GET("/search", s.searchBooksByTitle)
	books.GET("/search/author", s.searchBooksByAuthor)
	books.GET("/filter", s.filterBooksByYear)
	books.GET("/recent", s.recentBooks)
	books.GET("/stats", s.bookStats)
	books.GET("/available", s.availableBooks)
	books.GET("/most-reviewed", s.mostReviewedBooks)
	books.GET("/by-category/:category_id", s.booksByCategory)
	books.GET("/:id", s.getBook)
	books.PATCH("/:id", s.updateBook)
	books.DELETE("/:id", s.deleteBook)
	books.PATCH("/:id/stock", s.adjustStock)

	categories := r.Group("/categories")
	categories.GET("", s.listCategories)
	categories.POST("", s.createCategory)
	categories.GET("/:id", s.getCategory)
	categories.PATCH("/:id", s.updateCategory)
	categories.DELETE("/:id", s.deleteCategory)

	loanRoutes := r.Group("/loans")
	loanRoutes.GET("", s.listLoans)
	loanRoutes.POST("", s.createLoan)
	loanRoutes.GET("/active", s.activeLoans)
	loanRoutes.GET("/overdue", s.overdueLoans)
	loanRoutes.GET("/user/:user_id", s.userLoans)
	loanRoutes.GET("/:id", s.getLoan)
	loanRoutes.PATCH("/:id", s.updateLoan)
	loanRoutes.DELETE("/:id", s.deleteLoan)
	loanRoutes.GET("/:id/fine", s.loanFine)
	loanRoutes.POST("/:id/return", s.returnLoan)

	reviews := r.Group("/reviews")
	reviews.GET("", s.listReviews)
	reviews.POST("", s.createReview)
	reviews.GET("/:id", s.getReview)
	reviews.PATCH("/:id", s.updateReview)
	reviews.DELETE("/:id", s.deleteReview)

	return r
}

// requestID reuses an incoming X-Request-ID or mints a new one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(requestIDHeader, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Library API running successfully!"})
}

func (s *server) healthCheck(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "DOWN",
			"details": "Database connection failed",
			"error":   err.Error(),
		})
		return
	}
	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "DOWN",
			"details": "Database ping failed",
			"error":   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

// abortWithError writes the error body for err and stops the handler chain.
func abortWithError(c *gin.Context, err error) {
	status, detail := http.StatusInternalServerError, "Internal server error"
	switch {
	case errors.Is(err, models.ErrNotFound):
		status, detail = http.StatusNotFound, "Not found"
	case errors.Is(err, models.ErrAlreadyExists):
		status, detail = http.StatusConflict, "Already exists"
	case errors.Is(err, models.ErrInvalidState):
		status, detail = http.StatusConflict, err.Error()
	case errors.Is(err, models.ErrInsufficientStock), errors.Is(err, models.ErrInvalidInput):
		status, detail = http.StatusBadRequest, err.Error()
	}

	if status >= http.StatusInternalServerError {
		log.Printf("[%s] %s %s failed: %v", c.GetString(requestIDHeader), c.Request.Method, c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(status, gin.H{"status_code": status, "detail": detail})
}

func invalidInput(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", models.ErrInvalidInput, fmt.Sprintf(format, args...))
}

func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		abortWithError(c, invalidInput("invalid request: %v", err))
		return false
	}
	return true
}

// pathID parses a positive integer path parameter.
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		abortWithError(c, invalidInput("%s must be a positive integer", name))
		return 0, false
	}
	return uint(id), true
}

// queryLimit reads ?limit= in 1..50, defaulting to 10.
func queryLimit(c *gin.Context) (int, bool) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 || limit > 50 {
		abortWithError(c, invalidInput("limit must be between 1 and 50"))
		return 0, false
	}
	return limit, true
}

func exists(db *gorm.DB, model interface{}, id uint) error {
	var count int64
	if err := db.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return models.ErrNotFound
	}
	return nil
}
