package main

import (
	"context"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"library_service/pkg/database"
	"library_service/pkg/models"
)

const minPublishedYear = 1000

var languagePattern = regexp.MustCompile(`^[A-Za-z]{2}$`)

type reviewCount struct {
	ID          uint
	ReviewCount int64
}

type bookStatsRow struct {
	Total        int64
	AveragePages *float64
	Oldest       *int
	Newest       *int
}

func bookJSON(b models.Book, categoryIDs []uint) gin.H {
	if categoryIDs == nil {
		categoryIDs = []uint{}
	}
	return gin.H{
		"id":             b.ID,
		"title":          b.Title,
		"author":         b.Author,
		"isbn":           b.Isbn,
		"pages":          b.Pages,
		"published_year": b.PublishedYear,
		"stock":          b.Stock,
		"language":       b.Language,
		"description":    b.Description,
		"category_ids":   categoryIDs,
		"created_at":     b.CreatedAt,
		"updated_at":     b.UpdatedAt,
	}
}

// categoryIDs loads the category ids of every given book in one query.
func categoryIDs(ctx context.Context, db *gorm.DB, bookIDs []uint) (map[uint][]uint, error) {
	byBook := make(map[uint][]uint, len(bookIDs))
	if len(bookIDs) == 0 {
		return byBook, nil
	}
	var links []models.BookCategory
	err := db.WithContext(ctx).
		Where("book_id IN ?", bookIDs).
		Order("book_id, category_id").
		Find(&links).Error
	if err != nil {
		return nil, err
	}
	for _, l := range links {
		byBook[l.BookID] = append(byBook[l.BookID], l.CategoryID)
	}
	return byBook, nil
}

func (s *server) renderBooks(c *gin.Context, books []models.Book) {
	ids := make([]uint, len(books))
	for i, b := range books {
		ids[i] = b.ID
	}
	cats, err := categoryIDs(c.Request.Context(), s.db, ids)
	if err != nil {
		abortWithError(c, err)
		return
	}
	items := make([]gin.H, len(books))
	for i, b := range books {
		items[i] = bookJSON(b, cats[b.ID])
	}
	c.JSON(http.StatusOK, items)
}

func (s *server) renderBook(c *gin.Context, status int, book models.Book) {
	cats, err := categoryIDs(c.Request.Context(), s.db, []uint{book.ID})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(status, bookJSON(book, cats[book.ID]))
}

func (s *server) findBooks(c *gin.Context, query func(*gorm.DB) *gorm.DB) {
	var books []models.Book
	if err := query(s.db.WithContext(c.Request.Context())).Find(&books).Error; err != nil {
		abortWithError(c, err)
		return
	}
	s.renderBooks(c, books)
}

func (s *server) validateYear(year int) error {
	current := s.loans.Today().Year()
	if year < minPublishedYear || year > current {
		return invalidInput("published_year must be between %d and %d", minPublishedYear, current)
	}
	return nil
}

func validLanguage(language string) error {
	if !languagePattern.MatchString(language) {
		return invalidInput("language must be a 2-letter code such as 'es', 'en' or 'fr'")
	}
	return nil
}

// replaceCategories points the book at exactly the given categories.
func replaceCategories(tx *gorm.DB, bookID uint, ids []uint) error {
	unique := make([]uint, 0, len(ids))
	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	if len(unique) > 0 {
		var count int64
		if err := tx.Model(&models.Category{}).Where("id IN ?", unique).Count(&count).Error; err != nil {
			return err
		}
		if int(count) != len(unique) {
			return models.ErrNotFound
		}
	}

	if err := tx.Where("book_id = ?", bookID).Delete(&models.BookCategory{}).Error; err != nil {
		return err
	}
	for _, id := range unique {
		if err := tx.Create(&models.BookCategory{BookID: bookID, CategoryID: id}).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *server) listBooks(c *gin.Context) {
	s.findBooks(c, func(db *gorm.DB) *gorm.DB { return db.Order("id") })
}

func (s *server) getBook(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var book models.Book
	if err := s.db.WithContext(c.Request.Context()).First(&book, id).Error; err != nil {
		abortWithError(c, database.TranslateError(err))
		return
	}
	s.renderBook(c, http.StatusOK, book)
}

func (s *server) createBook(c *gin.Context) {
	var request struct {
		Title         string  `json:"title" binding:"required"`
		Author        string  `json:"author" binding:"required"`
		Isbn          string  `json:"isbn" binding:"required"`
		Pages         int     `json:"pages" binding:"required,gt=0"`
		PublishedYear int     `json:"published_year" binding:"required"`
		Stock         *int    `json:"stock"`
		Language      string  `json:"language" binding:"required"`
		Description   *string `json:"description"`
		CategoryIDs   []uint  `json:"category_ids"`
	}
	if !bindJSON(c, &request) {
		return
	}

	stock := 1
	if request.Stock != nil {
		stock = *request.Stock
	}
	if err := s.validateYear(request.PublishedYear); err != nil {
		abortWithError(c, err)
		return
	}
	if stock <= 0 {
		abortWithError(c, invalidInput("stock must be greater than 0"))
		return
	}
	if err := validLanguage(request.Language); err != nil {
		abortWithError(c, err)
		return
	}

	book := models.Book{
		Title:         request.Title,
		Author:        request.Author,
		Isbn:          request.Isbn,
		Pages:         request.Pages,
		PublishedYear: request.PublishedYear,
		Stock:         stock,
		Language:      strings.ToLower(request.Language),
		Description:   request.Description,
	}
	err := s.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&models.Book{}).
			Where("title = ? OR isbn = ?", book.Title, book.Isbn).
			Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return models.ErrAlreadyExists
		}
		if err := tx.Create(&book).Error; err != nil {
			return database.TranslateError(err)
		}
		return replaceCategories(tx, book.ID, request.CategoryIDs)
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	s.renderBook(c, http.StatusCreated, book)
}

func (s *server) updateBook(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var request struct {
		Title         *string `json:"title"`
		Author        *string `json:"author"`
		Isbn          *string `json:"isbn"`
		Pages         *int    `json:"pages"`
		PublishedYear *int    `json:"published_year"`
		Stock         *int    `json:"stock"`
		Language      *string `json:"language"`
		Description   *string `json:"description"`
		CategoryIDs   *[]uint `json:"category_ids"`
	}
	if !bindJSON(c, &request) {
		return
	}

	if request.PublishedYear != nil {
		if err := s.validateYear(*request.PublishedYear); err != nil {
			abortWithError(c, err)
			return
		}
	}
	if request.Stock != nil && *request.Stock < 0 {
		abortWithError(c, invalidInput("stock cannot be negative"))
		return
	}
	if request.Language != nil {
		if err := validLanguage(*request.Language); err != nil {
			abortWithError(c, err)
			return
		}
	}
	if request.Pages != nil && *request.Pages <= 0 {
		abortWithError(c, invalidInput("pages must be greater than 0"))
		return
	}

	var book models.Book
	err := s.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&book, id).Error; err != nil {
			return database.TranslateError(err)
		}
		if request.Title != nil {
			book.Title = *request.Title
		}
		if request.Author != nil {
			book.Author = *request.Author
		}
		if request.Isbn != nil {
			book.Isbn = *request.Isbn
		}
		if request.Pages != nil {
			book.Pages = *request.Pages
		}
		if request.PublishedYear != nil {
			book.PublishedYear = *request.PublishedYear
		}
		if request.Stock != nil {
			book.Stock = *request.Stock
		}
		if request.Language != nil {
			book.Language = strings.ToLower(*request.Language)
		}
		if request.Description != nil {
			book.Description = request.Description
		}
		if err := tx.Save(&book).Error; err != nil {
			return database.TranslateError(err)
		}
		if request.CategoryIDs != nil {
			return replaceCategories(tx, book.ID, *request.CategoryIDs)
		}
		return nil
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	s.renderBook(c, http.StatusOK, book)
}

func (s *server) deleteBook(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	err := s.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("book_id = ?", id).Delete(&models.BookCategory{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Book{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.ErrNotFound
		}
		return nil
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *server) searchBooksByTitle(c *gin.Context) {
	title := c.Query("title")
	if title == "" {
		abortWithError(c, invalidInput("title is required"))
		return
	}
	pattern := "%" + strings.ToLower(title) + "%"
	s.findBooks(c, func(db *gorm.DB) *gorm.DB {
		return db.Where("LOWER(title) LIKE ?", pattern).Order("id")
	})
}

func (s *server) searchBooksByAuthor(c *gin.Context) {
	author := c.Query("author_name")
	if author == "" {
		abortWithError(c, invalidInput("author_name is required"))
		return
	}
	pattern := "%" + strings.ToLower(author) + "%"
	s.findBooks(c, func(db *gorm.DB) *gorm.DB {
		return db.Where("LOWER(author) LIKE ?", pattern).Order("id")
	})
}

func (s *server) filterBooksByYear(c *gin.Context) {
	from, err := strconv.Atoi(c.Query("from"))
	if err != nil {
		abortWithError(c, invalidInput("from must be a year"))
		return
	}
	to, err := strconv.Atoi(c.Query("to"))
	if err != nil {
		abortWithError(c, invalidInput("to must be a year"))
		return
	}
	if from > to {
		abortWithError(c, invalidInput("from must not be after to"))
		return
	}
	s.findBooks(c, func(db *gorm.DB) *gorm.DB {
		return db.Where("published_year BETWEEN ? AND ?", from, to).Order("published_year, id")
	})
}

func (s *server) recentBooks(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	s.findBooks(c, func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at DESC").Order("id DESC").Limit(limit)
	})
}

func (s *server) availableBooks(c *gin.Context) {
	s.findBooks(c, func(db *gorm.DB) *gorm.DB {
		return db.Where("stock > 0").Order("id")
	})
}

func (s *server) booksByCategory(c *gin.Context) {
	categoryID, ok := pathID(c, "category_id")
	if !ok {
		return
	}
	if err := exists(s.db.WithContext(c.Request.Context()), &models.Category{}, categoryID); err != nil {
		abortWithError(c, err)
		return
	}
	s.findBooks(c, func(db *gorm.DB) *gorm.DB {
		return db.Joins("JOIN book_categories ON book_categories.book_id = books.id").
			Where("book_categories.category_id = ?", categoryID).
			Order("books.id")
	})
}

func (s *server) mostReviewedBooks(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}

	var rows []reviewCount
	err := s.db.WithContext(c.Request.Context()).
		Table("reviews").
		Select("book_id AS id, COUNT(*) AS review_count").
		Group("book_id").
		Order("review_count DESC").
		Order("book_id").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		abortWithError(c, err)
		return
	}
	if len(rows) == 0 {
		c.JSON(http.StatusOK, []gin.H{})
		return
	}

	ids := make([]uint, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	var books []models.Book
	if err := s.db.WithContext(c.Request.Context()).Where("id IN ?", ids).Find(&books).Error; err != nil {
		abortWithError(c, err)
		return
	}
	cats, err := categoryIDs(c.Request.Context(), s.db, ids)
	if err != nil {
		abortWithError(c, err)
		return
	}

	byID := make(map[uint]models.Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}
	items := make([]gin.H, 0, len(rows))
	for _, r := range rows {
		b, ok := byID[r.ID]
		if !ok {
			continue
		}
		item := bookJSON(b, cats[b.ID])
		item["review_count"] = r.ReviewCount
		items = append(items, item)
	}
	c.JSON(http.StatusOK, items)
}

func (s *server) bookStats(c *gin.Context) {
	var stats bookStatsRow
	err := s.db.WithContext(c.Request.Context()).
		Model(&models.Book{}).
		Select("COUNT(*) AS total, AVG(pages) AS average_pages, MIN(published_year) AS oldest, MAX(published_year) AS newest").
		Scan(&stats).Error
	if err != nil {
		abortWithError(c, err)
		return
	}

	average := 0.0
	if stats.AveragePages != nil {
		average = math.Round(*stats.AveragePages*100) / 100
	}
	c.JSON(http.StatusOK, gin.H{
		"total_books":             stats.Total,
		"average_pages":           average,
		"oldest_publication_year": stats.Oldest,
		"newest_publication_year": stats.Newest,
	})
}

func (s *server) adjustStock(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	quantity, err := strconv.Atoi(c.Query("quantity"))
	if err != nil {
		abortWithError(c, invalidInput("quantity must be an integer"))
		return
	}

	var book models.Book
	err = s.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&book, id).Error; err != nil {
			return database.TranslateError(err)
		}
		if book.Stock+quantity < 0 {
			return models.ErrInsufficientStock
		}
		book.Stock += quantity
		return tx.Model(&book).Update("stock", book.Stock).Error
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	s.renderBook(c, http.StatusOK, book)
}
