package database

import (
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"library_service/pkg/models"
)

const (
	seedUsername = "reader"
	seedCategory = "Programming"
	seedBookIsbn = "978-0134190440"
)

// Seed inserts a demo user, category and book. Rows that already exist are
// left alone, so Seed is safe to call on every start. passwordHash must
// already be hashed.
func Seed(db *gorm.DB, passwordHash string) error {
	user := models.User{
		Username: seedUsername,
		Fullname: "Demo Reader",
		Email:    "reader@example.com",
		Password: passwordHash,
	}
	if err := firstOrCreate(db, &user, "username = ?", user.Username); err != nil {
		return fmt.Errorf("failed to seed user: %w", err)
	}

	category := models.Category{Name: seedCategory}
	if err := firstOrCreate(db, &category, "name = ?", category.Name); err != nil {
		return fmt.Errorf("failed to seed category: %w", err)
	}

	book := models.Book{
		Title:         "The Go Programming Language",
		Author:        "Alan A. A. Donovan, Brian W. Kernighan",
		Isbn:          seedBookIsbn,
		Pages:         380,
		PublishedYear: 2015,
		Stock:         3,
		Language:      "en",
	}
	if err := firstOrCreate(db, &book, "isbn = ?", book.Isbn); err != nil {
		return fmt.Errorf("failed to seed book: %w", err)
	}

	link := models.BookCategory{BookID: book.ID, CategoryID: category.ID}
	if err := db.Where(&link).FirstOrCreate(&link).Error; err != nil {
		return fmt.Errorf("failed to link book to category: %w", err)
	}

	log.Println("Library test data seeded")
	return nil
}

func firstOrCreate(db *gorm.DB, dest interface{}, query string, arg interface{}) error {
	err := db.Where(query, arg).First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.Create(dest).Error
	}
	return err
}
