package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type LoanStatus string

const (
	LoanStatusActive   LoanStatus = "ACTIVE"
	LoanStatusOverdue  LoanStatus = "OVERDUE"
	LoanStatusReturned LoanStatus = "RETURNED"
)

// rank orders statuses along the only allowed direction of travel.
func (s LoanStatus) rank() int {
	switch s {
	case LoanStatusActive:
		return 1
	case LoanStatusOverdue:
		return 2
	case LoanStatusReturned:
		return 3
	}
	return 0
}

func (s LoanStatus) Valid() bool {
	return s.rank() > 0
}

// CanTransitionTo reports whether a loan in status s may move to next.
// RETURNED is terminal.
func (s LoanStatus) CanTransitionTo(next LoanStatus) bool {
	if !s.Valid() || !next.Valid() || s == LoanStatusReturned {
		return false
	}
	return next.rank() > s.rank()
}

type User struct {
	ID        uint   `gorm:"primaryKey"`
	Username  string `gorm:"size:80;not null;uniqueIndex"`
	Fullname  string `gorm:"not null"`
	Email     string `gorm:"size:255;not null"`
	Password  string `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Book struct {
	ID            uint   `gorm:"primaryKey"`
	Title         string `gorm:"not null;uniqueIndex"`
	Author        string `gorm:"not null"`
	Isbn          string `gorm:"size:32;not null;uniqueIndex"`
	Pages         int    `gorm:"not null"`
	PublishedYear int    `gorm:"not null"`
	Stock         int    `gorm:"not null"`
	Language      string `gorm:"size:2;not null"`
	Description   *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Category struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"size:80;not null;uniqueIndex"`
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// BookCategory is the explicit join row between books and categories.
type BookCategory struct {
	BookID     uint `gorm:"primaryKey"`
	CategoryID uint `gorm:"primaryKey"`
}

func (BookCategory) TableName() string { return "book_categories" }

type Loan struct {
	ID         uint       `gorm:"primaryKey"`
	UserID     uint       `gorm:"not null;index"`
	BookID     uint       `gorm:"not null;index"`
	LoanDate   time.Time  `gorm:"column:loan_dt;type:date;not null"`
	DueDate    time.Time  `gorm:"type:date;not null;index"`
	ReturnDate *time.Time `gorm:"column:return_dt;type:date"`
	Status     LoanStatus `gorm:"size:20;not null;index"`
	// Fine is NULL unless a late return produced a positive amount.
	Fine      decimal.NullDecimal `gorm:"column:fine_amount;type:decimal(10,2)"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Review struct {
	ID         uint      `gorm:"primaryKey"`
	Rating     int       `gorm:"not null;check:rating >= 1 AND rating <= 5"`
	Comment    string    `gorm:"type:text"`
	ReviewDate time.Time `gorm:"type:date;not null"`
	UserID     uint      `gorm:"not null;index"`
	BookID     uint      `gorm:"not null;index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// All lists every model managed by AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Category{},
		&Book{},
		&BookCategory{},
		&Loan{},
		&Review{},
	}
}
