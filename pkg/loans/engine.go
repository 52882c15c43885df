// Package loans owns the loan lifecycle: due dates, overdue detection,
// fines and returns.
//
// The engine keeps no database of its own. Every operation receives the
// gorm handle to run against, so callers decide which connection or
// transaction a lifecycle step joins.
package loans

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"library_service/pkg/database"
	"library_service/pkg/models"
)

type Engine struct {
	now func() time.Time
}

func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// NewEngineWithClock is NewEngine with a fixed source of "today".
func NewEngineWithClock(now func() time.Time) *Engine {
	return &Engine{now: now}
}

func (e *Engine) Today() time.Time {
	return Date(e.now())
}

// Create fills in the lifecycle fields of loan and inserts it. A zero
// LoanDate means today. Stock is neither checked nor decremented here.
func (e *Engine) Create(ctx context.Context, db *gorm.DB, loan *models.Loan) error {
	db = db.WithContext(ctx)

	if err := exists(db, &models.User{}, loan.UserID); err != nil {
		return fmt.Errorf("user %d: %w", loan.UserID, err)
	}
	if err := exists(db, &models.Book{}, loan.BookID); err != nil {
		return fmt.Errorf("book %d: %w", loan.BookID, err)
	}

	if loan.LoanDate.IsZero() {
		loan.LoanDate = e.Today()
	}
	loan.LoanDate = Date(loan.LoanDate)
	loan.DueDate = DueDate(loan.LoanDate)
	loan.Status = models.LoanStatusActive
	loan.ReturnDate = nil
	loan.Fine = decimal.NullDecimal{}

	if err := db.Create(loan).Error; err != nil {
		return fmt.Errorf("failed to create loan: %w", database.TranslateError(err))
	}
	return nil
}

func (e *Engine) Get(ctx context.Context, db *gorm.DB, id uint) (*models.Loan, error) {
	var loan models.Loan
	if err := db.WithContext(ctx).First(&loan, id).Error; err != nil {
		return nil, fmt.Errorf("loan %d: %w", id, database.TranslateError(err))
	}
	return &loan, nil
}

func (e *Engine) List(ctx context.Context, db *gorm.DB) ([]models.Loan, error) {
	var loans []models.Loan
	err := db.WithContext(ctx).Order("id").Find(&loans).Error
	return loans, err
}

func (e *Engine) Active(ctx context.Context, db *gorm.DB) ([]models.Loan, error) {
	var loans []models.Loan
	err := db.WithContext(ctx).
		Where("status = ?", models.LoanStatusActive).
		Order("id").
		Find(&loans).Error
	return loans, err
}

// ScanOverdue flips every ACTIVE loan whose due date has passed to OVERDUE
// in a single commit and returns the flipped loans as re-read afterwards.
// A scan that finds nothing writes nothing.
func (e *Engine) ScanOverdue(ctx context.Context, db *gorm.DB) ([]models.Loan, error) {
	db = db.WithContext(ctx)
	today := e.Today()

	var ids []uint
	err := db.Transaction(func(tx *gorm.DB) error {
		var due []models.Loan
		if err := tx.Where("status = ? AND due_date < ?", models.LoanStatusActive, today).
			Order("id").
			Find(&due).Error; err != nil {
			return err
		}
		for i := range due {
			due[i].Status = models.LoanStatusOverdue
			if err := tx.Save(&due[i]).Error; err != nil {
				return err
			}
			ids = append(ids, due[i].ID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("overdue scan failed: %w", err)
	}

	flipped := []models.Loan{}
	if len(ids) == 0 {
		return flipped, nil
	}
	if err := db.Where("id IN ?", ids).Order("id").Find(&flipped).Error; err != nil {
		return nil, fmt.Errorf("failed to reload overdue loans: %w", err)
	}
	return flipped, nil
}

// Fine reports what the loan owes: up to its return date if returned,
// otherwise up to today. It never writes.
func (e *Engine) Fine(ctx context.Context, db *gorm.DB, id uint) (decimal.Decimal, error) {
	loan, err := e.Get(ctx, db, id)
	if err != nil {
		return decimal.Zero, err
	}
	ref := e.Today()
	if loan.ReturnDate != nil {
		ref = *loan.ReturnDate
	}
	return Fine(loan.DueDate, ref), nil
}

// Return closes the loan today, records any fine and puts the copy back in
// stock. Returning an already returned loan is a no-op.
func (e *Engine) Return(ctx context.Context, db *gorm.DB, id uint) (*models.Loan, error) {
	db = db.WithContext(ctx)
	today := e.Today()

	var loan models.Loan
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&loan, id).Error; err != nil {
			return fmt.Errorf("loan %d: %w", id, database.TranslateError(err))
		}
		if loan.Status == models.LoanStatusReturned {
			return nil
		}

		loan.ReturnDate = &today
		if fine := Fine(loan.DueDate, today); fine.IsPositive() {
			loan.Fine = decimal.NewNullDecimal(fine)
		} else {
			loan.Fine = decimal.NullDecimal{}
		}
		loan.Status = models.LoanStatusReturned

		if err := tx.Model(&models.Book{}).
			Where("id = ?", loan.BookID).
			UpdateColumn("stock", gorm.Expr("COALESCE(stock, 0) + ?", 1)).Error; err != nil {
			return fmt.Errorf("failed to restock book %d: %w", loan.BookID, err)
		}
		return tx.Save(&loan).Error
	})
	if err != nil {
		return nil, err
	}

	return e.Get(ctx, db, id)
}

// History lists a user's loans, newest loan date first. Loans on the same
// date come newest id first.
func (e *Engine) History(ctx context.Context, db *gorm.DB, userID uint) ([]models.Loan, error) {
	var loans []models.Loan
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("loan_dt DESC").
		Order("id DESC").
		Find(&loans).Error
	return loans, err
}

// UpdateStatus moves a loan forward. Moving to RETURNED goes through Return
// so the fine and stock stay consistent.
func (e *Engine) UpdateStatus(ctx context.Context, db *gorm.DB, id uint, status models.LoanStatus) (*models.Loan, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("unknown loan status %q: %w", status, models.ErrInvalidInput)
	}

	loan, err := e.Get(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if loan.Status == status {
		return loan, nil
	}
	if !loan.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("loan %d cannot go from %s to %s: %w", id, loan.Status, status, models.ErrInvalidState)
	}
	if status == models.LoanStatusReturned {
		return e.Return(ctx, db, id)
	}

	res := db.WithContext(ctx).Model(&models.Loan{}).
		Where("id = ? AND status = ?", id, loan.Status).
		Update("status", status)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update loan %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("loan %d changed concurrently: %w", id, models.ErrInvalidState)
	}
	return e.Get(ctx, db, id)
}

// Delete removes a loan outright, bypassing the lifecycle.
func (e *Engine) Delete(ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).Delete(&models.Loan{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete loan %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("loan %d: %w", id, models.ErrNotFound)
	}
	return nil
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
