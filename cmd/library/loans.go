package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"library_service/pkg/models"
)

func loanJSON(l models.Loan) gin.H {
	var returnDate, fine interface{}
	if l.ReturnDate != nil {
		returnDate = l.ReturnDate.Format(dateLayout)
	}
	if l.Fine.Valid {
		fine = l.Fine.Decimal.StringFixed(2)
	}
	return gin.H{
		"id":          l.ID,
		"user_id":     l.UserID,
		"book_id":     l.BookID,
		"loan_dt":     l.LoanDate.Format(dateLayout),
		"due_date":    l.DueDate.Format(dateLayout),
		"return_dt":   returnDate,
		"status":      l.Status,
		"fine_amount": fine,
		"created_at":  l.CreatedAt,
		"updated_at":  l.UpdatedAt,
	}
}

func loansJSON(loans []models.Loan) []gin.H {
	items := make([]gin.H, len(loans))
	for i, l := range loans {
		items[i] = loanJSON(l)
	}
	return items
}

func (s *server) listLoans(c *gin.Context) {
	loans, err := s.loans.List(c.Request.Context(), s.db)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, loansJSON(loans))
}

func (s *server) getLoan(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	loan, err := s.loans.Get(c.Request.Context(), s.db, id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, loanJSON(*loan))
}

func (s *server) createLoan(c *gin.Context) {
	var request struct {
		UserID   uint   `json:"user_id" binding:"required"`
		BookID   uint   `json:"book_id" binding:"required"`
		LoanDate string `json:"loan_dt"`
	}
	if !bindJSON(c, &request) {
		return
	}

	loan := models.Loan{UserID: request.UserID, BookID: request.BookID}
	if request.LoanDate != "" {
		loanDate, err := parseDate("loan_dt", request.LoanDate)
		if err != nil {
			abortWithError(c, err)
			return
		}
		loan.LoanDate = loanDate
	}

	if err := s.loans.Create(c.Request.Context(), s.db, &loan); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, loanJSON(loan))
}

func (s *server) updateLoan(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var request struct {
		Status models.LoanStatus `json:"status" binding:"required"`
	}
	if !bindJSON(c, &request) {
		return
	}

	loan, err := s.loans.UpdateStatus(c.Request.Context(), s.db, id, request.Status)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, loanJSON(*loan))
}

func (s *server) deleteLoan(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.loans.Delete(c.Request.Context(), s.db, id); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *server) activeLoans(c *gin.Context) {
	loans, err := s.loans.Active(c.Request.Context(), s.db)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, loansJSON(loans))
}

func (s *server) overdueLoans(c *gin.Context) {
	loans, err := s.loans.ScanOverdue(c.Request.Context(), s.db)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, loansJSON(loans))
}

func (s *server) loanFine(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	fine, err := s.loans.Fine(c.Request.Context(), s.db, id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"loan_id": id, "fine": fine.StringFixed(2)})
}

func (s *server) returnLoan(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	loan, err := s.loans.Return(c.Request.Context(), s.db, id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, loanJSON(*loan))
}

func (s *server) userLoans(c *gin.Context) {
	userID, ok := pathID(c, "user_id")
	if !ok {
		return
	}
	loans, err := s.loans.History(c.Request.Context(), s.db, userID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, loansJSON(loans))
}
