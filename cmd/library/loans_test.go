package main

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library_service/pkg/models"
)

func createLoanRequest(t *testing.T, r *gin.Engine, userID, bookID uint, loanDate string) map[string]interface{} {
	t.Helper()
	body := map[string]interface{}{"user_id": userID, "book_id": bookID}
	if loanDate != "" {
		body["loan_dt"] = loanDate
	}
	w := doRequest(r, http.MethodPost, "/loans", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeObject(t, w)
}

func TestCreateLoan(t *testing.T) {
	srv, r, _ := setupTestServer(t, "2024-01-01")
	user := createTestUser(t, srv.db, "alice")
	book := createTestBook(t, srv.db, "Dune", 1)

	loan := createLoanRequest(t, r, user.ID, book.ID, "")

	assert.Equal(t, "2024-01-01", loan["loan_dt"])
	assert.Equal(t, "2024-01-15", loan["due_date"])
	assert.Equal(t, "ACTIVE", loan["status"])
	assert.Nil(t, loan["return_dt"])
	assert.Nil(t, loan["fine_amount"])
}

func TestCreateLoanValidation(t *testing.T) {
	srv, r, _ := setupTestServer(t, "2024-01-01")
	user := createTestUser(t, srv.db, "alice")
	book := createTestBook(t, srv.db, "Dune", 1)

	tests := []struct {
		name   string
		body   map[string]interface{}
		status int
	}{
		{name: "missing book", body: map[string]interface{}{"user_id": user.ID}, status: http.StatusBadRequest},
		{name: "bad date", body: map[string]interface{}{"user_id": user.ID, "book_id": book.ID, "loan_dt": "01/02/2024"}, status: http.StatusBadRequest},
		{name: "unknown user", body: map[string]interface{}{"user_id": 999, "book_id": book.ID}, status: http.StatusNotFound},
		{name: "unknown book", body: map[string]interface{}{"user_id": user.ID, "book_id": 999}, status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(r, http.MethodPost, "/loans", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestLateReturnScenario(t *testing.T) {
	srv, r, clk := setupTestServer(t, "2024-01-01")
	user := createTestUser(t, srv.db, "alice")
	book := createTestBook(t, srv.db, "Dune", 1)
	loan := createLoanRequest(t, r, user.ID, book.ID, "2024-01-01")
	id := uint(loan["id"].(float64))

	clk.set("2024-01-20")
	w := doRequest(r, http.MethodPost, fmt.Sprintf("/loans/%d/return", id), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	returned := decodeObject(t, w)
	assert.Equal(t, "RETURNED", returned["status"])
	assert.Equal(t, "2024-01-20", returned["return_dt"])
	assert.Equal(t, "2500.00", returned["fine_amount"])

	var reloaded models.Book
	require.NoError(t, srv.db.First(&reloaded, book.ID).Error)
	assert.Equal(t, 2, reloaded.Stock)

	w = doRequest(r, http.MethodPost, fmt.Sprintf("/loans/%d/return", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2500.00", decodeObject(t, w)["fine_amount"])
	require.NoError(t, srv.db.First(&reloaded, book.ID).Error)
	assert.Equal(t, 2, reloaded.Stock)
}

func TestOverdueScan(t *testing.T) {
	srv, r, clk := setupTestServer(t, "2024-01-01")
	user := createTestUser(t, srv.db, "alice")
	book := createTestBook(t, srv.db, "Dune", 1)
	loan := createLoanRequest(t, r, user.ID, book.ID, "")

	clk.set("2024-01-16")
	w := doRequest(r, http.MethodGet, "/loans/overdue", nil)
	require.Equal(t, http.StatusOK, w.Code)

	flipped := decodeList(t, w)
	require.Len(t, flipped, 1)
	assert.Equal(t, loan["id"], flipped[0]["id"])
	assert.Equal(t, "OVERDUE", flipped[0]["status"])

	w = doRequest(r, http.MethodGet, "/loans/overdue", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())

	w = doRequest(r, http.MethodGet, "/loans/active", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeList(t, w))
}

func TestLoanFine(t *testing.T) {
	srv, r, clk := setupTestServer(t, "2024-01-01")
	user := createTestUser(t, srv.db, "alice")
	book := createTestBook(t, srv.db, "Dune", 1)
	loan := createLoanRequest(t, r, user.ID, book.ID, "")
	id := uint(loan["id"].(float64))

	w := doRequest(r, http.MethodGet, fmt.Sprintf("/loans/%d/fine", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	response := decodeObject(t, w)
	assert.Equal(t, float64(id), response["loan_id"])
	assert.Equal(t, "0.00", response["fine"])

	clk.set("2024-01-17")
	w = doRequest(r, http.MethodGet, fmt.Sprintf("/loans/%d/fine", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1000.00", decodeObject(t, w)["fine"])
}

func TestLoanFineNotFound(t *testing.T) {
	srv, _, _ := setupTestServer(t, "2024-01-01")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/loans/42/fine", nil)
	c.Params = gin.Params{{Key: "id", Value: "42"}}

	srv.loanFine(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	response := decodeObject(t, w)
	assert.Equal(t, float64(404), response["status_code"])
	assert.Equal(t, "Not found", response["detail"])
}

func TestReturnUnknownLoan(t *testing.T) {
	_, r, _ := setupTestServer(t, "2024-01-01")

	w := doRequest(r, http.MethodPost, "/loans/42/return", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUserLoans(t *testing.T) {
	srv, r, _ := setupTestServer(t, "2024-06-01")
	alice := createTestUser(t, srv.db, "alice")
	bob := createTestUser(t, srv.db, "bob")
	book := createTestBook(t, srv.db, "Dune", 1)

	first := createLoanRequest(t, r, alice.ID, book.ID, "2024-01-10")
	second := createLoanRequest(t, r, alice.ID, book.ID, "2024-03-10")
	createLoanRequest(t, r, bob.ID, book.ID, "2024-04-10")

	w := doRequest(r, http.MethodGet, fmt.Sprintf("/loans/user/%d", alice.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	history := decodeList(t, w)
	require.Len(t, history, 2)
	assert.Equal(t, second["id"], history[0]["id"])
	assert.Equal(t, first["id"], history[1]["id"])
}

func TestUpdateLoanStatus(t *testing.T) {
	srv, r, clk := setupTestServer(t, "2024-01-01")
	user := createTestUser(t, srv.db, "alice")
	book := createTestBook(t, srv.db, "Dune", 1)
	loan := createLoanRequest(t, r, user.ID, book.ID, "")
	path := fmt.Sprintf("/loans/%d", uint(loan["id"].(float64)))

	w := doRequest(r, http.MethodPatch, path, map[string]string{"status": "OVERDUE"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "OVERDUE", decodeObject(t, w)["status"])

	w = doRequest(r, http.MethodPatch, path, map[string]string{"status": "ACTIVE"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doRequest(r, http.MethodPatch, path, map[string]string{"status": "LOST"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	clk.set("2024-01-16")
	w = doRequest(r, http.MethodPatch, path, map[string]string{"status": "RETURNED"})
	require.Equal(t, http.StatusOK, w.Code)
	returned := decodeObject(t, w)
	assert.Equal(t, "RETURNED", returned["status"])
	assert.Equal(t, "500.00", returned["fine_amount"])
}

func TestListGetDeleteLoan(t *testing.T) {
	srv, r, _ := setupTestServer(t, "2024-01-01")
	user := createTestUser(t, srv.db, "alice")
	book := createTestBook(t, srv.db, "Dune", 1)
	loan := createLoanRequest(t, r, user.ID, book.ID, "")
	path := fmt.Sprintf("/loans/%d", uint(loan["id"].(float64)))

	w := doRequest(r, http.MethodGet, "/loans", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeList(t, w), 1)

	w = doRequest(r, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, loan["id"], decodeObject(t, w)["id"])

	w = doRequest(r, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(r, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
