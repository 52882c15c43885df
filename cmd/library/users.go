package main

import (
	"errors"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"library_service/pkg/database"
	"library_service/pkg/models"
	"library_service/pkg/password"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func userJSON(u models.User) gin.H {
	return gin.H{
		"id":         u.ID,
		"username":   u.Username,
		"fullname":   u.Fullname,
		"email":      u.Email,
		"created_at": u.CreatedAt,
		"updated_at": u.UpdatedAt,
	}
}

func validEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return invalidInput("email is not valid, expected something like user@domain.com")
	}
	return nil
}

func (s *server) findUser(c *gin.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(c.Request.Context()).First(&user, id).Error; err != nil {
		return nil, database.TranslateError(err)
	}
	return &user, nil
}

// usernameTaken reports whether another user already holds username.
func (s *server) usernameTaken(c *gin.Context, username string, exceptID uint) error {
	var count int64
	err := s.db.WithContext(c.Request.Context()).Model(&models.User{}).
		Where("username = ? AND id <> ?", username, exceptID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return models.ErrAlreadyExists
	}
	return nil
}

func (s *server) hashPassword(plain string) (string, error) {
	hash, err := password.Hash(plain, s.bcryptCost)
	if password.IsTooLong(err) {
		return "", invalidInput("password is too long")
	}
	return hash, err
}

func (s *server) listUsers(c *gin.Context) {
	var users []models.User
	if err := s.db.WithContext(c.Request.Context()).Order("id").Find(&users).Error; err != nil {
		abortWithError(c, err)
		return
	}
	items := make([]gin.H, len(users))
	for i, u := range users {
		items[i] = userJSON(u)
	}
	c.JSON(http.StatusOK, items)
}

func (s *server) getUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	user, err := s.findUser(c, id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, userJSON(*user))
}

func (s *server) createUser(c *gin.Context) {
	var request struct {
		Username string `json:"username" binding:"required"`
		Fullname string `json:"fullname" binding:"required"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if !bindJSON(c, &request) {
		return
	}
	if err := validEmail(request.Email); err != nil {
		abortWithError(c, err)
		return
	}
	if err := s.usernameTaken(c, request.Username, 0); err != nil {
		abortWithError(c, err)
		return
	}

	hash, err := s.hashPassword(request.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}
	user := models.User{
		Username: request.Username,
		Fullname: request.Fullname,
		Email:    request.Email,
		Password: hash,
	}
	if err := s.db.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
		abortWithError(c, database.TranslateError(err))
		return
	}
	c.JSON(http.StatusCreated, userJSON(user))
}

func (s *server) updateUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var request struct {
		Username *string `json:"username"`
		Fullname *string `json:"fullname"`
		Email    *string `json:"email"`
	}
	if !bindJSON(c, &request) {
		return
	}

	user, err := s.findUser(c, id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if request.Email != nil {
		if err := validEmail(*request.Email); err != nil {
			abortWithError(c, err)
			return
		}
		user.Email = *request.Email
	}
	if request.Username != nil {
		if err := s.usernameTaken(c, *request.Username, user.ID); err != nil {
			abortWithError(c, err)
			return
		}
		user.Username = *request.Username
	}
	if request.Fullname != nil {
		user.Fullname = *request.Fullname
	}

	if err := s.db.WithContext(c.Request.Context()).Save(user).Error; err != nil {
		abortWithError(c, database.TranslateError(err))
		return
	}
	c.JSON(http.StatusOK, userJSON(*user))
}

func (s *server) updatePassword(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var request struct {
		CurrentPassword string `json:"current_password" binding:"required"`
		NewPassword     string `json:"new_password" binding:"required"`
	}
	if !bindJSON(c, &request) {
		return
	}

	user, err := s.findUser(c, id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if !password.Verify(request.CurrentPassword, user.Password) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"status_code": http.StatusUnauthorized,
			"detail":      "Incorrect password",
		})
		return
	}

	hash, err := s.hashPassword(request.NewPassword)
	if err != nil {
		abortWithError(c, err)
		return
	}
	err = s.db.WithContext(c.Request.Context()).Model(user).Update("password", hash).Error
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *server) deleteUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res := s.db.WithContext(c.Request.Context()).Delete(&models.User{}, id)
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

func (s *server) login(c *gin.Context) {
	var request struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if !bindJSON(c, &request) {
		return
	}

	var user models.User
	err := s.db.WithContext(c.Request.Context()).Where("username = ?", request.Username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		abortWithError(c, models.ErrNotFound)
		return
	}
	if err != nil {
		abortWithError(c, err)
		return
	}

	if !password.Verify(request.Password, user.Password) {
		c.JSON(http.StatusOK, gin.H{"message": "Incorrect password"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Login successful"})
}
