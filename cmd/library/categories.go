package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"library_service/pkg/database"
	"library_service/pkg/models"
)

func categoryJSON(cat models.Category) gin.H {
	return gin.H{
		"id":          cat.ID,
		"name":        cat.Name,
		"description": cat.Description,
		"created_at":  cat.CreatedAt,
		"updated_at":  cat.UpdatedAt,
	}
}

func (s *server) listCategories(c *gin.Context) {
	var categories []models.Category
	if err := s.db.WithContext(c.Request.Context()).Order("id").Find(&categories).Error; err != nil {
		abortWithError(c, err)
		return
	}
	items := make([]gin.H, len(categories))
	for i, cat := range categories {
		items[i] = categoryJSON(cat)
	}
	c.JSON(http.StatusOK, items)
}

func (s *server) getCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var category models.Category
	if err := s.db.WithContext(c.Request.Context()).First(&category, id).Error; err != nil {
		abortWithError(c, database.TranslateError(err))
		return
	}
	c.JSON(http.StatusOK, categoryJSON(category))
}

func (s *server) createCategory(c *gin.Context) {
	var request struct {
		Name        string  `json:"name" binding:"required"`
		Description *string `json:"description"`
	}
	if !bindJSON(c, &request) {
		return
	}

	category := models.Category{Name: request.Name, Description: request.Description}
	if err := s.db.WithContext(c.Request.Context()).Create(&category).Error; err != nil {
		abortWithError(c, database.TranslateError(err))
		return
	}
	c.JSON(http.StatusCreated, categoryJSON(category))
}

func (s *server) updateCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var request struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if !bindJSON(c, &request) {
		return
	}

	var category models.Category
	db := s.db.WithContext(c.Request.Context())
	if err := db.First(&category, id).Error; err != nil {
		abortWithError(c, database.TranslateError(err))
		return
	}
	if request.Name != nil {
		if *request.Name == "" {
			abortWithError(c, invalidInput("name cannot be empty"))
			return
		}
		category.Name = *request.Name
	}
	if request.Description != nil {
		category.Description = request.Description
	}
	if err := db.Save(&category).Error; err != nil {
		abortWithError(c, database.TranslateError(err))
		return
	}
	c.JSON(http.StatusOK, categoryJSON(category))
}

func (s *server) deleteCategory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	err := s.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("category_id = ?", id).Delete(&models.BookCategory{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Category{}, id)
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
