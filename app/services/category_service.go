package services

import (
	"strings"

	"MinimartApp/app/models"
)

// CategoryService manages the category list. Products reference
// categories by name, so deleting a category never touches products.
type CategoryService struct {
	*BaseService
}

// NewCategoryService creates a new category service.
func NewCategoryService(base *BaseService) *CategoryService {
	return &CategoryService{BaseService: base}
}

// AddCategory appends a new category. Names are unique.
func (s *CategoryService) AddCategory(name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &models.ValidationError{Field: "name", Message: "category name is required"}
	}

	defer s.flushRemote()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.HasCategory(name) {
		return nil, &models.ValidationError{Field: "name", Message: "category already exists"}
	}

	category := models.Category{Name: name}
	s.state.Categories = append(s.state.Categories, category)
	s.saveLocalData()
	s.gateway.Create(models.CollectionCategories, category)
	return &category, nil
}

// DeleteCategory removes a category by name. Unknown names are a no-op.
func (s *CategoryService) DeleteCategory(name string) error {
	defer s.flushRemote()
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.RemoveCategory(name) {
		return nil
	}
	s.saveLocalData()
	s.gateway.Delete(models.CollectionCategories, name)
	return nil
}

// GetCategories returns a copy of the category list.
func (s *CategoryService) GetCategories() []models.Category {
	s.mu.Lock()
	defer s.mu.Unlock()

	categories := make([]models.Category, len(s.state.Categories))
	copy(categories, s.state.Categories)
	return categories
}
