package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"deposit-mail-reconciler/internal/model"
)

// TemplateRepository persists bank email extraction templates.
type TemplateRepository struct {
	db *gorm.DB
}

// NewTemplateRepository creates a TemplateRepository.
func NewTemplateRepository(db *gorm.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// EnabledTemplates returns enabled templates in descending priority order,
// the order the extractor tries them in.
func (r *TemplateRepository) EnabledTemplates() ([]model.ExtractionTemplate, error) {
	var templates []model.ExtractionTemplate
	err := r.db.
		Where("enabled = ?", true).
		Order("priority DESC, id ASC").
		Find(&templates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load extraction templates: %w", err)
	}
	return templates, nil
}

// List returns all templates.
func (r *TemplateRepository) List(ctx context.Context) ([]model.ExtractionTemplate, error) {
	var templates []model.ExtractionTemplate
	if err := r.db.WithContext(ctx).Order("priority DESC, id ASC").Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, nil
}

// Get returns one template by id.
func (r *TemplateRepository) Get(ctx context.Context, id uint) (*model.ExtractionTemplate, error) {
	var tpl model.ExtractionTemplate
	if err := r.db.WithContext(ctx).First(&tpl, id).Error; err != nil {
		return nil, fmt.Errorf("failed to load template %d: %w", id, err)
	}
	return &tpl, nil
}

// Create inserts a template.
func (r *TemplateRepository) Create(ctx context.Context, tpl *model.ExtractionTemplate) error {
	if err := r.db.WithContext(ctx).Create(tpl).Error; err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

// Save persists changes to an existing template.
func (r *TemplateRepository) Save(ctx context.Context, tpl *model.ExtractionTemplate) error {
	if err := r.db.WithContext(ctx).Save(tpl).Error; err != nil {
		return fmt.Errorf("failed to save template: %w", err)
	}
	return nil
}

// Delete soft-deletes a template.
func (r *TemplateRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&model.ExtractionTemplate{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete template %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
