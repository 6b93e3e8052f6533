package repository

import (
	"github.com/liaosimin/pictora/internal/model"

	"gorm.io/gorm"
)

type StyleRepository struct {
	db *gorm.DB
}

func NewStyleRepository(db *gorm.DB) StyleStore {
	return &StyleRepository{db: db}
}

func (r *StyleRepository) FindByID(id uint) (*model.Style, error) {
	var style model.Style
	if err := r.db.First(&style, id).Error; err != nil {
		return nil, err
	}
	return &style, nil
}

func (r *StyleRepository) Create(style *model.Style) error {
	return r.db.Create(style).Error
}

func (r *StyleRepository) List(categoryID *uint, limit, offset int) ([]model.Style, error) {
	var styles []model.Style
	query := r.db.Model(&model.Style{}).Preload("Category").Order("popular DESC")
	if categoryID != nil {
		query = query.Where("category_id = ?", *categoryID)
	}
	if err := query.Limit(limit).Offset(offset).Find(&styles).Error; err != nil {
		return nil, err
	}
	return styles, nil
}

func (r *StyleRepository) ListCategories(limit, offset int) ([]model.StyleCategory, error) {
	var categories []model.StyleCategory
	if err := r.db.Model(&model.StyleCategory{}).
		Order("popular DESC").
		Limit(limit).Offset(offset).
		Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// ListRecentByUser 取用户最近任务引用的风格，按最近一次使用时间倒序去重
func (r *StyleRepository) ListRecentByUser(userID uint, limit int) ([]model.Style, error) {
	var styles []model.Style
	err := r.db.Model(&model.Style{}).
		Joins("JOIN tasks ON tasks.style_id = styles.id").
		Where("tasks.user_id = ?", userID).
		Group("styles.id").
		Order("MAX(tasks.created_at) DESC").
		Limit(limit).
		Find(&styles).Error
	if err != nil {
		return nil, err
	}
	return styles, nil
}
