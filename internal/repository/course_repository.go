package repository

import (
	"context"

	"lesson_gate/internal/model"

	"gorm.io/gorm"
)

// CourseRepository 只读访问单元与课时，内容由管理端维护
type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

// ListUnitsWithLessons 返回按顺序排列的全部单元，每个单元的课时同样按顺序排列
func (r *CourseRepository) ListUnitsWithLessons(ctx context.Context) ([]model.Unit, error) {
	var units []model.Unit
	err := r.DB.WithContext(ctx).
		Preload("Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, id ASC")
		}).
		Order("sort_order ASC, id ASC").
		Find(&units).Error
	return units, err
}
