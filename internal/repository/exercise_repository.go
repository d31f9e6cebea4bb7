package repository

import (
	"context"

	"lesson_gate/internal/model"

	"gorm.io/gorm"
)

type ExerciseRepository struct {
	DB *gorm.DB
}

func NewExerciseRepository(db *gorm.DB) *ExerciseRepository {
	return &ExerciseRepository{DB: db}
}

func (r *ExerciseRepository) FindByID(ctx context.Context, id uint) (*model.Exercise, error) {
	var ex model.Exercise
	if err := r.DB.WithContext(ctx).First(&ex, id).Error; err != nil {
		return nil, err
	}
	return &ex, nil
}

// ListByLesson 按 id 顺序返回课时下的全部题目
func (r *ExerciseRepository) ListByLesson(ctx context.Context, lessonID uint) ([]model.Exercise, error) {
	var exercises []model.Exercise
	err := r.DB.WithContext(ctx).
		Where("lesson_id = ?", lessonID).
		Order("id ASC").
		Find(&exercises).Error
	return exercises, err
}
