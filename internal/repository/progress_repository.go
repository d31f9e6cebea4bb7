package repository

import (
	"context"
	"errors"
	"fmt"

	"lesson_gate/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

// FindByUserAndLesson 记录不存在时返回 nil, nil
func (r *ProgressRepository) FindByUserAndLesson(ctx context.Context, userID, lessonID uint) (*model.LessonProgress, error) {
	return r.find(r.DB.WithContext(ctx), userID, lessonID)
}

// FindForUpdate 在事务内加行锁读取（SQLite 下锁子句会被驱动忽略）
func (r *ProgressRepository) FindForUpdate(ctx context.Context, userID, lessonID uint) (*model.LessonProgress, error) {
	return r.find(r.DB.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), userID, lessonID)
}

func (r *ProgressRepository) find(db *gorm.DB, userID, lessonID uint) (*model.LessonProgress, error) {
	var p model.LessonProgress
	err := db.Where("user_id = ? AND lesson_id = ?", userID, lessonID).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// InsertIfAbsent 依赖 (user_id, lesson_id) 唯一索引，并发插入时只有一个会成功
func (r *ProgressRepository) InsertIfAbsent(ctx context.Context, p *model.LessonProgress) (bool, error) {
	res := r.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(p)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// SaveAttempt 在同一条 UPDATE 中写入成绩与尝试次数
func (r *ProgressRepository) SaveAttempt(ctx context.Context, p *model.LessonProgress) error {
	res := r.DB.WithContext(ctx).
		Model(&model.LessonProgress{}).
		Where("id = ?", p.ID).
		Updates(map[string]interface{}{
			"completed":     p.Completed,
			"grade":         p.Grade,
			"passed":        p.Passed,
			"attempt_count": p.AttemptCount,
			"completed_at":  p.CompletedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("progress record %d vanished during update", p.ID)
	}
	return nil
}

func (r *ProgressRepository) ListByUser(ctx context.Context, userID uint) ([]model.LessonProgress, error) {
	var records []model.LessonProgress
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).Find(&records).Error
	return records, err
}

// ListLearnerIDs 返回所有有过作答记录的用户
func (r *ProgressRepository) ListLearnerIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).
		Model(&model.LessonProgress{}).
		Distinct("user_id").
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}
