package service

import (
	"context"
	"fmt"
	"time"

	"lesson_gate/internal/grading"
	"lesson_gate/internal/model"
	"lesson_gate/internal/repository"
	"lesson_gate/internal/util"

	"gorm.io/gorm"
)

// AttemptResult 一次提交写入台账后的结果
type AttemptResult struct {
	// Grade 本次提交的成绩
	Grade float64 `json:"grade"`
	// StoredGrade 台账中的最佳成绩
	StoredGrade    float64 `json:"storedGrade"`
	Passed         bool    `json:"passed"`
	IsImprovement  bool    `json:"isImprovement"`
	AttemptCount   int     `json:"attemptCount"`
	CorrectCount   int     `json:"correctCount"`
	TotalExercises int     `json:"totalExercises"`
}

// ProgressLedger 按 (user, lesson) 保存最佳成绩。
// 读取、判断、写入在同一个事务中完成，行锁 + 唯一索引保证同一键上的提交串行
type ProgressLedger struct {
	DB  *gorm.DB
	now func() time.Time
}

func NewProgressLedger(db *gorm.DB) *ProgressLedger {
	return &ProgressLedger{DB: db, now: time.Now}
}

func (l *ProgressLedger) RecordAttempt(ctx context.Context, userID, lessonID uint, grade float64, correct, total int) (*AttemptResult, error) {
	if grade < 0 || grade > grading.MaxGrade {
		return nil, fmt.Errorf("%w: grade %v out of range", util.ErrValidation, grade)
	}
	grade = grading.Round2(grade)
	now := l.now()

	var result *AttemptResult
	err := l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewProgressRepository(tx)

		record, err := repo.FindForUpdate(ctx, userID, lessonID)
		if err != nil {
			return err
		}

		if record == nil {
			record = &model.LessonProgress{
				UserID:       userID,
				LessonID:     lessonID,
				Completed:    true,
				Grade:        grade,
				Passed:       grading.Passed(grade),
				AttemptCount: 1,
				CompletedAt:  &now,
			}
			inserted, err := repo.InsertIfAbsent(ctx, record)
			if err != nil {
				return err
			}
			if inserted {
				result = newAttemptResult(record, grade, true, correct, total)
				return nil
			}
			// 并发插入失败，重新加锁读取已存在的记录
			record, err = repo.FindForUpdate(ctx, userID, lessonID)
			if err != nil {
				return err
			}
			if record == nil {
				return fmt.Errorf("progress for user %d lesson %d missing after conflict", userID, lessonID)
			}
		}

		improved := applyAttempt(record, grade, now)
		if err := repo.SaveAttempt(ctx, record); err != nil {
			return err
		}
		result = newAttemptResult(record, grade, improved, correct, total)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: record attempt: %w", util.ErrPersistence, err)
	}
	return result, nil
}

// applyAttempt 合并一次新提交：尝试次数总是 +1，只有严格更高的成绩才覆盖
func applyAttempt(p *model.LessonProgress, grade float64, now time.Time) bool {
	p.AttemptCount++
	p.Completed = true
	if grade <= p.Grade {
		return false
	}
	p.Grade = grade
	p.Passed = grading.Passed(grade)
	p.CompletedAt = &now
	return true
}

func newAttemptResult(p *model.LessonProgress, grade float64, improved bool, correct, total int) *AttemptResult {
	return &AttemptResult{
		Grade:          grade,
		StoredGrade:    p.Grade,
		Passed:         p.Passed,
		IsImprovement:  improved,
		AttemptCount:   p.AttemptCount,
		CorrectCount:   correct,
		TotalExercises: total,
	}
}
