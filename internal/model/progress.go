package model

import "time"

// LessonProgress 用户在某课时上的最佳成绩，(user_id, lesson_id) 唯一
// swagger:model LessonProgress
type LessonProgress struct {
	BaseModel

	UserID       uint       `gorm:"uniqueIndex:idx_progress_user_lesson;not null" json:"userId"`
	LessonID     uint       `gorm:"uniqueIndex:idx_progress_user_lesson;not null" json:"lessonId"`
	Completed    bool       `gorm:"default:false" json:"completed"`
	Grade        float64    `gorm:"default:0" json:"grade"`
	Passed       bool       `gorm:"default:false" json:"passed"`
	AttemptCount int        `gorm:"default:0" json:"attemptCount"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

func (LessonProgress) TableName() string {
	return "lesson_progress"
}
