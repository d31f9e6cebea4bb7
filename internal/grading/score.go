package grading

import "math"

const (
	MaxGrade     = 10.0
	PassingGrade = 7.0
)

// GradeLesson 将答对题数换算为 0-10 分，没有题目的课时记 0 分
func GradeLesson(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	grade := float64(correct) / float64(total) * MaxGrade
	return math.Max(0, math.Min(MaxGrade, grade))
}

// Passed reports whether grade meets the passing threshold (inclusive).
func Passed(grade float64) bool {
	return grade >= PassingGrade
}

// Round2 保留两位小数
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
