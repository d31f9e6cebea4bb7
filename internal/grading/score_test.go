package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGradeLesson(t *testing.T) {
	assert.Equal(t, 0.0, GradeLesson(0, 0))
	assert.Equal(t, 10.0, GradeLesson(5, 5))
	assert.Equal(t, 8.0, GradeLesson(4, 5))
	assert.Equal(t, 6.67, Round2(GradeLesson(2, 3)))
	assert.Equal(t, 10.0, GradeLesson(7, 5))
	assert.False(t, Passed(GradeLesson(0, 0)))
}

func TestPassedBoundary(t *testing.T) {
	assert.False(t, Passed(6.99))
	assert.True(t, Passed(7.00))
	assert.True(t, Passed(10))
}
