package service

import (
	"context"
	"fmt"

	"lesson_gate/internal/model"
	"lesson_gate/internal/repository"
	"lesson_gate/internal/util"
)

const (
	reasonFirstLesson     = "First lesson is always available"
	reasonPrevUnitDone    = "Previous unit completed"
	reasonPrevUnitPending = "You must complete the previous unit with a minimum of 7/10 on every lesson"
	reasonPrevLessonDone  = "Previous lesson passed"
	reasonAvailable       = "Lesson available"
)

// UnlockDecision 解锁判定及原因
type UnlockDecision struct {
	Unlocked bool   `json:"unlocked"`
	Reason   string `json:"reason"`
}

// CourseSnapshot 单次请求内的课程结构与学习者进度，不跨请求缓存
type CourseSnapshot struct {
	// Units 按顺序排列，课时同样有序
	Units    []model.Unit
	Progress map[uint]model.LessonProgress
}

func NewCourseSnapshot(units []model.Unit, records []model.LessonProgress) *CourseSnapshot {
	progress := make(map[uint]model.LessonProgress, len(records))
	for _, r := range records {
		progress[r.LessonID] = r
	}
	return &CourseSnapshot{Units: units, Progress: progress}
}

func (s *CourseSnapshot) passed(lessonID uint) bool {
	p, ok := s.Progress[lessonID]
	return ok && p.Passed
}

func (s *CourseSnapshot) locate(lessonID uint) (*model.Unit, *model.Lesson) {
	for i := range s.Units {
		u := &s.Units[i]
		for j := range u.Lessons {
			if u.Lessons[j].ID == lessonID {
				return u, &u.Lessons[j]
			}
		}
	}
	return nil, nil
}

func (s *CourseSnapshot) unitByOrder(order int) *model.Unit {
	for i := range s.Units {
		if s.Units[i].Order == order {
			return &s.Units[i]
		}
	}
	return nil
}

// Resolve 依次检查：课程起点、单元边界、单元内顺序，命中第一条即返回
func (s *CourseSnapshot) Resolve(lessonID uint) (UnlockDecision, error) {
	unit, lesson := s.locate(lessonID)
	if lesson == nil {
		return UnlockDecision{}, fmt.Errorf("%w: lesson %d", util.ErrNotFound, lessonID)
	}

	if unit.Order == 1 && lesson.Order == 1 {
		return UnlockDecision{Unlocked: true, Reason: reasonFirstLesson}, nil
	}

	if lesson.Order == 1 {
		prev := s.unitByOrder(unit.Order - 1)
		if prev != nil {
			for _, l := range prev.Lessons {
				if !s.passed(l.ID) {
					return UnlockDecision{Reason: reasonPrevUnitPending}, nil
				}
			}
		}
		return UnlockDecision{Unlocked: true, Reason: reasonPrevUnitDone}, nil
	}

	for _, l := range unit.Lessons {
		if l.Order != lesson.Order-1 {
			continue
		}
		if s.passed(l.ID) {
			return UnlockDecision{Unlocked: true, Reason: reasonPrevLessonDone}, nil
		}
		return UnlockDecision{
			Reason: fmt.Sprintf("You need at least 7/10 in '%s' (your current grade: %s/10)",
				l.Title, util.FormatGrade(s.Progress[l.ID].Grade)),
		}, nil
	}

	// 顺序存在空缺时不阻塞学习者
	return UnlockDecision{Unlocked: true, Reason: reasonAvailable}, nil
}

// UnlockResolver 每次调用都重新读取课程结构和进度
type UnlockResolver struct {
	CourseRepo   *repository.CourseRepository
	ProgressRepo *repository.ProgressRepository
}

func NewUnlockResolver(courseRepo *repository.CourseRepository, progressRepo *repository.ProgressRepository) *UnlockResolver {
	return &UnlockResolver{CourseRepo: courseRepo, ProgressRepo: progressRepo}
}

func (r *UnlockResolver) Snapshot(ctx context.Context, userID uint) (*CourseSnapshot, error) {
	units, err := r.CourseRepo.ListUnitsWithLessons(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load course: %w", util.ErrPersistence, err)
	}
	records, err := r.ProgressRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: load progress: %w", util.ErrPersistence, err)
	}
	return NewCourseSnapshot(units, records), nil
}

func (r *UnlockResolver) IsUnlocked(ctx context.Context, userID, lessonID uint) (UnlockDecision, error) {
	snap, err := r.Snapshot(ctx, userID)
	if err != nil {
		return UnlockDecision{}, err
	}
	return snap.Resolve(lessonID)
}
