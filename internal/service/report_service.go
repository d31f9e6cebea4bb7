package service

import (
	"context"
	"fmt"

	"lesson_gate/internal/grading"
	"lesson_gate/internal/repository"
	"lesson_gate/internal/util"
)

// UnitProgress 单元汇总，由进度实时计算，不落库
type UnitProgress struct {
	UnitID        uint    `json:"unitId"`
	Number        int     `json:"number"`
	Title         string  `json:"title"`
	Order         int     `json:"order"`
	TotalLessons  int     `json:"totalLessons"`
	PassedLessons int     `json:"passedLessons"`
	Average       float64 `json:"average"`
	Completed     bool    `json:"completed"`
}

type LearnerStats struct {
	PassedLessons    int     `json:"passedLessons"`
	CompletedLessons int     `json:"completedLessons"`
	TotalLessons     int     `json:"totalLessons"`
	OverallAverage   float64 `json:"overallAverage"`
}

type Certificate struct {
	AllUnitsCompleted bool    `json:"allUnitsCompleted"`
	CompletedUnits    int     `json:"completedUnits"`
	TotalUnits        int     `json:"totalUnits"`
	ProgressPercent   int     `json:"progressPercent"`
	FinalAverage      float64 `json:"finalAverage"`
}

type LessonGrade struct {
	LessonID     uint    `json:"lessonId"`
	Title        string  `json:"title"`
	Order        int     `json:"order"`
	Completed    bool    `json:"completed"`
	Passed       bool    `json:"passed"`
	Grade        float64 `json:"grade"`
	AttemptCount int     `json:"attemptCount"`
}

type UnitGrades struct {
	UnitProgress
	Lessons []LessonGrade `json:"lessons"`
}

type GradesReport struct {
	Units        []UnitGrades `json:"units"`
	FinalAverage float64      `json:"finalAverage"`
}

// LearnerOverview 管理端查看的单个学习者进度
type LearnerOverview struct {
	UserID       uint           `json:"userId"`
	Units        []UnitProgress `json:"units"`
	FinalAverage float64        `json:"finalAverage"`
	Stats        LearnerStats   `json:"stats"`
}

// UnitRollups 计算每个单元的汇总。
// 平均分只统计已完成的课时，0 分的有效成绩计入，未作答的课时不计入
func UnitRollups(snap *CourseSnapshot) []UnitProgress {
	rollups := make([]UnitProgress, 0, len(snap.Units))
	for _, u := range snap.Units {
		up := UnitProgress{
			UnitID:       u.ID,
			Number:       u.Number,
			Title:        u.Title,
			Order:        u.Order,
			TotalLessons: len(u.Lessons),
		}
		var sum float64
		var graded int
		for _, l := range u.Lessons {
			p, ok := snap.Progress[l.ID]
			if !ok || !p.Completed {
				continue
			}
			if p.Passed {
				up.PassedLessons++
			}
			sum += p.Grade
			graded++
		}
		if graded > 0 {
			up.Average = grading.Round2(sum / float64(graded))
		}
		up.Completed = up.TotalLessons > 0 && up.PassedLessons == up.TotalLessons
		rollups = append(rollups, up)
	}
	return rollups
}

// CourseFinalAverage 单元平均分之和除以单元总数，未作答的单元按 0 计
func CourseFinalAverage(units []UnitProgress) float64 {
	if len(units) == 0 {
		return 0
	}
	var sum float64
	for _, u := range units {
		sum += u.Average
	}
	return grading.Round2(sum / float64(len(units)))
}

func AllUnitsCompleted(units []UnitProgress) bool {
	if len(units) == 0 {
		return false
	}
	for _, u := range units {
		if !u.Completed {
			return false
		}
	}
	return true
}

func StatsFor(snap *CourseSnapshot) LearnerStats {
	var stats LearnerStats
	var sum float64
	for _, u := range snap.Units {
		for _, l := range u.Lessons {
			stats.TotalLessons++
			p, ok := snap.Progress[l.ID]
			if !ok || !p.Completed {
				continue
			}
			stats.CompletedLessons++
			if p.Passed {
				stats.PassedLessons++
			}
			sum += p.Grade
		}
	}
	if stats.CompletedLessons > 0 {
		stats.OverallAverage = grading.Round2(sum / float64(stats.CompletedLessons))
	}
	return stats
}

func CertificateFor(units []UnitProgress) Certificate {
	c := Certificate{TotalUnits: len(units), FinalAverage: CourseFinalAverage(units)}
	for _, u := range units {
		if u.Completed {
			c.CompletedUnits++
		}
	}
	if c.TotalUnits > 0 {
		c.ProgressPercent = c.CompletedUnits * 100 / c.TotalUnits
	}
	c.AllUnitsCompleted = c.TotalUnits > 0 && c.CompletedUnits == c.TotalUnits
	return c
}

func GradesFor(snap *CourseSnapshot) GradesReport {
	rollups := UnitRollups(snap)
	report := GradesReport{
		Units:        make([]UnitGrades, 0, len(rollups)),
		FinalAverage: CourseFinalAverage(rollups),
	}
	for i, u := range snap.Units {
		ug := UnitGrades{UnitProgress: rollups[i], Lessons: make([]LessonGrade, 0, len(u.Lessons))}
		for _, l := range u.Lessons {
			p := snap.Progress[l.ID]
			ug.Lessons = append(ug.Lessons, LessonGrade{
				LessonID:     l.ID,
				Title:        l.Title,
				Order:        l.Order,
				Completed:    p.Completed,
				Passed:       p.Passed,
				Grade:        p.Grade,
				AttemptCount: p.AttemptCount,
			})
		}
		report.Units = append(report.Units, ug)
	}
	return report
}

type ReportService struct {
	Resolver     *UnlockResolver
	ProgressRepo *repository.ProgressRepository
}

func NewReportService(resolver *UnlockResolver, progressRepo *repository.ProgressRepository) *ReportService {
	return &ReportService{Resolver: resolver, ProgressRepo: progressRepo}
}

func (s *ReportService) GetUnitProgress(ctx context.Context, userID uint) ([]UnitProgress, error) {
	snap, err := s.Resolver.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	return UnitRollups(snap), nil
}

func (s *ReportService) GetGrades(ctx context.Context, userID uint) (*GradesReport, error) {
	snap, err := s.Resolver.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	report := GradesFor(snap)
	return &report, nil
}

func (s *ReportService) GetCertificate(ctx context.Context, userID uint) (*Certificate, error) {
	units, err := s.GetUnitProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	cert := CertificateFor(units)
	return &cert, nil
}

func (s *ReportService) GetStats(ctx context.Context, userID uint) (*LearnerStats, error) {
	snap, err := s.Resolver.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats := StatsFor(snap)
	return &stats, nil
}

// ListLearnerOverviews 汇总所有有过作答记录的学习者
func (s *ReportService) ListLearnerOverviews(ctx context.Context) ([]LearnerOverview, error) {
	ids, err := s.ProgressRepo.ListLearnerIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list learners: %w", util.ErrPersistence, err)
	}

	units, err := s.Resolver.CourseRepo.ListUnitsWithLessons(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load course: %w", util.ErrPersistence, err)
	}

	overviews := make([]LearnerOverview, 0, len(ids))
	for _, id := range ids {
		records, err := s.ProgressRepo.ListByUser(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("%w: load progress for user %d: %w", util.ErrPersistence, id, err)
		}
		snap := NewCourseSnapshot(units, records)
		rollups := UnitRollups(snap)
		overviews = append(overviews, LearnerOverview{
			UserID:       id,
			Units:        rollups,
			FinalAverage: CourseFinalAverage(rollups),
			Stats:        StatsFor(snap),
		})
	}
	return overviews, nil
}
