package service

import (
	"testing"

	"lesson_gate/internal/grading"
	"lesson_gate/internal/model"
	"lesson_gate/internal/repository"
	"lesson_gate/pkg/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// course 两个单元：单元一 L1、L2，单元二 L3
type course struct {
	Unit1, Unit2 model.Unit
	L1, L2, L3   model.Lesson
	// L1 的三道题：选择、判断、填空
	MC, TF, FIB model.Exercise
}

func seedCourse(t *testing.T, db *gorm.DB) *course {
	t.Helper()
	c := &course{
		Unit1: model.Unit{Number: 1, Title: "Basics", Order: 1},
		Unit2: model.Unit{Number: 2, Title: "Control flow", Order: 2},
	}
	require.NoError(t, db.Create(&c.Unit1).Error)
	require.NoError(t, db.Create(&c.Unit2).Error)

	c.L1 = model.Lesson{UnitID: c.Unit1.ID, Title: "Variables", Order: 1}
	c.L2 = model.Lesson{UnitID: c.Unit1.ID, Title: "Input", Order: 2}
	c.L3 = model.Lesson{UnitID: c.Unit2.ID, Title: "If statements", Order: 1}
	for _, l := range []*model.Lesson{&c.L1, &c.L2, &c.L3} {
		require.NoError(t, db.Create(l).Error)
	}

	c.MC = model.Exercise{LessonID: c.L1.ID, Kind: "multiple_choice", Prompt: "Two?", Options: "a) uno|b) dos|c) tres", CorrectAnswer: "b", Explanation: "dos means two"}
	c.TF = model.Exercise{LessonID: c.L1.ID, Kind: "true_false", Prompt: "Python is typed dynamically", CorrectAnswer: "verdadero"}
	c.FIB = model.Exercise{LessonID: c.L1.ID, Kind: "fill_in_blank", Prompt: "Read a number", CorrectAnswer: "int|input"}
	for _, e := range []*model.Exercise{&c.MC, &c.TF, &c.FIB} {
		require.NoError(t, db.Create(e).Error)
	}
	return c
}

type testServices struct {
	Ledger   *ProgressLedger
	Resolver *UnlockResolver
	Lessons  *LessonService
	Reports  *ReportService
}

func newTestServices(db *gorm.DB, allowFallback bool) *testServices {
	courseRepo := repository.NewCourseRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	exerciseRepo := repository.NewExerciseRepository(db)

	ledger := NewProgressLedger(db)
	resolver := NewUnlockResolver(courseRepo, progressRepo)
	return &testServices{
		Ledger:   ledger,
		Resolver: resolver,
		Lessons:  NewLessonService(exerciseRepo, resolver, ledger, grading.NewChecker(allowFallback), grading.NewShuffler(nil)),
		Reports:  NewReportService(resolver, progressRepo),
	}
}

func strPtr(s string) *string { return &s }
