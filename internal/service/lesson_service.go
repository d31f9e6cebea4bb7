package service

import (
	"context"
	"errors"
	"fmt"

	"lesson_gate/internal/grading"
	"lesson_gate/internal/model"
	"lesson_gate/internal/repository"
	"lesson_gate/internal/util"
	"lesson_gate/pkg/logger"
	"lesson_gate/pkg/monitoring"
	"lesson_gate/pkg/tracing"

	"github.com/jinzhu/copier"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CheckAnswerRequest struct {
	ExerciseID           uint    `json:"exerciseId"`
	Answer               *string `json:"answer"`
	ShuffledCorrectLabel *string `json:"shuffledCorrectLabel"`
}

type AnswerFeedback struct {
	Correct     bool   `json:"correct"`
	Explanation string `json:"explanation"`
	// CorrectAnswer 仅在答错时返回
	CorrectAnswer string `json:"correctAnswer,omitempty"`
}

type CompleteLessonRequest struct {
	LessonID       uint `json:"lessonId"`
	CorrectCount   int  `json:"correctCount"`
	TotalExercises int  `json:"totalExercises"`
}

type CompletionResult struct {
	AttemptResult
	UnitCompleted      bool    `json:"unitCompleted"`
	AllUnitsCompleted  bool    `json:"allUnitsCompleted"`
	CourseFinalAverage float64 `json:"courseFinalAverage"`
	Message            string  `json:"message"`
}

// SubmittedAnswer 整课提交中的一道题
type SubmittedAnswer struct {
	ExerciseID           uint    `json:"exerciseId"`
	Answer               *string `json:"answer"`
	ShuffledCorrectLabel *string `json:"shuffledCorrectLabel"`
}

type ExerciseFeedback struct {
	ExerciseID uint `json:"exerciseId"`
	AnswerFeedback
}

type SubmissionResult struct {
	CompletionResult
	Feedback []ExerciseFeedback `json:"feedback"`
}

type ExerciseView struct {
	ID     uint   `json:"id"`
	Kind   string `json:"kind"`
	Prompt string `json:"prompt"`
	Points int    `json:"points"`
	// Choices 打乱后的选项，仅选择题有
	Choices              []grading.Option `json:"options,omitempty"`
	ShuffledCorrectLabel string           `json:"shuffledCorrectLabel,omitempty"`
}

type LessonView struct {
	ID          uint                  `json:"id"`
	UnitID      uint                  `json:"unitId"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Order       int                   `json:"order"`
	Unlock      UnlockDecision        `json:"unlock"`
	Progress    *model.LessonProgress `json:"progress,omitempty"`
	Exercises   []ExerciseView        `json:"exercises"`
}

type LessonStatus struct {
	LessonID     uint    `json:"lessonId"`
	Title        string  `json:"title"`
	Order        int     `json:"order"`
	Unlocked     bool    `json:"unlocked"`
	Reason       string  `json:"reason"`
	Completed    bool    `json:"completed"`
	Passed       bool    `json:"passed"`
	Grade        float64 `json:"grade"`
	AttemptCount int     `json:"attemptCount"`
}

type UnitDashboard struct {
	UnitProgress
	Lessons []LessonStatus `json:"lessons"`
}

type Dashboard struct {
	Units              []UnitDashboard `json:"units"`
	AllUnitsCompleted  bool            `json:"allUnitsCompleted"`
	CourseFinalAverage float64         `json:"courseFinalAverage"`
	Stats              LearnerStats    `json:"stats"`
}

type LessonService struct {
	ExerciseRepo *repository.ExerciseRepository
	Resolver     *UnlockResolver
	Ledger       *ProgressLedger
	Checker      *grading.Checker
	Shuffler     *grading.Shuffler
}

func NewLessonService(
	exerciseRepo *repository.ExerciseRepository,
	resolver *UnlockResolver,
	ledger *ProgressLedger,
	checker *grading.Checker,
	shuffler *grading.Shuffler,
) *LessonService {
	return &LessonService{
		ExerciseRepo: exerciseRepo,
		Resolver:     resolver,
		Ledger:       ledger,
		Checker:      checker,
		Shuffler:     shuffler,
	}
}

// CheckAnswer 对单题判分，不写台账
func (s *LessonService) CheckAnswer(ctx context.Context, req CheckAnswerRequest) (*AnswerFeedback, error) {
	if req.ExerciseID == 0 {
		return nil, fmt.Errorf("%w: exercise id is required", util.ErrValidation)
	}
	if req.Answer == nil {
		return nil, fmt.Errorf("%w: answer is required", util.ErrValidation)
	}

	ctx, span := tracing.Start(ctx, "LessonService.CheckAnswer", attribute.Int64("exercise.id", int64(req.ExerciseID)))
	defer span.End()

	row, err := s.ExerciseRepo.FindByID(ctx, req.ExerciseID)
	if err != nil {
		err = lookupError(err, "exercise", req.ExerciseID)
		tracing.RecordError(span, err)
		return nil, err
	}

	feedback, err := s.check(row, *req.Answer, req.ShuffledCorrectLabel)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	return feedback, nil
}

func (s *LessonService) check(row *model.Exercise, answer string, shuffledLabel *string) (*AnswerFeedback, error) {
	ex, err := grading.Decode(row.Kind, row.Options, row.CorrectAnswer)
	if err != nil {
		return nil, fmt.Errorf("exercise %d is malformed: %v", row.ID, err)
	}

	verdict, err := s.Checker.Check(ex, grading.Submission{Answer: answer, ShuffledLabel: shuffledLabel})
	if err != nil {
		return nil, err
	}

	if verdict.UsedFallback {
		monitoring.ShuffleFallbacks.Inc()
		logger.Log.Warn("Multiple choice checked against stored label",
			zap.Uint("exercise_id", row.ID),
		)
	}

	result := "incorrect"
	if verdict.Correct {
		result = "correct"
	}
	monitoring.AnswerChecks.WithLabelValues(string(ex.Kind()), result).Inc()

	feedback := &AnswerFeedback{Correct: verdict.Correct, Explanation: row.Explanation}
	if !verdict.Correct {
		feedback.CorrectAnswer = verdict.CorrectAnswer
	}
	return feedback, nil
}

func (s *LessonService) IsLessonUnlocked(ctx context.Context, userID, lessonID uint) (UnlockDecision, error) {
	if lessonID == 0 {
		return UnlockDecision{}, fmt.Errorf("%w: lesson id is required", util.ErrValidation)
	}
	return s.Resolver.IsUnlocked(ctx, userID, lessonID)
}

// CompleteLesson 记录一次课时提交。提交前重新校验解锁状态，锁定的课时不会写入台账
func (s *LessonService) CompleteLesson(ctx context.Context, userID uint, req CompleteLessonRequest) (*CompletionResult, error) {
	if req.LessonID == 0 {
		return nil, fmt.Errorf("%w: lesson id is required", util.ErrValidation)
	}
	if req.CorrectCount < 0 || req.TotalExercises < 0 {
		return nil, fmt.Errorf("%w: counts must not be negative", util.ErrValidation)
	}
	if req.CorrectCount > req.TotalExercises {
		return nil, fmt.Errorf("%w: correct count %d exceeds total %d", util.ErrValidation, req.CorrectCount, req.TotalExercises)
	}

	ctx, span := tracing.Start(ctx, "LessonService.CompleteLesson",
		attribute.Int64("user.id", int64(userID)),
		attribute.Int64("lesson.id", int64(req.LessonID)),
	)
	defer span.End()

	result, err := s.completeLesson(ctx, userID, req)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(
		attribute.Float64("lesson.grade", result.Grade),
		attribute.Bool("lesson.improvement", result.IsImprovement),
	)
	return result, nil
}

func (s *LessonService) completeLesson(ctx context.Context, userID uint, req CompleteLessonRequest) (*CompletionResult, error) {
	decision, err := s.Resolver.IsUnlocked(ctx, userID, req.LessonID)
	if err != nil {
		return nil, err
	}
	if !decision.Unlocked {
		monitoring.LessonAttempts.WithLabelValues("locked").Inc()
		logger.Log.Info("Rejected attempt on locked lesson",
			zap.Uint("user_id", userID),
			zap.Uint("lesson_id", req.LessonID),
		)
		return nil, fmt.Errorf("%w: %s", util.ErrLessonLocked, decision.Reason)
	}

	grade := grading.GradeLesson(req.CorrectCount, req.TotalExercises)
	attempt, err := s.Ledger.RecordAttempt(ctx, userID, req.LessonID, grade, req.CorrectCount, req.TotalExercises)
	if err != nil {
		return nil, err
	}

	result := &CompletionResult{
		AttemptResult: *attempt,
		Message:       completionMessage(attempt),
	}

	// 台账已提交，汇总失败只记日志，不能让客户端重试导致重复计数
	snap, err := s.Resolver.Snapshot(ctx, userID)
	if err != nil {
		logger.Log.Warn("Failed to build rollups after recording attempt",
			zap.Uint("user_id", userID),
			zap.Uint("lesson_id", req.LessonID),
			zap.Error(err),
		)
	} else {
		fillRollups(result, snap, req.LessonID)
	}

	outcome := "failed"
	if attempt.Passed {
		outcome = "passed"
	}
	monitoring.LessonAttempts.WithLabelValues(outcome).Inc()
	monitoring.LessonGrades.Observe(attempt.Grade)

	logger.Log.Info("Lesson attempt recorded",
		zap.Uint("user_id", userID),
		zap.Uint("lesson_id", req.LessonID),
		zap.Float64("grade", attempt.Grade),
		zap.Float64("stored_grade", attempt.StoredGrade),
		zap.Int("attempt_count", attempt.AttemptCount),
		zap.Bool("improvement", attempt.IsImprovement),
	)
	return result, nil
}

func fillRollups(result *CompletionResult, snap *CourseSnapshot, lessonID uint) {
	units := UnitRollups(snap)
	result.AllUnitsCompleted = AllUnitsCompleted(units)
	result.CourseFinalAverage = CourseFinalAverage(units)
	if unit, _ := snap.locate(lessonID); unit != nil {
		for _, u := range units {
			if u.UnitID == unit.ID {
				result.UnitCompleted = u.Completed
				break
			}
		}
	}
}

func completionMessage(a *AttemptResult) string {
	switch {
	case a.Passed && a.IsImprovement:
		return fmt.Sprintf("Excellent! You scored %s/10. Lesson passed.", util.FormatGrade(a.Grade))
	case a.Passed:
		return fmt.Sprintf("You scored %.1f/10. Your best grade is still %s/10.", a.Grade, util.FormatGrade(a.StoredGrade))
	default:
		return fmt.Sprintf("You scored %s/10. You need at least 7/10 to unlock the next lesson. Try again!", util.FormatGrade(a.Grade))
	}
}

// SubmitLesson 服务端判分整课作答，再按判分结果完成课时。
// 未作答的题目按错误计，总题数取课时的实际题目数
func (s *LessonService) SubmitLesson(ctx context.Context, userID, lessonID uint, answers []SubmittedAnswer) (*SubmissionResult, error) {
	if lessonID == 0 {
		return nil, fmt.Errorf("%w: lesson id is required", util.ErrValidation)
	}

	ctx, span := tracing.Start(ctx, "LessonService.SubmitLesson",
		attribute.Int64("user.id", int64(userID)),
		attribute.Int64("lesson.id", int64(lessonID)),
	)
	defer span.End()

	decision, err := s.Resolver.IsUnlocked(ctx, userID, lessonID)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	if !decision.Unlocked {
		monitoring.LessonAttempts.WithLabelValues("locked").Inc()
		return nil, fmt.Errorf("%w: %s", util.ErrLessonLocked, decision.Reason)
	}

	rows, err := s.ExerciseRepo.ListByLesson(ctx, lessonID)
	if err != nil {
		err = fmt.Errorf("%w: list exercises: %w", util.ErrPersistence, err)
		tracing.RecordError(span, err)
		return nil, err
	}

	byExercise := make(map[uint]SubmittedAnswer, len(answers))
	for _, a := range answers {
		if _, dup := byExercise[a.ExerciseID]; dup {
			return nil, fmt.Errorf("%w: exercise %d answered twice", util.ErrValidation, a.ExerciseID)
		}
		byExercise[a.ExerciseID] = a
	}
	for id := range byExercise {
		if !containsExercise(rows, id) {
			return nil, fmt.Errorf("%w: exercise %d does not belong to lesson %d", util.ErrValidation, id, lessonID)
		}
	}

	feedback := make([]ExerciseFeedback, 0, len(rows))
	correct := 0
	for i := range rows {
		row := &rows[i]
		submitted, ok := byExercise[row.ID]
		var answer string
		if ok && submitted.Answer != nil {
			answer = *submitted.Answer
		}

		fb, err := s.check(row, answer, submitted.ShuffledCorrectLabel)
		if err != nil {
			if errors.Is(err, util.ErrValidation) && ok {
				return nil, err
			}
			logger.Log.Warn("Exercise counted as incorrect",
				zap.Uint("exercise_id", row.ID),
				zap.Error(err),
			)
			fb = &AnswerFeedback{Explanation: row.Explanation}
		}
		if fb.Correct {
			correct++
		}
		feedback = append(feedback, ExerciseFeedback{ExerciseID: row.ID, AnswerFeedback: *fb})
	}

	completion, err := s.completeLesson(ctx, userID, CompleteLessonRequest{
		LessonID:       lessonID,
		CorrectCount:   correct,
		TotalExercises: len(rows),
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	return &SubmissionResult{CompletionResult: *completion, Feedback: feedback}, nil
}

func containsExercise(rows []model.Exercise, id uint) bool {
	for _, r := range rows {
		if r.ID == id {
			return true
		}
	}
	return false
}

// GetLesson 渲染课时：校验解锁后，每次都重新打乱选择题选项
func (s *LessonService) GetLesson(ctx context.Context, userID, lessonID uint) (*LessonView, error) {
	ctx, span := tracing.Start(ctx, "LessonService.GetLesson", attribute.Int64("lesson.id", int64(lessonID)))
	defer span.End()

	snap, err := s.Resolver.Snapshot(ctx, userID)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	decision, err := snap.Resolve(lessonID)
	if err != nil {
		return nil, err
	}
	if !decision.Unlocked {
		return nil, fmt.Errorf("%w: %s", util.ErrLessonLocked, decision.Reason)
	}

	_, lesson := snap.locate(lessonID)
	view := &LessonView{Unlock: decision}
	if err := copier.Copy(view, lesson); err != nil {
		return nil, err
	}
	if p, ok := snap.Progress[lessonID]; ok {
		view.Progress = &p
	}

	rows, err := s.ExerciseRepo.ListByLesson(ctx, lessonID)
	if err != nil {
		err = fmt.Errorf("%w: list exercises: %w", util.ErrPersistence, err)
		tracing.RecordError(span, err)
		return nil, err
	}

	view.Exercises = make([]ExerciseView, 0, len(rows))
	for i := range rows {
		ev, err := s.renderExercise(&rows[i])
		if err != nil {
			logger.Log.Warn("Skipping malformed exercise",
				zap.Uint("exercise_id", rows[i].ID),
				zap.Error(err),
			)
			continue
		}
		view.Exercises = append(view.Exercises, *ev)
	}
	return view, nil
}

func (s *LessonService) renderExercise(row *model.Exercise) (*ExerciseView, error) {
	ex, err := grading.Decode(row.Kind, row.Options, row.CorrectAnswer)
	if err != nil {
		return nil, err
	}

	var ev ExerciseView
	if err := copier.Copy(&ev, row); err != nil {
		return nil, err
	}
	ev.Kind = string(ex.Kind())

	if mc, ok := ex.(grading.MultipleChoice); ok {
		shuffled := s.Shuffler.Shuffle(mc)
		ev.Choices = shuffled.Options
		ev.ShuffledCorrectLabel = shuffled.CorrectLabel
	}
	return &ev, nil
}

// GetDashboard 每个单元、每个课时的解锁状态与成绩
func (s *LessonService) GetDashboard(ctx context.Context, userID uint) (*Dashboard, error) {
	ctx, span := tracing.Start(ctx, "LessonService.GetDashboard", attribute.Int64("user.id", int64(userID)))
	defer span.End()

	snap, err := s.Resolver.Snapshot(ctx, userID)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	rollups := UnitRollups(snap)
	dashboard := &Dashboard{
		Units:              make([]UnitDashboard, 0, len(rollups)),
		AllUnitsCompleted:  AllUnitsCompleted(rollups),
		CourseFinalAverage: CourseFinalAverage(rollups),
		Stats:              StatsFor(snap),
	}

	for i, u := range snap.Units {
		ud := UnitDashboard{UnitProgress: rollups[i], Lessons: make([]LessonStatus, 0, len(u.Lessons))}
		for _, l := range u.Lessons {
			decision, err := snap.Resolve(l.ID)
			if err != nil {
				return nil, err
			}
			p := snap.Progress[l.ID]
			ud.Lessons = append(ud.Lessons, LessonStatus{
				LessonID:     l.ID,
				Title:        l.Title,
				Order:        l.Order,
				Unlocked:     decision.Unlocked,
				Reason:       decision.Reason,
				Completed:    p.Completed,
				Passed:       p.Passed,
				Grade:        p.Grade,
				AttemptCount: p.AttemptCount,
			})
		}
		dashboard.Units = append(dashboard.Units, ud)
	}
	return dashboard, nil
}

// lookupError 区分记录不存在与存储故障
func lookupError(err error, what string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %d", util.ErrNotFound, what, id)
	}
	return fmt.Errorf("%w: load %s %d: %w", util.ErrPersistence, what, id, err)
}
