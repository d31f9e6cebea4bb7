package controller

import (
	"lesson_gate/internal/service"
	"lesson_gate/internal/util"

	"github.com/gin-gonic/gin"
)

type LessonController struct {
	LessonService *service.LessonService
}

func NewLessonController(lessonService *service.LessonService) *LessonController {
	return &LessonController{LessonService: lessonService}
}

func lessonID(ctx *gin.Context) (uint, bool) {
	id := util.MustParseUint(ctx.Param("id"))
	if id == 0 {
		util.BadRequest(ctx, "invalid lesson id")
		return 0, false
	}
	return id, true
}

// @Summary 获取课时内容
// @Description 课时未解锁时返回 403；选择题选项每次请求重新打乱
// @Tags 课时
// @Produce json
// @Security BearerAuth
// @Param id path int true "课时ID"
// @Success 200 {object} util.Response{data=service.LessonView}
// @Router /api/lessons/{id} [get]
func (c *LessonController) GetLesson(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	id, ok := lessonID(ctx)
	if !ok {
		return
	}

	view, err := c.LessonService.GetLesson(ctx.Request.Context(), user.UserID, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary 查询课时解锁状态
// @Tags 课时
// @Produce json
// @Security BearerAuth
// @Param id path int true "课时ID"
// @Success 200 {object} util.Response{data=service.UnlockDecision}
// @Router /api/lessons/{id}/unlock [get]
func (c *LessonController) GetUnlockStatus(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	id, ok := lessonID(ctx)
	if !ok {
		return
	}

	decision, err := c.LessonService.IsLessonUnlocked(ctx.Request.Context(), user.UserID, id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, decision)
}

// @Summary 完成课时
// @Description 按客户端统计的答对题数计算成绩，只保留最佳成绩
// @Tags 课时
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "课时ID"
// @Param Idempotency-Key header string false "去重键"
// @Param body body object true "{correctCount, totalExercises}"
// @Success 200 {object} util.Response{data=service.CompletionResult}
// @Router /api/lessons/{id}/complete [post]
func (c *LessonController) CompleteLesson(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	id, ok := lessonID(ctx)
	if !ok {
		return
	}

	var body struct {
		CorrectCount   *int `json:"correctCount" binding:"required"`
		TotalExercises *int `json:"totalExercises" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&body); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.LessonService.CompleteLesson(ctx.Request.Context(), user.UserID, service.CompleteLessonRequest{
		LessonID:       id,
		CorrectCount:   *body.CorrectCount,
		TotalExercises: *body.TotalExercises,
	})
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary 提交整课作答
// @Description 服务端逐题判分后完成课时
// @Tags 课时
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "课时ID"
// @Param Idempotency-Key header string false "去重键"
// @Param body body object true "{answers: [{exerciseId, answer, shuffledCorrectLabel}]}"
// @Success 200 {object} util.Response{data=service.SubmissionResult}
// @Router /api/lessons/{id}/submit [post]
func (c *LessonController) SubmitLesson(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	id, ok := lessonID(ctx)
	if !ok {
		return
	}

	var body struct {
		Answers []service.SubmittedAnswer `json:"answers"`
	}
	if err := ctx.ShouldBindJSON(&body); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.LessonService.SubmitLesson(ctx.Request.Context(), user.UserID, id, body.Answers)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary 检查单题答案
// @Tags 练习
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "题目ID"
// @Param body body object true "{answer, shuffledCorrectLabel}"
// @Success 200 {object} util.Response{data=service.AnswerFeedback}
// @Router /api/exercises/{id}/check [post]
func (c *LessonController) CheckAnswer(ctx *gin.Context) {
	var req service.CheckAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	req.ExerciseID = util.MustParseUint(ctx.Param("id"))

	feedback, err := c.LessonService.CheckAnswer(ctx.Request.Context(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, feedback)
}

// @Summary 学习面板
// @Description 每个单元、课时的解锁状态与成绩
// @Tags 进度
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.Dashboard}
// @Router /api/dashboard [get]
func (c *LessonController) GetDashboard(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	dashboard, err := c.LessonService.GetDashboard(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, dashboard)
}
