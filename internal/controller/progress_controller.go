package controller

import (
	"lesson_gate/internal/service"
	"lesson_gate/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ReportService *service.ReportService
}

func NewProgressController(reportService *service.ReportService) *ProgressController {
	return &ProgressController{ReportService: reportService}
}

// @Summary 成绩单
// @Tags 进度
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.GradesReport}
// @Router /api/grades [get]
func (c *ProgressController) GetGrades(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	report, err := c.ReportService.GetGrades(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, report)
}

// @Summary 结业证书状态
// @Tags 进度
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.Certificate}
// @Router /api/certificate [get]
func (c *ProgressController) GetCertificate(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	cert, err := c.ReportService.GetCertificate(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, cert)
}

// @Summary 学习统计
// @Tags 进度
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.LearnerStats}
// @Router /api/stats [get]
func (c *ProgressController) GetStats(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	stats, err := c.ReportService.GetStats(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}

// @Summary 全部学习者进度（管理员）
// @Tags 管理
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]service.LearnerOverview}
// @Router /api/admin/progress [get]
func (c *ProgressController) ListLearnerProgress(ctx *gin.Context) {
	overviews, err := c.ReportService.ListLearnerOverviews(ctx.Request.Context())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, overviews)
}
