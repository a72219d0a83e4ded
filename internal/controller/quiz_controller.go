package controller

import (
	"elearn_backend/internal/service"
	"elearn_backend/internal/util"
	"errors"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	Service *service.QuizService
}

func NewQuizController(svc *service.QuizService) *QuizController {
	return &QuizController{Service: svc}
}

// handleServiceError 错误分类到 HTTP 状态码的唯一出口。
// 领域错误直接回显 message；基础设施错误只记日志，响应保持 500 通用文案。
func handleServiceError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrQuizNotFound),
		errors.Is(err, util.ErrCourseNotFound),
		errors.Is(err, util.ErrAttemptNotFound),
		errors.Is(err, util.ErrUserNotFound):
		util.NotFound(ctx, err.Error())
	case errors.Is(err, util.ErrNotSubscribed),
		errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(ctx, err.Error())
	case errors.Is(err, util.ErrValidation),
		errors.Is(err, util.ErrQuizAlreadyCompleted),
		errors.Is(err, util.ErrAttemptAlreadySubmitted),
		errors.Is(err, util.ErrAttemptNotCompleted):
		util.BadRequest(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}

// @Summary 创建测验
// @Tags 测验管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.QuizReq true "测验内容"
// @Success 201 {object} util.Response
// @Router /quiz [post]
func (c *QuizController) CreateQuiz(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.QuizReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quiz, err := c.Service.CreateQuiz(user.UserID, req)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}

	util.Created(ctx, gin.H{"quiz": quiz})
}

// @Summary 获取全部测验列表（含所属课程标题）
// @Tags 测验管理
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /quizzes [get]
func (c *QuizController) ListQuizzes(ctx *gin.Context) {
	quizzes, err := c.Service.ListQuizzes()
	if err != nil {
		handleServiceError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"quizzes": quizzes})
}

// @Summary 获取测验详情（含正确答案，仅管理员）
// @Tags 测验管理
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "测验ID"
// @Success 200 {object} util.Response
// @Router /quiz/{id} [get]
func (c *QuizController) GetQuiz(ctx *gin.Context) {
	quiz, err := c.Service.GetQuiz(ctx.Param("id"))
	if err != nil {
		handleServiceError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"quiz": quiz})
}

// @Summary 更新测验（所属课程不可变更）
// @Tags 测验管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "测验ID"
// @Param body body service.QuizReq true "测验内容"
// @Success 200 {object} util.Response
// @Router /quiz/{id} [put]
func (c *QuizController) UpdateQuiz(ctx *gin.Context) {
	var req service.QuizReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quiz, err := c.Service.UpdateQuiz(ctx.Param("id"), req)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"quiz": quiz})
}

// @Summary 删除测验（级联删除全部作答记录）
// @Tags 测验管理
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "测验ID"
// @Success 200 {object} util.Response
// @Router /quiz/{id} [delete]
func (c *QuizController) DeleteQuiz(ctx *gin.Context) {
	id := ctx.Param("id")
	if err := c.Service.DeleteQuiz(id); err != nil {
		handleServiceError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"deleted": id})
}
