package controller

import (
	"elearn_backend/internal/service"
	"elearn_backend/internal/util"
	"errors"
	"net/http"

	"elearn_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

type AttemptController struct {
	Service *service.AttemptService
}

func NewAttemptController(svc *service.AttemptService) *AttemptController {
	return &AttemptController{Service: svc}
}

// @Summary 课程下的测验列表（附带本人完成情况）
// @Tags 测验作答
// @Produce json
// @Security ApiKeyAuth
// @Param courseId path int true "课程ID"
// @Success 200 {object} util.Response
// @Router /course/{courseId}/quizzes [get]
func (c *AttemptController) GetCourseQuizzes(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	courseID := util.MustParseUint(ctx.Param("courseId"))
	quizzes, err := c.Service.GetCourseQuizzes(user.UserID, courseID)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"quizzes": quizzes})
}

// @Summary 开始/恢复作答，返回脱敏后的题目（不含正确答案）
// @Tags 测验作答
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "测验ID"
// @Success 201 {object} util.Response
// @Router /quiz/{id}/start [post]
func (c *AttemptController) StartQuiz(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	result, completed, err := c.Service.StartQuiz(ctx.Param("id"), user.UserID)
	if err != nil {
		if errors.Is(err, util.ErrQuizAlreadyCompleted) {
			// 不允许重考；把已完成的作答一并返回用于展示。
			// 注意这里不能携带测验内容，即使是脱敏版本。
			util.ErrorWithData(ctx, http.StatusBadRequest, err.Error(), gin.H{"attempt": completed})
			return
		}
		handleServiceError(ctx, err)
		return
	}

	if result.Resumed {
		util.Success(ctx, result)
		return
	}

	monitoring.AttemptStartCounter.Inc()
	util.Created(ctx, result)
}

type submitQuizReq struct {
	Answers []service.AnswerReq `json:"answers" binding:"required"`
}

// @Summary 提交答案并评分（终态，不可重复提交）
// @Tags 测验作答
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param attemptId path string true "作答ID"
// @Param body body submitQuizReq true "答案列表"
// @Success 200 {object} util.Response
// @Router /quiz/attempt/{attemptId}/submit [post]
func (c *AttemptController) SubmitQuiz(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req submitQuizReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.Service.SubmitQuiz(ctx.Param("attemptId"), user.UserID, req.Answers)
	if err != nil {
		monitoring.AttemptSubmitCounter.WithLabelValues("rejected").Inc()
		handleServiceError(ctx, err)
		return
	}

	monitoring.AttemptSubmitCounter.WithLabelValues("completed").Inc()
	util.Success(ctx, gin.H{"result": result})
}

// @Summary 查看已完成作答的详细结果（揭晓正确答案）
// @Tags 测验作答
// @Produce json
// @Security ApiKeyAuth
// @Param attemptId path string true "作答ID"
// @Success 200 {object} util.Response
// @Router /quiz/attempt/{attemptId}/result [get]
func (c *AttemptController) GetQuizResult(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	result, err := c.Service.GetQuizResult(ctx.Param("attemptId"), user.UserID)
	if err != nil {
		handleServiceError(ctx, err)
		return
	}

	util.Success(ctx, result)
}
