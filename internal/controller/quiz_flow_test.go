package controller

import (
	"bytes"
	"elearn_backend/internal/config"
	"elearn_backend/internal/middleware"
	"elearn_backend/internal/model"
	"elearn_backend/internal/repository"
	"elearn_backend/internal/service"
	"elearn_backend/internal/util"
	"elearn_backend/pkg/database"
	"elearn_backend/pkg/logger"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const testJWTSecret = "0123456789abcdef0123456789abcdef"

var (
	testDBSeq int64
	userSeq   int64
)

// newTestRouter 用内存库搭完整的路由栈，路由注册与生产一致
func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	if logger.Log == nil {
		logger.Log = zap.NewNop()
	}

	dsn := fmt.Sprintf("file:ctl%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	cfg := &config.Config{}
	cfg.JWT.Secret = testJWTSecret

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	quizRepo := repository.NewQuizRepository(db, nil)
	attemptRepo := repository.NewQuizAttemptRepository(db)

	quizCtrl := NewQuizController(service.NewQuizService(quizRepo, courseRepo))
	attemptCtrl := NewAttemptController(service.NewAttemptService(attemptRepo, quizRepo, userRepo))

	router := gin.New()
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		admin := authGroup.Group("/")
		admin.Use(middleware.RoleMiddleware(model.Admin))
		{
			admin.POST("/quiz", quizCtrl.CreateQuiz)
			admin.GET("/quizzes", quizCtrl.ListQuizzes)
			admin.GET("/quiz/:id", quizCtrl.GetQuiz)
			admin.PUT("/quiz/:id", quizCtrl.UpdateQuiz)
			admin.DELETE("/quiz/:id", quizCtrl.DeleteQuiz)
		}

		authGroup.GET("/course/:courseId/quizzes", attemptCtrl.GetCourseQuizzes)
		authGroup.POST("/quiz/:id/start", attemptCtrl.StartQuiz)
		authGroup.POST("/quiz/attempt/:attemptId/submit", attemptCtrl.SubmitQuiz)
		authGroup.GET("/quiz/attempt/:attemptId/result", attemptCtrl.GetQuizResult)
	}

	return router, db
}

func seedUser(t *testing.T, db *gorm.DB, role model.UserRole) *model.User {
	t.Helper()

	n := atomic.AddInt64(&userSeq, 1)
	user := &model.User{
		Name:     fmt.Sprintf("user%d", n),
		Email:    fmt.Sprintf("user%d@example.com", n),
		Password: "hashed-password",
		Role:     role,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

func seedCourse(t *testing.T, db *gorm.DB) *model.Course {
	t.Helper()

	course := &model.Course{Title: "Web 开发实战", Category: "programming"}
	if err := db.Create(course).Error; err != nil {
		t.Fatalf("failed to seed course: %v", err)
	}
	return course
}

func authToken(t *testing.T, user *model.User) string {
	t.Helper()

	token, err := util.GenerateJWT(user, testJWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var resp struct {
		Code    int                    `json:"code"`
		Message string                 `json:"message"`
		Data    map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return resp.Data
}

func quizPayload(courseID uint) gin.H {
	return gin.H{
		"title":    "HTTP 基础测验",
		"courseId": courseID,
		"duration": 15,
		"questions": []gin.H{
			{"question": "Which verb is idempotent?", "options": []string{"POST", "PUT"}, "correctAnswer": 1, "points": 1},
			{"question": "Which status means created?", "options": []string{"200", "201", "204"}, "correctAnswer": 1, "points": 2},
		},
	}
}

func TestQuizAttemptFlow(t *testing.T) {
	router, db := newTestRouter(t)
	course := seedCourse(t, db)
	admin := seedUser(t, db, model.Admin)
	student := seedUser(t, db, model.Student)
	adminToken := authToken(t, admin)
	studentToken := authToken(t, student)

	// 管理员建测验
	w := doJSON(t, router, http.MethodPost, "/api/quiz", adminToken, quizPayload(course.ID))
	if w.Code != http.StatusCreated {
		t.Fatalf("create quiz status = %d, body %s", w.Code, w.Body.String())
	}
	created := decodeData(t, w)["quiz"].(map[string]interface{})
	quizID := created["id"].(string)
	questions := created["questions"].([]interface{})
	if len(questions) != 2 {
		t.Fatalf("created questions = %d, want 2", len(questions))
	}
	q1 := questions[0].(map[string]interface{})["id"].(string)
	q2 := questions[1].(map[string]interface{})["id"].(string)

	// 未订阅的学生被拒之门外
	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/course/%d/quizzes", course.ID), studentToken, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("unsubscribed list status = %d, want 403", w.Code)
	}
	w = doJSON(t, router, http.MethodPost, "/api/quiz/"+quizID+"/start", studentToken, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("unsubscribed start status = %d, want 403", w.Code)
	}

	if err := db.Create(&model.Subscription{UserID: student.ID, CourseID: course.ID}).Error; err != nil {
		t.Fatalf("failed to subscribe student: %v", err)
	}

	// 订阅后能看列表，尚未作答
	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/course/%d/quizzes", course.ID), studentToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d, body %s", w.Code, w.Body.String())
	}
	listed := decodeData(t, w)["quizzes"].([]interface{})
	if len(listed) != 1 {
		t.Fatalf("listed quizzes = %d, want 1", len(listed))
	}
	if attempted := listed[0].(map[string]interface{})["attempted"].(bool); attempted {
		t.Error("quiz should not be marked attempted before any attempt")
	}

	// 开始作答：题目必须是脱敏投影
	w = doJSON(t, router, http.MethodPost, "/api/quiz/"+quizID+"/start", studentToken, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("start status = %d, body %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "correctAnswer") {
		t.Fatal("start response leaks correct answers")
	}
	startData := decodeData(t, w)
	attemptID := startData["attempt"].(map[string]interface{})["id"].(string)
	if total := startData["attempt"].(map[string]interface{})["totalPoints"].(float64); total != 3 {
		t.Errorf("totalPoints = %v, want 3", total)
	}

	// 重复开始是恢复，不是新记录
	w = doJSON(t, router, http.MethodPost, "/api/quiz/"+quizID+"/start", studentToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("resume status = %d, want 200", w.Code)
	}
	resumeData := decodeData(t, w)
	if resumed := resumeData["resumed"].(bool); !resumed {
		t.Error("second start should report resumed")
	}
	if id := resumeData["attempt"].(map[string]interface{})["id"].(string); id != attemptID {
		t.Errorf("resume attempt id = %s, want %s", id, attemptID)
	}

	// 提交：第 1 题对（1 分），第 2 题错
	w = doJSON(t, router, http.MethodPost, "/api/quiz/attempt/"+attemptID+"/submit", studentToken, gin.H{
		"answers": []gin.H{
			{"questionId": q1, "selectedOption": 1},
			{"questionId": q2, "selectedOption": 0},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("submit status = %d, body %s", w.Code, w.Body.String())
	}
	submitResult := decodeData(t, w)["result"].(map[string]interface{})
	if score := submitResult["score"].(float64); score != 1 {
		t.Errorf("score = %v, want 1", score)
	}
	if pct := submitResult["percentage"].(float64); pct != 33 {
		t.Errorf("percentage = %v, want 33", pct)
	}

	// 结果页揭晓正确答案
	w = doJSON(t, router, http.MethodGet, "/api/quiz/attempt/"+attemptID+"/result", studentToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("result status = %d, body %s", w.Code, w.Body.String())
	}
	resultData := decodeData(t, w)
	if title := resultData["quizTitle"].(string); title != "HTTP 基础测验" {
		t.Errorf("quizTitle = %q", title)
	}
	details := resultData["detailedResults"].([]interface{})
	if len(details) != 2 {
		t.Fatalf("detailedResults = %d, want 2", len(details))
	}
	if _, ok := details[0].(map[string]interface{})["correctOption"]; !ok {
		t.Error("result detail missing correctOption")
	}

	// 完成后不允许重考，响应携带已完成的作答
	w = doJSON(t, router, http.MethodPost, "/api/quiz/"+quizID+"/start", studentToken, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("restart status = %d, want 400", w.Code)
	}
	restartData := decodeData(t, w)
	if _, ok := restartData["attempt"]; !ok {
		t.Error("restart response missing the completed attempt")
	}
	if strings.Contains(w.Body.String(), "correctAnswer") {
		t.Error("restart response leaks quiz content")
	}

	// 列表现在带上成绩
	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/course/%d/quizzes", course.ID), studentToken, nil)
	listed = decodeData(t, w)["quizzes"].([]interface{})
	row := listed[0].(map[string]interface{})
	if !row["attempted"].(bool) {
		t.Error("quiz should be marked attempted after completion")
	}
	if score := row["score"].(float64); score != 1 {
		t.Errorf("listed score = %v, want 1", score)
	}
}

func TestAuthAndRoleGates(t *testing.T) {
	router, db := newTestRouter(t)
	course := seedCourse(t, db)
	student := seedUser(t, db, model.Student)
	studentToken := authToken(t, student)

	// 无令牌一律 401
	w := doJSON(t, router, http.MethodGet, "/api/quizzes", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/course/%d/quizzes", course.ID), "garbage-token", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad token status = %d, want 401", w.Code)
	}

	// 学生碰管理端点一律 403
	adminCalls := []struct {
		method string
		path   string
		body   interface{}
	}{
		{http.MethodPost, "/api/quiz", quizPayload(course.ID)},
		{http.MethodGet, "/api/quizzes", nil},
		{http.MethodGet, "/api/quiz/some-id", nil},
		{http.MethodPut, "/api/quiz/some-id", gin.H{"title": "new"}},
		{http.MethodDelete, "/api/quiz/some-id", nil},
	}
	for _, call := range adminCalls {
		w := doJSON(t, router, call.method, call.path, studentToken, call.body)
		if w.Code != http.StatusForbidden {
			t.Errorf("%s %s status = %d, want 403", call.method, call.path, w.Code)
		}
	}
}

func TestQuizCRUDEndpoints(t *testing.T) {
	router, db := newTestRouter(t)
	course := seedCourse(t, db)
	admin := seedUser(t, db, model.Admin)
	adminToken := authToken(t, admin)

	// 课程不存在时创建被拒
	w := doJSON(t, router, http.MethodPost, "/api/quiz", adminToken, quizPayload(999))
	if w.Code != http.StatusNotFound {
		t.Fatalf("create with bad course status = %d, want 404", w.Code)
	}

	w = doJSON(t, router, http.MethodPost, "/api/quiz", adminToken, quizPayload(course.ID))
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body.String())
	}
	quizID := decodeData(t, w)["quiz"].(map[string]interface{})["id"].(string)

	// 列表带课程标题
	w = doJSON(t, router, http.MethodGet, "/api/quizzes", adminToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	rows := decodeData(t, w)["quizzes"].([]interface{})
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if title := rows[0].(map[string]interface{})["courseTitle"].(string); title != course.Title {
		t.Errorf("courseTitle = %q, want %q", title, course.Title)
	}

	// 管理端详情包含正确答案
	w = doJSON(t, router, http.MethodGet, "/api/quiz/"+quizID, adminToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "correctAnswer") {
		t.Error("admin detail should include correct answers")
	}

	// 部分更新
	w = doJSON(t, router, http.MethodPut, "/api/quiz/"+quizID, adminToken, gin.H{"title": "改名"})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", w.Code, w.Body.String())
	}
	if title := decodeData(t, w)["quiz"].(map[string]interface{})["title"].(string); title != "改名" {
		t.Errorf("updated title = %q", title)
	}

	// 校验失败返回 400
	w = doJSON(t, router, http.MethodPut, "/api/quiz/"+quizID, adminToken, gin.H{"duration": -1})
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid duration status = %d, want 400", w.Code)
	}

	w = doJSON(t, router, http.MethodDelete, "/api/quiz/"+quizID, adminToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/api/quiz/"+quizID, adminToken, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", w.Code)
	}

	var count int64
	if err := db.Model(&model.Quiz{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("quizzes remaining = %d, want 0", count)
	}
}
