package service

import (
	"elearn_backend/internal/model"
	"elearn_backend/internal/repository"
	"elearn_backend/pkg/database"
	"fmt"
	"sync/atomic"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	testDBSeq int64
	userSeq   int64
)

// newTestDB 每个测试用独立命名的共享缓存内存库，
// 避免连接池里的连接各自拿到一个空的 :memory: 实例
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:svc%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func newQuizService(db *gorm.DB) *QuizService {
	return NewQuizService(
		repository.NewQuizRepository(db, nil),
		repository.NewCourseRepository(db),
	)
}

func newAttemptService(db *gorm.DB) *AttemptService {
	return NewAttemptService(
		repository.NewQuizAttemptRepository(db),
		repository.NewQuizRepository(db, nil),
		repository.NewUserRepository(db),
	)
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

	course := &model.Course{Title: "Go 进阶", Category: "programming"}
	if err := db.Create(course).Error; err != nil {
		t.Fatalf("failed to seed course: %v", err)
	}
	return course
}

func subscribe(t *testing.T, db *gorm.DB, userID, courseID uint) {
	t.Helper()

	if err := db.Create(&model.Subscription{UserID: userID, CourseID: courseID}).Error; err != nil {
		t.Fatalf("failed to seed subscription: %v", err)
	}
}

// seedQuiz 两道题，分值 1 和 2，满分 3
func seedQuiz(t *testing.T, db *gorm.DB, courseID uint) *model.Quiz {
	t.Helper()

	quiz := &model.Quiz{
		Title:    "Go 基础测验",
		CourseID: courseID,
		Duration: 30,
		Questions: []model.QuizQuestion{
			{Text: "Which keyword declares a variable?", Options: []string{"let", "var", "def"}, CorrectAnswer: 1, Points: 1, Order: 1},
			{Text: "Which builtin grows a slice?", Options: []string{"append", "push"}, CorrectAnswer: 0, Points: 2, Order: 2},
		},
	}
	if err := db.Create(quiz).Error; err != nil {
		t.Fatalf("failed to seed quiz: %v", err)
	}
	return quiz
}
