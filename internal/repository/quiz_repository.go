package repository

import (
	"context"
	"elearn_backend/internal/model"
	"elearn_backend/pkg/logger"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const quizCacheTTL = 10 * time.Minute

type QuizRepository struct {
	DB  *gorm.DB
	RDB *redis.Client
}

func NewQuizRepository(db *gorm.DB, rdb *redis.Client) *QuizRepository {
	return &QuizRepository{DB: db, RDB: rdb}
}

func quizCacheKey(id string) string {
	return fmt.Sprintf("quiz:detail:%s", id)
}

func (r *QuizRepository) Create(quiz *model.Quiz) error {
	return r.DB.Create(quiz).Error
}

// FindByID 返回测验及其按 order 排序的题目。优先读 Redis，未命中再查库。
// 缓存的是含正确答案的完整内容，仅供服务端使用，对学生的脱敏在 service 层完成。
func (r *QuizRepository) FindByID(id string) (*model.Quiz, error) {
	if r.RDB != nil {
		if cached, err := r.RDB.Get(context.Background(), quizCacheKey(id)).Result(); err == nil {
			var quiz model.Quiz
			if err := json.Unmarshal([]byte(cached), &quiz); err == nil {
				return &quiz, nil
			}
		}
	}

	var quiz model.Quiz
	err := r.DB.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("quiz_questions.`order` ASC, quiz_questions.created_at ASC")
	}).First(&quiz, "id = ?", id).Error
	if err != nil {
		return nil, err
	}

	r.cacheQuiz(&quiz)
	return &quiz, nil
}

func (r *QuizRepository) cacheQuiz(quiz *model.Quiz) {
	if r.RDB == nil {
		return
	}
	data, err := json.Marshal(quiz)
	if err != nil {
		return
	}
	if err := r.RDB.Set(context.Background(), quizCacheKey(quiz.ID), data, quizCacheTTL).Err(); err != nil {
		logger.Log.Warn("Failed to cache quiz", zap.String("quizId", quiz.ID), zap.Error(err))
	}
}

func (r *QuizRepository) invalidate(id string) {
	if r.RDB == nil {
		return
	}
	if err := r.RDB.Del(context.Background(), quizCacheKey(id)).Err(); err != nil {
		logger.Log.Warn("Failed to invalidate quiz cache", zap.String("quizId", id), zap.Error(err))
	}
}

type QuizListRow struct {
	model.Quiz
	CourseTitle string `json:"courseTitle"`
}

func (r *QuizRepository) ListAll() ([]QuizListRow, error) {
	var rows []QuizListRow
	err := r.DB.Model(&model.Quiz{}).
		Select("quizzes.*, courses.title AS course_title").
		Joins("LEFT JOIN courses ON courses.id = quizzes.course_id").
		Order("quizzes.created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *QuizRepository) ListByCourse(courseID uint) ([]model.Quiz, error) {
	var quizzes []model.Quiz
	err := r.DB.Where("course_id = ?", courseID).
		Order("created_at ASC").
		Find(&quizzes).Error
	return quizzes, err
}

// Update 保存测验字段；questions 不为 nil 时整体替换题目集合
func (r *QuizRepository) Update(quiz *model.Quiz, questions []model.QuizQuestion) error {
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Questions").Save(quiz).Error; err != nil {
			return err
		}
		if questions != nil {
			if err := tx.Unscoped().Where("quiz_id = ?", quiz.ID).Delete(&model.QuizQuestion{}).Error; err != nil {
				return err
			}
			for i := range questions {
				questions[i].QuizID = quiz.ID
			}
			if len(questions) > 0 {
				if err := tx.Create(&questions).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.invalidate(quiz.ID)
	return nil
}

// Delete 级联删除：先作答记录（含每题答案），再题目，最后测验本身，单事务执行。
// 作答记录物理删除，避免软删除残留命中 (quiz_id, user_id, completed) 唯一索引。
func (r *QuizRepository) Delete(id string) error {
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		var attemptIDs []string
		if err := tx.Model(&model.QuizAttempt{}).Where("quiz_id = ?", id).Pluck("id", &attemptIDs).Error; err != nil {
			return err
		}
		if len(attemptIDs) > 0 {
			if err := tx.Unscoped().Where("attempt_id IN ?", attemptIDs).Delete(&model.QuizAttemptAnswer{}).Error; err != nil {
				return err
			}
			if err := tx.Unscoped().Where("quiz_id = ?", id).Delete(&model.QuizAttempt{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("quiz_id = ?", id).Delete(&model.QuizQuestion{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Quiz{}, "id = ?", id).Error
	})
	if err != nil {
		return err
	}
	r.invalidate(id)
	return nil
}
