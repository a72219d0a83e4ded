package repository

import (
	"elearn_backend/internal/model"

	"gorm.io/gorm"
)

type QuizAttemptRepository struct {
	DB *gorm.DB
}

func NewQuizAttemptRepository(db *gorm.DB) *QuizAttemptRepository {
	return &QuizAttemptRepository{DB: db}
}

func (r *QuizAttemptRepository) Create(attempt *model.QuizAttempt) error {
	return r.DB.Create(attempt).Error
}

func (r *QuizAttemptRepository) FindByID(id string) (*model.QuizAttempt, error) {
	var attempt model.QuizAttempt
	err := r.DB.Preload("Answers").First(&attempt, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *QuizAttemptRepository) FindByUserAndQuiz(userID uint, quizID string, completed bool) (*model.QuizAttempt, error) {
	var attempt model.QuizAttempt
	err := r.DB.Preload("Answers").
		Where("user_id = ? AND quiz_id = ? AND completed = ?", userID, quizID, completed).
		First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// FindCompletedByUserAndQuizIDs 课程测验列表页用，一次取回用户已完成的作答
func (r *QuizAttemptRepository) FindCompletedByUserAndQuizIDs(userID uint, quizIDs []string) ([]model.QuizAttempt, error) {
	if len(quizIDs) == 0 {
		return nil, nil
	}
	var attempts []model.QuizAttempt
	err := r.DB.Where("user_id = ? AND quiz_id IN ? AND completed = ?", userID, quizIDs, true).
		Find(&attempts).Error
	return attempts, err
}

// Complete 终态写入：answers、score、completed、completed_at 在一个事务内落库。
// completed = false 作为 UPDATE 条件的一部分，RowsAffected 为 0 说明
// 已有并发提交抢先完成，由调用方映射为重复提交错误。
func (r *QuizAttemptRepository) Complete(attempt *model.QuizAttempt, answers []model.QuizAttemptAnswer) (bool, error) {
	applied := false
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.QuizAttempt{}).
			Where("id = ? AND completed = ?", attempt.ID, false).
			Updates(map[string]interface{}{
				"score":        attempt.Score,
				"completed":    true,
				"completed_at": attempt.CompletedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		applied = true
		if len(answers) > 0 {
			if err := tx.Create(&answers).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return applied, err
}
