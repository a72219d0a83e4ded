package service

import (
	"elearn_backend/internal/model"
	"elearn_backend/internal/repository"
	"elearn_backend/internal/util"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

type QuizService struct {
	QuizRepo   *repository.QuizRepository
	CourseRepo *repository.CourseRepository
}

func NewQuizService(quizRepo *repository.QuizRepository, courseRepo *repository.CourseRepository) *QuizService {
	return &QuizService{QuizRepo: quizRepo, CourseRepo: courseRepo}
}

type QuizQuestionReq struct {
	Text          string   `json:"question" binding:"required"`
	Options       []string `json:"options" binding:"required"`
	CorrectAnswer *int     `json:"correctAnswer" binding:"required"`
	Points        int      `json:"points"`
	Order         int      `json:"order"`
}

type QuizReq struct {
	Title       *string            `json:"title"`
	Description *string            `json:"description"`
	CourseID    uint               `json:"courseId"` // 仅创建时有效，之后不可变
	Duration    *int               `json:"duration"`
	Questions   *[]QuizQuestionReq `json:"questions"`
}

// validateQuestions 题目校验：至少 2 个选项，正确答案下标必须落在选项范围内，
// 越界的正确答案会让题目永远答不对，写入时直接拒绝。
func validateQuestions(reqs []QuizQuestionReq) ([]model.QuizQuestion, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("%w: quiz must have at least one question", util.ErrValidation)
	}

	questions := make([]model.QuizQuestion, 0, len(reqs))
	for i, q := range reqs {
		if strings.TrimSpace(q.Text) == "" {
			return nil, fmt.Errorf("%w: question %d has empty text", util.ErrValidation, i+1)
		}
		if len(q.Options) < util.MinOptionsPerQuestion {
			return nil, fmt.Errorf("%w: question %d must have at least %d options", util.ErrValidation, i+1, util.MinOptionsPerQuestion)
		}
		if q.CorrectAnswer == nil || *q.CorrectAnswer < 0 || *q.CorrectAnswer >= len(q.Options) {
			return nil, fmt.Errorf("%w: question %d correctAnswer out of option range", util.ErrValidation, i+1)
		}
		points := q.Points
		if points <= 0 {
			points = util.DefaultQuestionScore
		}
		order := q.Order
		if order == 0 {
			order = i + 1
		}
		questions = append(questions, model.QuizQuestion{
			Text:          q.Text,
			Options:       q.Options,
			CorrectAnswer: *q.CorrectAnswer,
			Points:        points,
			Order:         order,
		})
	}
	return questions, nil
}

func (s *QuizService) CreateQuiz(creatorID uint, req QuizReq) (*model.Quiz, error) {
	if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", util.ErrValidation)
	}

	exists, err := s.CourseRepo.Exists(req.CourseID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, util.ErrCourseNotFound
	}

	if req.Questions == nil {
		return nil, fmt.Errorf("%w: quiz must have at least one question", util.ErrValidation)
	}
	questions, err := validateQuestions(*req.Questions)
	if err != nil {
		return nil, err
	}

	quiz := &model.Quiz{
		Title:     *req.Title,
		CourseID:  req.CourseID,
		Duration:  util.DefaultQuizDuration,
		CreatorID: creatorID,
		Questions: questions,
	}
	if req.Description != nil {
		quiz.Description = *req.Description
	}
	if req.Duration != nil && *req.Duration > 0 {
		quiz.Duration = *req.Duration
	}

	if err := s.QuizRepo.Create(quiz); err != nil {
		return nil, err
	}
	return quiz, nil
}

func (s *QuizService) ListQuizzes() ([]repository.QuizListRow, error) {
	return s.QuizRepo.ListAll()
}

func (s *QuizService) GetQuiz(id string) (*model.Quiz, error) {
	quiz, err := s.QuizRepo.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuizNotFound
	}
	if err != nil {
		return nil, err
	}
	return quiz, nil
}

// UpdateQuiz 只更新出现的字段，course 引用自创建后不可变更
func (s *QuizService) UpdateQuiz(id string, req QuizReq) (*model.Quiz, error) {
	quiz, err := s.GetQuiz(id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", util.ErrValidation)
		}
		quiz.Title = *req.Title
	}
	if req.Description != nil {
		quiz.Description = *req.Description
	}
	if req.Duration != nil {
		if *req.Duration <= 0 {
			return nil, fmt.Errorf("%w: duration must be positive", util.ErrValidation)
		}
		quiz.Duration = *req.Duration
	}

	var questions []model.QuizQuestion
	if req.Questions != nil {
		questions, err = validateQuestions(*req.Questions)
		if err != nil {
			return nil, err
		}
	}

	if err := s.QuizRepo.Update(quiz, questions); err != nil {
		return nil, err
	}
	return s.QuizRepo.FindByID(id)
}

func (s *QuizService) DeleteQuiz(id string) error {
	if _, err := s.GetQuiz(id); err != nil {
		return err
	}
	return s.QuizRepo.Delete(id)
}
