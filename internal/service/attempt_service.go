package service

import (
	"elearn_backend/internal/model"
	"elearn_backend/internal/repository"
	"elearn_backend/internal/util"
	"errors"
	"time"

	"gorm.io/gorm"
)

type AttemptService struct {
	AttemptRepo *repository.QuizAttemptRepository
	QuizRepo    *repository.QuizRepository
	UserRepo    *repository.UserRepository
}

func NewAttemptService(attemptRepo *repository.QuizAttemptRepository, quizRepo *repository.QuizRepository, userRepo *repository.UserRepository) *AttemptService {
	return &AttemptService{AttemptRepo: attemptRepo, QuizRepo: quizRepo, UserRepo: userRepo}
}

// SanitizedQuestion 作答中的学生可见投影：刻意不定义 correctAnswer 字段，
// 正确答案只存在于内部模型和完成后的结果投影里。
type SanitizedQuestion struct {
	ID      string   `json:"id"`
	Text    string   `json:"question"`
	Options []string `json:"options"`
	Points  int      `json:"points"`
	Order   int      `json:"order"`
}

type SanitizedQuiz struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Duration    int                 `json:"duration"`
	Questions   []SanitizedQuestion `json:"questions"`
}

type AttemptSummary struct {
	ID          string    `json:"id"`
	StartedAt   time.Time `json:"startedAt"`
	TotalPoints int       `json:"totalPoints"`
}

type StartQuizResult struct {
	Attempt AttemptSummary `json:"attempt"`
	Quiz    SanitizedQuiz  `json:"quiz"`
	Resumed bool           `json:"resumed"`
}

func sanitizeQuiz(quiz *model.Quiz) SanitizedQuiz {
	questions := make([]SanitizedQuestion, 0, len(quiz.Questions))
	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		questions = append(questions, SanitizedQuestion{
			ID:      q.ID,
			Text:    q.Text,
			Options: q.Options,
			Points:  questionPoints(q),
			Order:   q.Order,
		})
	}
	return SanitizedQuiz{
		ID:          quiz.ID,
		Title:       quiz.Title,
		Description: quiz.Description,
		Duration:    quiz.Duration,
		Questions:   questions,
	}
}

func (s *AttemptService) loadCaller(userID uint) (*model.User, []uint, error) {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, util.ErrUserNotFound
		}
		return nil, nil, err
	}
	subscribed, err := s.UserRepo.SubscribedCourseIDs(userID)
	if err != nil {
		return nil, nil, err
	}
	return user, subscribed, nil
}

type CourseQuizSummary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Duration    int       `json:"duration"`
	CreatedAt   time.Time `json:"createdAt"`
	Attempted   bool      `json:"attempted"`
	Score       *int      `json:"score"`
	TotalPoints *int      `json:"totalPoints"`
}

// GetCourseQuizzes 课程下的测验列表，附带调用者已完成作答的得分
func (s *AttemptService) GetCourseQuizzes(userID, courseID uint) ([]CourseQuizSummary, error) {
	user, subscribed, err := s.loadCaller(userID)
	if err != nil {
		return nil, err
	}
	if !CanViewCourseQuizzes(user.Role, subscribed, courseID) {
		return nil, util.ErrNotSubscribed
	}

	quizzes, err := s.QuizRepo.ListByCourse(courseID)
	if err != nil {
		return nil, err
	}

	quizIDs := make([]string, 0, len(quizzes))
	for i := range quizzes {
		quizIDs = append(quizIDs, quizzes[i].ID)
	}
	attempts, err := s.AttemptRepo.FindCompletedByUserAndQuizIDs(userID, quizIDs)
	if err != nil {
		return nil, err
	}
	attemptByQuiz := make(map[string]*model.QuizAttempt, len(attempts))
	for i := range attempts {
		attemptByQuiz[attempts[i].QuizID] = &attempts[i]
	}

	summaries := make([]CourseQuizSummary, 0, len(quizzes))
	for i := range quizzes {
		quiz := &quizzes[i]
		summary := CourseQuizSummary{
			ID:          quiz.ID,
			Title:       quiz.Title,
			Description: quiz.Description,
			Duration:    quiz.Duration,
			CreatedAt:   quiz.CreatedAt,
		}
		if attempt, ok := attemptByQuiz[quiz.ID]; ok {
			summary.Attempted = true
			summary.Score = &attempt.Score
			summary.TotalPoints = &attempt.TotalPoints
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// StartQuiz 状态机入口：
//   - 已有完成记录：返回该记录并报 ErrQuizAlreadyCompleted，不允许重考
//   - 已有未完成记录：原样返回（幂等恢复），沿用开始时冻结的 TotalPoints
//   - 否则新建记录；并发下插入撞唯一索引时改为取回对方刚建的记录
func (s *AttemptService) StartQuiz(quizID string, userID uint) (*StartQuizResult, *model.QuizAttempt, error) {
	quiz, err := s.QuizRepo.FindByID(quizID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, util.ErrQuizNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	user, subscribed, err := s.loadCaller(userID)
	if err != nil {
		return nil, nil, err
	}
	if !CanStartQuiz(user.Role, subscribed, quiz) {
		return nil, nil, util.ErrNotSubscribed
	}

	if completed, err := s.AttemptRepo.FindByUserAndQuiz(userID, quizID, true); err == nil {
		return nil, completed, util.ErrQuizAlreadyCompleted
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}

	if existing, err := s.AttemptRepo.FindByUserAndQuiz(userID, quizID, false); err == nil {
		return &StartQuizResult{
			Attempt: AttemptSummary{ID: existing.ID, StartedAt: existing.StartedAt, TotalPoints: existing.TotalPoints},
			Quiz:    sanitizeQuiz(quiz),
			Resumed: true,
		}, nil, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}

	attempt := &model.QuizAttempt{
		QuizID:      quizID,
		UserID:      userID,
		TotalPoints: SumPoints(quiz.Questions),
		StartedAt:   time.Now(),
	}
	if err := s.AttemptRepo.Create(attempt); err != nil {
		// 并发 start 撞上 (quiz_id, user_id, completed) 唯一索引：
		// 取回已存在的未完成记录即可，两个请求拿到同一个 attempt
		existing, findErr := s.AttemptRepo.FindByUserAndQuiz(userID, quizID, false)
		if findErr != nil {
			return nil, nil, err
		}
		return &StartQuizResult{
			Attempt: AttemptSummary{ID: existing.ID, StartedAt: existing.StartedAt, TotalPoints: existing.TotalPoints},
			Quiz:    sanitizeQuiz(quiz),
			Resumed: true,
		}, nil, nil
	}

	return &StartQuizResult{
		Attempt: AttemptSummary{ID: attempt.ID, StartedAt: attempt.StartedAt, TotalPoints: attempt.TotalPoints},
		Quiz:    sanitizeQuiz(quiz),
	}, nil, nil
}

type AnswerReq struct {
	QuestionID     string `json:"questionId" binding:"required"`
	SelectedOption int    `json:"selectedOption"`
}

type SubmitResult struct {
	Score       int       `json:"score"`
	TotalPoints int       `json:"totalPoints"`
	Percentage  int       `json:"percentage"`
	CompletedAt time.Time `json:"completedAt"`
}

// SubmitQuiz 终态转换，只允许发生一次。
// 评分只信任库里的题目：未知 questionId 跳过，同一题重复作答只取第一条，
// 未作答的题目不计入 answers、得 0 分。允许部分提交（客户端超时照常提交）。
func (s *AttemptService) SubmitQuiz(attemptID string, userID uint, answerReqs []AnswerReq) (*SubmitResult, error) {
	attempt, err := s.AttemptRepo.FindByID(attemptID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}

	if attempt.UserID != userID {
		return nil, util.ErrPermissionDenied
	}
	if attempt.Completed {
		return nil, util.ErrAttemptAlreadySubmitted
	}

	quiz, err := s.QuizRepo.FindByID(attempt.QuizID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuizNotFound
	}
	if err != nil {
		return nil, err
	}

	questionByID := make(map[string]*model.QuizQuestion, len(quiz.Questions))
	for i := range quiz.Questions {
		questionByID[quiz.Questions[i].ID] = &quiz.Questions[i]
	}

	score := 0
	answered := make(map[string]bool, len(answerReqs))
	answers := make([]model.QuizAttemptAnswer, 0, len(answerReqs))
	for _, req := range answerReqs {
		question, ok := questionByID[req.QuestionID]
		if !ok || answered[req.QuestionID] {
			continue
		}
		answered[req.QuestionID] = true

		isCorrect := answerIsCorrect(question, req.SelectedOption)
		if isCorrect {
			score += questionPoints(question)
		}
		answers = append(answers, model.QuizAttemptAnswer{
			AttemptID:      attempt.ID,
			QuestionID:     req.QuestionID,
			SelectedOption: req.SelectedOption,
			IsCorrect:      isCorrect,
		})
	}

	now := time.Now()
	attempt.Score = score
	attempt.CompletedAt = &now

	applied, err := s.AttemptRepo.Complete(attempt, answers)
	if err != nil {
		return nil, err
	}
	if !applied {
		// 并发重复提交：原子更新未命中，说明另一次提交已先完成
		return nil, util.ErrAttemptAlreadySubmitted
	}

	return &SubmitResult{
		Score:       score,
		TotalPoints: attempt.TotalPoints,
		Percentage:  Percentage(score, attempt.TotalPoints),
		CompletedAt: now,
	}, nil
}

type AnswerDetail struct {
	Question       string   `json:"question"`
	Options        []string `json:"options"`
	SelectedOption int      `json:"selectedOption"`
	CorrectOption  int      `json:"correctOption"`
	IsCorrect      bool     `json:"isCorrect"`
	Points         int      `json:"points"`
}

type QuizResultDetail struct {
	QuizTitle       string         `json:"quizTitle"`
	Score           int            `json:"score"`
	TotalPoints     int            `json:"totalPoints"`
	Percentage      int            `json:"percentage"`
	CompletedAt     *time.Time     `json:"completedAt"`
	DetailedResults []AnswerDetail `json:"detailedResults"`
}

// GetQuizResult 完成后的揭晓投影：这是学生唯一能看到正确答案的路径，
// 且只针对本人已完成的作答。
func (s *AttemptService) GetQuizResult(attemptID string, userID uint) (*QuizResultDetail, error) {
	attempt, err := s.AttemptRepo.FindByID(attemptID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}

	if attempt.UserID != userID {
		return nil, util.ErrPermissionDenied
	}
	if !attempt.Completed {
		return nil, util.ErrAttemptNotCompleted
	}

	quiz, err := s.QuizRepo.FindByID(attempt.QuizID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuizNotFound
	}
	if err != nil {
		return nil, err
	}

	questionByID := make(map[string]*model.QuizQuestion, len(quiz.Questions))
	for i := range quiz.Questions {
		questionByID[quiz.Questions[i].ID] = &quiz.Questions[i]
	}

	details := make([]AnswerDetail, 0, len(attempt.Answers))
	for i := range attempt.Answers {
		answer := &attempt.Answers[i]
		question, ok := questionByID[answer.QuestionID]
		if !ok {
			// 题目在作答后被编辑掉了，跳过而不是报错
			continue
		}
		details = append(details, AnswerDetail{
			Question:       question.Text,
			Options:        question.Options,
			SelectedOption: answer.SelectedOption,
			CorrectOption:  question.CorrectAnswer,
			IsCorrect:      answer.IsCorrect,
			Points:         questionPoints(question),
		})
	}

	return &QuizResultDetail{
		QuizTitle:       quiz.Title,
		Score:           attempt.Score,
		TotalPoints:     attempt.TotalPoints,
		Percentage:      Percentage(attempt.Score, attempt.TotalPoints),
		CompletedAt:     attempt.CompletedAt,
		DetailedResults: details,
	}, nil
}
