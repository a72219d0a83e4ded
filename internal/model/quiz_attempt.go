package model

import "time"

// QuizAttempt 一个用户对一份测验的单次作答记录。
// (quiz_id, user_id, completed) 上的唯一索引保证同一用户最多存在
// 一条未完成记录和一条已完成记录，并发 start 不会产生重复。
// swagger:model QuizAttempt
type QuizAttempt struct {
	UUIDBase
	QuizID      string              `gorm:"uniqueIndex:uniq_quiz_user_state;type:varchar(36)" json:"quizId"`
	UserID      uint                `gorm:"uniqueIndex:uniq_quiz_user_state;index;type:bigint unsigned" json:"userId"`
	Score       int                 `gorm:"default:0" json:"score"`
	TotalPoints int                 `gorm:"not null" json:"totalPoints"` // 开始作答时冻结，测验后续编辑不影响
	Completed   bool                `gorm:"uniqueIndex:uniq_quiz_user_state;default:false" json:"completed"`
	StartedAt   time.Time           `json:"startedAt"`
	CompletedAt *time.Time          `json:"completedAt,omitempty"`
	Answers     []QuizAttemptAnswer `gorm:"foreignKey:AttemptID" json:"answers,omitempty"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

// QuizAttemptAnswer 提交时逐题落库，IsCorrect 评分时写入后不再重算
type QuizAttemptAnswer struct {
	UUIDBase
	AttemptID      string `gorm:"index;type:varchar(36)" json:"attemptId"`
	QuestionID     string `gorm:"type:varchar(36)" json:"questionId"`
	SelectedOption int    `json:"selectedOption"`
	IsCorrect      bool   `json:"isCorrect"`
}

func (QuizAttemptAnswer) TableName() string {
	return "quiz_attempt_answers"
}
