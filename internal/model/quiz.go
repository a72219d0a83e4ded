package model

// swagger:model Quiz
type Quiz struct {
	UUIDBase
	Title       string         `gorm:"size:255;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	CourseID    uint           `gorm:"index;type:bigint unsigned" json:"courseId"` // 创建后不可变更
	Duration    int            `gorm:"default:30" json:"duration"`                 // 限时（分钟）
	CreatorID   uint           `gorm:"index;type:bigint unsigned" json:"creatorId"`
	Questions   []QuizQuestion `gorm:"foreignKey:QuizID" json:"questions,omitempty"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// swagger:model QuizQuestion
type QuizQuestion struct {
	UUIDBase
	QuizID        string   `gorm:"index;type:varchar(36)" json:"quizId"`
	Text          string   `gorm:"type:text;not null" json:"question"`
	Options       []string `gorm:"serializer:json;type:json" json:"options"`
	CorrectAnswer int      `gorm:"not null" json:"correctAnswer"` // 正确选项下标（0 起）
	Points        int      `gorm:"default:1" json:"points"`
	Order         int      `gorm:"default:0" json:"order"`
}

func (QuizQuestion) TableName() string {
	return "quiz_questions"
}
