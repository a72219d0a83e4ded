package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	DefaultQuizDuration   = 30 // 分钟
	DefaultQuestionScore  = 1
	MinOptionsPerQuestion = 2
)
