package util

import "errors"

var (
	ErrUserNotFound            = errors.New("用户不存在")
	ErrCourseNotFound          = errors.New("course not found")
	ErrQuizNotFound            = errors.New("quiz not found")
	ErrAttemptNotFound         = errors.New("attempt not found")
	ErrNotSubscribed           = errors.New("you are not subscribed to this course")
	ErrPermissionDenied        = errors.New("permission denied")
	ErrQuizAlreadyCompleted    = errors.New("you have already completed this quiz")
	ErrAttemptAlreadySubmitted = errors.New("this attempt is already completed")
	ErrAttemptNotCompleted     = errors.New("this attempt is not completed yet")
	ErrValidation              = errors.New("validation failed")
)
