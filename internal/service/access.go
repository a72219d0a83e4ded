package service

import "elearn_backend/internal/model"

// 授权判定为纯函数：角色加订阅集合决定能否访问课程下的测验。
// 调用方必须把否定结果映射为 403，而不是把内容静默过滤掉。

func CanViewCourseQuizzes(role model.UserRole, subscribed []uint, courseID uint) bool {
	if role == model.Admin {
		return true
	}
	for _, id := range subscribed {
		if id == courseID {
			return true
		}
	}
	return false
}

func CanStartQuiz(role model.UserRole, subscribed []uint, quiz *model.Quiz) bool {
	return CanViewCourseQuizzes(role, subscribed, quiz.CourseID)
}
