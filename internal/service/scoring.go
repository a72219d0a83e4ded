package service

import (
	"elearn_backend/internal/model"
	"math"
)

// 评分规则：单选精确匹配，无部分得分、无倒扣。

func answerIsCorrect(q *model.QuizQuestion, selectedOption int) bool {
	return selectedOption == q.CorrectAnswer
}

func questionPoints(q *model.QuizQuestion) int {
	if q.Points > 0 {
		return q.Points
	}
	return 1
}

// SumPoints 作答开始时冻结的满分值
func SumPoints(questions []model.QuizQuestion) int {
	total := 0
	for i := range questions {
		total += questionPoints(&questions[i])
	}
	return total
}

// Percentage 四舍五入到整数百分比；totalPoints <= 0 时返回 0
func Percentage(score, totalPoints int) int {
	if totalPoints <= 0 {
		return 0
	}
	return int(math.Round(float64(score) / float64(totalPoints) * 100))
}
