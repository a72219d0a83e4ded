package repository

import (
	"elearn_backend/internal/model"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	err := r.DB.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SubscribedCourseIDs 返回用户已订阅的课程 id 集合
func (r *UserRepository) SubscribedCourseIDs(userID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.Model(&model.Subscription{}).
		Where("user_id = ?", userID).
		Pluck("course_id", &ids).Error
	return ids, err
}

func (r *UserRepository) Subscribe(userID, courseID uint) error {
	return r.DB.Create(&model.Subscription{UserID: userID, CourseID: courseID}).Error
}
