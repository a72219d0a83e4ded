package model

import (
	"time"
)

type UserRole string

const (
	Student UserRole = "student"
	Admin   UserRole = "admin"
)

// swagger:model User
type User struct {
	BaseModel
	Name      string    `gorm:"size:100;not null" json:"name"`
	Email     string    `gorm:"size:100;unique;not null" json:"email"`
	Password  string    `gorm:"size:100;not null" json:"-"`
	Role      UserRole  `gorm:"size:20;default:'student'" json:"role"`
	Avatar    string    `gorm:"size:255" json:"avatar"`
	Disabled  bool      `gorm:"default:false" json:"disabled"`
	LastLogin time.Time `json:"lastLogin"`
}

func (User) TableName() string {
	return "users"
}

// Subscription 记录学生已订阅的课程（非管理员访问测验的前提）
type Subscription struct {
	BaseModel
	UserID   uint `gorm:"index;uniqueIndex:uniq_user_course;type:bigint unsigned" json:"userId"`
	CourseID uint `gorm:"uniqueIndex:uniq_user_course;type:bigint unsigned" json:"courseId"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}
