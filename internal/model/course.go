package model

// Course 由课程模块维护，测验子系统只读取（存在性校验、标题展示）
// swagger:model Course
type Course struct {
	BaseModel
	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Category    string `gorm:"size:100" json:"category"`
	CreatorID   uint   `gorm:"index;type:bigint unsigned" json:"creatorId"`
}

func (Course) TableName() string {
	return "courses"
}
