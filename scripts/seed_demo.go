// 手动写入演示数据脚本
//
// 账号和课程由外部服务维护，本服务只消费。本地联调时用此脚本
// 造出一个课程、一个管理员、一个已订阅的学生和一份示例测验。
//
// 用法: go run scripts/seed_demo.go

package main

import (
	"elearn_backend/internal/config"
	"elearn_backend/internal/model"
	"elearn_backend/pkg/database"
	"elearn_backend/pkg/logger"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

func main() {
	data, err := os.ReadFile("configs/config.yaml")
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	logger.InitLogger(&cfg)

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}

	course := &model.Course{Title: "Go 后端开发入门", Category: "programming"}
	if err := db.FirstOrCreate(course, model.Course{Title: course.Title}).Error; err != nil {
		log.Fatalf("写入课程失败: %v", err)
	}

	admin := &model.User{Name: "演示管理员", Email: "admin@example.com", Password: "demo-only", Role: model.Admin}
	if err := db.FirstOrCreate(admin, model.User{Email: admin.Email}).Error; err != nil {
		log.Fatalf("写入管理员失败: %v", err)
	}

	student := &model.User{Name: "演示学生", Email: "student@example.com", Password: "demo-only", Role: model.Student}
	if err := db.FirstOrCreate(student, model.User{Email: student.Email}).Error; err != nil {
		log.Fatalf("写入学生失败: %v", err)
	}

	sub := &model.Subscription{UserID: student.ID, CourseID: course.ID}
	if err := db.FirstOrCreate(sub, model.Subscription{UserID: student.ID, CourseID: course.ID}).Error; err != nil {
		log.Fatalf("写入订阅失败: %v", err)
	}

	var count int64
	if err := db.Model(&model.Quiz{}).Where("course_id = ?", course.ID).Count(&count).Error; err != nil {
		log.Fatalf("查询测验失败: %v", err)
	}
	if count == 0 {
		quiz := &model.Quiz{
			Title:       "第一周小测",
			Description: "Go 基础语法",
			CourseID:    course.ID,
			Duration:    20,
			CreatorID:   admin.ID,
			Questions: []model.QuizQuestion{
				{Text: "哪个关键字用于声明变量？", Options: []string{"let", "var", "def"}, CorrectAnswer: 1, Points: 1, Order: 1},
				{Text: "哪个内建函数向切片追加元素？", Options: []string{"append", "push", "add"}, CorrectAnswer: 0, Points: 2, Order: 2},
			},
		}
		if err := db.Create(quiz).Error; err != nil {
			log.Fatalf("写入测验失败: %v", err)
		}
	}

	log.Println("演示数据写入完成！")
}
