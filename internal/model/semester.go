package model

import "time"

// Semester 学期表 — 对应 semesters
//
// 允许多行 is_active=true；“当前学期”只是缓存中的选择，不是唯一约束。
type Semester struct {
	ID         string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name       string    `gorm:"type:varchar(100);not null"                     json:"name"`
	CourseCode string    `gorm:"type:varchar(50);not null"                      json:"course_code"`
	IsActive   bool      `gorm:"not null;default:false"                         json:"is_active"`
	StartDate  Date      `gorm:"type:date;not null"                             json:"start_date"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (Semester) TableName() string { return "semesters" }
