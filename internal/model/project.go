package model

import "time"

// Project 项目表 — 对应 projects
type Project struct {
	ID            string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	SemesterID    string    `gorm:"type:uuid;not null"                             json:"semester_id"`
	Code          string    `gorm:"type:varchar(20);not null"                      json:"code"`
	Title         string    `gorm:"type:varchar(200);not null"                     json:"title"`
	Description   string    `gorm:"type:text;not null;default:''"                  json:"description"`
	IsPublished   bool      `gorm:"not null;default:false"                         json:"is_published"`
	SequenceOrder int       `gorm:"not null;default:0"                             json:"sequence_order"`
	CreatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (Project) TableName() string { return "projects" }
