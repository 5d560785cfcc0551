package model

import "time"

// CheckInType 进度记录类型
type CheckInType string

const (
	CheckInProgressUpdate    CheckInType = "progress_update"
	CheckInInstructorComment CheckInType = "instructor_comment"
)

// Valid 是否为已知类型
func (t CheckInType) Valid() bool {
	return t == CheckInProgressUpdate || t == CheckInInstructorComment
}

// CheckIn 进度记录 — 对应 check_ins（客户端视角只追加，按时间倒序）
type CheckIn struct {
	ID            string      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ProjectID     string      `gorm:"type:uuid;not null"                             json:"project_id"`
	StudentID     string      `gorm:"type:uuid;not null"                             json:"student_id"`
	AuthorID      string      `gorm:"type:uuid;not null"                             json:"author_id"`
	Type          CheckInType `gorm:"type:varchar(30);not null"                      json:"type"`
	Content       string      `gorm:"type:text;not null"                             json:"content"`
	AttachmentURL *string     `gorm:"type:text"                                      json:"attachment_url"`
	CreatedAt     time.Time   `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (CheckIn) TableName() string { return "check_ins" }
