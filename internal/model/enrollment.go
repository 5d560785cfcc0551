package model

import "time"

// EnrollmentStatus 选课状态
type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentDropped   EnrollmentStatus = "dropped"
	EnrollmentCompleted EnrollmentStatus = "completed"
)

// Enrollment 选课表 — 对应 enrollments
//
// ProfileID 为空表示“待关联”：教职人员先录入、学生尚未注册账号。
// (semester_id, email) / (semester_id, student_number) / (semester_id, tag_number)
// 三组唯一约束由后端保证。
type Enrollment struct {
	ID            string           `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	SemesterID    string           `gorm:"type:uuid;not null"                             json:"semester_id"`
	ProfileID     *string          `gorm:"type:uuid"                                      json:"profile_id"`
	Email         string           `gorm:"type:varchar(255);not null"                     json:"email"`
	FullName      string           `gorm:"type:varchar(200);not null;default:''"          json:"full_name"`
	StudentNumber string           `gorm:"type:varchar(30);not null"                      json:"student_number"`
	TagNumber     string           `gorm:"type:varchar(10);not null"                      json:"tag_number"`
	Status        EnrollmentStatus `gorm:"type:varchar(20);not null;default:'active'"     json:"status"`
	CreatedAt     time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (Enrollment) TableName() string { return "enrollments" }

// Pending 是否尚未关联档案
func (e *Enrollment) Pending() bool {
	return e.ProfileID == nil || *e.ProfileID == ""
}
