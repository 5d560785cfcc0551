package model

import "time"

// ProjectStatus 学生在某项目上的进度状态
type ProjectStatus string

const (
	StatusNotStarted        ProjectStatus = "not_started"
	StatusInProgress        ProjectStatus = "in_progress"
	StatusSubmitted         ProjectStatus = "submitted"
	StatusReviewed          ProjectStatus = "reviewed"
	StatusRevisionRequested ProjectStatus = "revision_requested"
)

// AllProjectStatuses 状态的展示顺序
func AllProjectStatuses() []ProjectStatus {
	return []ProjectStatus{StatusNotStarted, StatusInProgress, StatusSubmitted, StatusReviewed, StatusRevisionRequested}
}

// StaffOnly 审阅类状态仅教职人员可设置
func (s ProjectStatus) StaffOnly() bool {
	return s == StatusReviewed || s == StatusRevisionRequested
}

// Valid 是否为已知状态
func (s ProjectStatus) Valid() bool {
	for _, v := range AllProjectStatuses() {
		if s == v {
			return true
		}
	}
	return false
}

// ProjectState 项目进度 — 对应 project_states，(project_id, student_id) 唯一
//
// 首次写状态或批注时才创建；无记录等价于 not_started 且无批注。
type ProjectState struct {
	ID              string        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ProjectID       string        `gorm:"type:uuid;not null"                             json:"project_id"`
	StudentID       string        `gorm:"type:uuid;not null"                             json:"student_id"`
	Status          ProjectStatus `gorm:"type:varchar(30);not null;default:'not_started'" json:"status"`
	InstructorNotes string        `gorm:"type:text;not null;default:''"                  json:"instructor_notes"`
	LastActivityAt  time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"last_activity_at"`
	UpdatedAt       time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`
}

// TableName 指定表名
func (ProjectState) TableName() string { return "project_states" }

// StateKey 复合键 (project, student)
type StateKey struct {
	ProjectID string
	StudentID string
}

// Key 返回复合键
func (s *ProjectState) Key() StateKey {
	return StateKey{ProjectID: s.ProjectID, StudentID: s.StudentID}
}
