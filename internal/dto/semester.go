package dto

// ── 学期 / 项目 / 日程 DTO ──

// CreateSemesterRequest 创建学期请求
type CreateSemesterRequest struct {
	Name       string `json:"name"        binding:"required,min=2,max=100"`
	CourseCode string `json:"course_code" binding:"required,max=50"`
	StartDate  string `json:"start_date"  binding:"required"` // "2026-01-05"
	IsActive   bool   `json:"is_active"`
}

// SelectSemesterRequest 切换当前学期（仅本地）
type SelectSemesterRequest struct {
	SemesterID string `json:"semester_id" binding:"required"`
}

// CreateProjectRequest 创建项目请求；SemesterID 为空时使用当前学期
type CreateProjectRequest struct {
	SemesterID    string `json:"semester_id"`
	Code          string `json:"code"           binding:"required,max=20"`
	Title         string `json:"title"          binding:"required,max=200"`
	Description   string `json:"description"`
	SequenceOrder int    `json:"sequence_order" binding:"min=0"`
	IsPublished   bool   `json:"is_published"`
}

// SetPublishedRequest 切换项目发布状态
type SetPublishedRequest struct {
	IsPublished bool `json:"is_published"`
}

// CreateScheduleItemRequest 创建日程请求
type CreateScheduleItemRequest struct {
	SemesterID string `json:"semester_id"`
	Title      string `json:"title" binding:"required,max=200"`
	Date       string `json:"date"  binding:"required"` // "2026-02-03"
	Type       string `json:"type"  binding:"required,oneof=assigned demo progress_check lab_day due critique"`
}
