package dto

// ── 进度 DTO ──

// PostCheckInRequest 发布进度记录；StudentID 为空时记在本人名下
type PostCheckInRequest struct {
	ProjectID     string `json:"project_id"     binding:"required"`
	StudentID     string `json:"student_id"`
	Type          string `json:"type"           binding:"omitempty,oneof=progress_update instructor_comment"`
	Content       string `json:"content"        binding:"required"`
	AttachmentURL string `json:"attachment_url" binding:"omitempty,url"`
}

// UpdateStatusRequest 更新项目进度状态
type UpdateStatusRequest struct {
	ProjectID string `json:"project_id" binding:"required"`
	StudentID string `json:"student_id" binding:"required"`
	Status    string `json:"status"     binding:"required,oneof=not_started in_progress submitted reviewed revision_requested"`
}

// UpdateNotesRequest 更新教师批注
type UpdateNotesRequest struct {
	ProjectID string `json:"project_id" binding:"required"`
	StudentID string `json:"student_id" binding:"required"`
	Notes     string `json:"notes"`
}

// UploadResponse 附件上传结果
type UploadResponse struct {
	URL string `json:"url"`
}

// DismissNotificationsRequest 关闭通知；IDs 为空表示全部
type DismissNotificationsRequest struct {
	IDs []string `json:"ids"`
}

// ProjectProgressResponse 单个项目的进度汇总
type ProjectProgressResponse struct {
	ProjectID string         `json:"project_id"`
	Code      string         `json:"code"`
	Title     string         `json:"title"`
	Total     int            `json:"total"`
	Counts    map[string]int `json:"counts"`
}
