package handler

import (
	"project-tracker/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Session    *SessionHandler
	State      *StateHandler
	Semester   *SemesterHandler
	Enrollment *EnrollmentHandler
	Progress   *ProgressHandler
	Export     *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Session:    NewSessionHandler(svc.Session),
		State:      NewStateHandler(svc.Store, svc.Gateway),
		Semester:   NewSemesterHandler(svc.Gateway),
		Enrollment: NewEnrollmentHandler(svc.Gateway),
		Progress:   NewProgressHandler(svc.Gateway, svc.Store),
		Export:     NewExportHandler(svc.Store),
	}
}
