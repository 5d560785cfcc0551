package handler

import (
	"github.com/gin-gonic/gin"

	"project-tracker/internal/dto"
	"project-tracker/internal/service"
	"project-tracker/pkg/response"
)

// SemesterHandler 学期、项目与日程的 HTTP 处理器
type SemesterHandler struct {
	gw service.Gateway
}

// NewSemesterHandler 创建 SemesterHandler
func NewSemesterHandler(gw service.Gateway) *SemesterHandler {
	return &SemesterHandler{gw: gw}
}

// ────────────────────── Semester ──────────────────────

// CreateSemester 创建学期
// POST /api/v1/semesters
func (h *SemesterHandler) CreateSemester(c *gin.Context) {
	var req dto.CreateSemesterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	semester, err := h.gw.CreateSemester(c.Request.Context(), &req)
	if err != nil {
		handleMutationError(c, err)
		return
	}

	response.Created(c, semester)
}

// SelectSemester 切换当前学期
// PUT /api/v1/semesters/current
func (h *SemesterHandler) SelectSemester(c *gin.Context) {
	var req dto.SelectSemesterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.gw.SelectSemester(req.SemesterID); err != nil {
		handleMutationError(c, err)
		return
	}

	response.OK(c, gin.H{"current_semester_id": req.SemesterID})
}

// ────────────────────── Project ──────────────────────

// CreateProject 创建项目
// POST /api/v1/projects
func (h *SemesterHandler) CreateProject(c *gin.Context) {
	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	project, err := h.gw.CreateProject(c.Request.Context(), &req)
	if err != nil {
		handleMutationError(c, err)
		return
	}

	response.Created(c, project)
}

// SetPublished 发布 / 撤回项目
// PUT /api/v1/projects/:id/published
func (h *SemesterHandler) SetPublished(c *gin.Context) {
	var req dto.SetPublishedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	project, err := h.gw.SetProjectPublished(c.Request.Context(), c.Param("id"), req.IsPublished)
	if err != nil {
		handleMutationError(c, err)
		return
	}

	response.OK(c, project)
}

// ────────────────────── Schedule ──────────────────────

// CreateScheduleItem 添加日程
// POST /api/v1/schedule-items
func (h *SemesterHandler) CreateScheduleItem(c *gin.Context) {
	var req dto.CreateScheduleItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	item, err := h.gw.CreateScheduleItem(c.Request.Context(), &req)
	if err != nil {
		handleMutationError(c, err)
		return
	}

	response.Created(c, item)
}

// DeleteScheduleItem 删除日程
// DELETE /api/v1/schedule-items/:id
func (h *SemesterHandler) DeleteScheduleItem(c *gin.Context) {
	if err := h.gw.DeleteScheduleItem(c.Request.Context(), c.Param("id")); err != nil {
		handleMutationError(c, err)
		return
	}

	response.OK(c, nil)
}
