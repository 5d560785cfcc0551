package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"project-tracker/internal/dto"
	"project-tracker/internal/model"
	"project-tracker/internal/service"
	"project-tracker/pkg/response"
)

// ProgressHandler 进度记录、附件与状态的 HTTP 处理器
type ProgressHandler struct {
	gw    service.Gateway
	store Snapshotter
}

// NewProgressHandler 创建 ProgressHandler
func NewProgressHandler(gw service.Gateway, store Snapshotter) *ProgressHandler {
	return &ProgressHandler{gw: gw, store: store}
}

// PostCheckIn 发布进度记录
// POST /api/v1/check-ins
func (h *ProgressHandler) PostCheckIn(c *gin.Context) {
	var req dto.PostCheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	checkIn, err := h.gw.PostCheckIn(c.Request.Context(), &req)
	if err != nil {
		handleMutationError(c, err)
		return
	}

	response.Created(c, checkIn)
}

// UploadAttachment 上传附件，返回公开 URL
// POST /api/v1/attachments (multipart, 字段 file)
func (h *ProgressHandler) UploadAttachment(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "Request body too large.")
			return
		}
		response.BadRequest(c, 10001, "A file is required.")
		return
	}

	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, 10001, "Could not read the uploaded file.")
		return
	}
	defer f.Close()

	url, err := h.gw.UploadAttachment(c.Request.Context(), fh.Filename, fh.Header.Get("Content-Type"), f)
	if err != nil {
		handleMutationError(c, err)
		return
	}

	response.Created(c, dto.UploadResponse{URL: url})
}

// UpdateStatus 更新项目进度状态
// PUT /api/v1/project-states/status
func (h *ProgressHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	state, err := h.gw.UpdateProjectStatus(c.Request.Context(), req.ProjectID, req.StudentID, model.ProjectStatus(req.Status))
	if err != nil {
		handleMutationError(c, err)
		return
	}

	response.OK(c, state)
}

// UpdateNotes 更新教师批注
// PUT /api/v1/project-states/notes
func (h *ProgressHandler) UpdateNotes(c *gin.Context) {
	var req dto.UpdateNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	state, err := h.gw.UpdateInstructorNotes(c.Request.Context(), req.ProjectID, req.StudentID, req.Notes)
	if err != nil {
		handleMutationError(c, err)
		return
	}

	response.OK(c, state)
}

// GetProgress 各项目的状态分布
// GET /api/v1/progress?semester_id=xxx
func (h *ProgressHandler) GetProgress(c *gin.Context) {
	snap := h.store.Snapshot()
	semesterID, ok := semesterParam(c, &snap)
	if !ok {
		return
	}

	stats, err := service.Progress(&snap, semesterID)
	if err != nil {
		response.NotFound(c, 20006, err.Error())
		return
	}

	list := make([]dto.ProjectProgressResponse, 0, len(stats))
	for _, s := range stats {
		counts := make(map[string]int, len(s.Counts))
		for st, n := range s.Counts {
			counts[string(st)] = n
		}
		list = append(list, dto.ProjectProgressResponse{
			ProjectID: s.Project.ID,
			Code:      s.Project.Code,
			Title:     s.Project.Title,
			Total:     s.Total,
			Counts:    counts,
		})
	}

	response.OK(c, gin.H{"list": list})
}
