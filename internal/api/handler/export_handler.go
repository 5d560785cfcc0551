package handler

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"project-tracker/internal/service"
	"project-tracker/pkg/response"
)

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器，全部基于缓存快照
type ExportHandler struct {
	store Snapshotter
	now   func() time.Time
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(store Snapshotter) *ExportHandler {
	return &ExportHandler{store: store, now: time.Now}
}

// RosterCSV 导出名册 CSV
// GET /api/v1/export/roster.csv?semester_id=xxx
func (h *ExportHandler) RosterCSV(c *gin.Context) {
	roster, ok := h.roster(c)
	if !ok {
		return
	}
	sendFile(c, roster.CSVFileName(), contentTypeCSV, roster.CSV())
}

// RosterXLSX 导出名册 Excel
// GET /api/v1/export/roster.xlsx?semester_id=xxx
func (h *ExportHandler) RosterXLSX(c *gin.Context) {
	roster, ok := h.roster(c)
	if !ok {
		return
	}

	data, err := roster.XLSX()
	if err != nil {
		_ = c.Error(err)
		response.InternalError(c)
		return
	}
	sendFile(c, roster.XLSXFileName(), contentTypeXLSX, data)
}

// ScheduleICS 导出学期日程
// GET /api/v1/export/schedule.ics?semester_id=xxx
func (h *ExportHandler) ScheduleICS(c *gin.Context) {
	snap := h.store.Snapshot()
	semesterID, ok := semesterParam(c, &snap)
	if !ok {
		return
	}

	data, err := service.ScheduleICS(&snap, semesterID, h.now())
	if err != nil {
		_ = c.Error(err)
		response.InternalError(c)
		return
	}
	sendFile(c, service.ICSFileName(&snap, semesterID), contentTypeICS, data)
}

func (h *ExportHandler) roster(c *gin.Context) (*service.Roster, bool) {
	snap := h.store.Snapshot()
	semesterID, ok := semesterParam(c, &snap)
	if !ok {
		return nil, false
	}

	roster, err := service.BuildRoster(&snap, semesterID)
	if err != nil {
		response.NotFound(c, 20006, err.Error())
		return nil, false
	}
	return roster, true
}

// sendFile 以附件形式下载
func sendFile(c *gin.Context, filename, contentType string, data []byte) {
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, contentType, data)
}
