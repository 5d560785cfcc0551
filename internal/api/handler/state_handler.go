package handler

import (
	"github.com/gin-gonic/gin"

	"project-tracker/internal/dto"
	"project-tracker/internal/service"
	"project-tracker/pkg/response"
)

// StateHandler 缓存快照与通知
type StateHandler struct {
	store Snapshotter
	gw    service.Gateway
}

// NewStateHandler 创建 StateHandler
func NewStateHandler(store Snapshotter, gw service.Gateway) *StateHandler {
	return &StateHandler{store: store, gw: gw}
}

// GetState 全部集合的一致性快照
// GET /api/v1/state
func (h *StateHandler) GetState(c *gin.Context) {
	snap := h.store.Snapshot()
	response.OK(c, snap)
}

// ListNotifications 当前通知列表
// GET /api/v1/notifications
func (h *StateHandler) ListNotifications(c *gin.Context) {
	snap := h.store.Snapshot()
	response.OK(c, gin.H{"list": snap.Notifications})
}

// DismissNotifications 关闭通知；ids 为空时清空
// POST /api/v1/notifications/dismiss
func (h *StateHandler) DismissNotifications(c *gin.Context) {
	var req dto.DismissNotificationsRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	n := h.gw.DismissNotifications(req.IDs...)
	response.OK(c, gin.H{"dismissed": n})
}
