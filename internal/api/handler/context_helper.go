package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"project-tracker/internal/service"
	"project-tracker/internal/store"
	"project-tracker/pkg/response"
)

// Snapshotter 缓存快照（*store.Store 实现）
type Snapshotter interface {
	Snapshot() store.Snapshot
}

// badRequest 参数绑定失败
func badRequest(c *gin.Context, err error) {
	response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "Invalid request parameters.", err.Error())
}

// handleMutationError 按失败分类映射 HTTP 状态，消息原样返回给界面
func handleMutationError(c *gin.Context, err error) {
	var me *service.MutationError
	if !errors.As(err, &me) {
		response.InternalError(c)
		return
	}

	switch me.Kind {
	case service.KindConnectivity:
		response.ServiceUnavailable(c, 20001, me.Message)
	case service.KindConstraint:
		response.Conflict(c, 20002, me.Message)
	case service.KindAuthorization:
		if errors.Is(me, service.ErrNotSignedIn) {
			response.Unauthorized(c, 10002, me.Message)
			return
		}
		response.Forbidden(c, 20003, me.Message)
	case service.KindValidation:
		response.BadRequest(c, 20004, me.Message)
	default:
		response.Error(c, http.StatusBadGateway, 20005, me.Message)
	}
}

// semesterParam 取 ?semester_id=，缺省为当前学期
func semesterParam(c *gin.Context, snap *store.Snapshot) (string, bool) {
	id := c.Query("semester_id")
	if id == "" {
		id = snap.CurrentSemesterID
	}
	if id == "" {
		response.BadRequest(c, 20004, service.ErrNoSemester.Error())
		return "", false
	}
	if _, ok := snap.Semester(id); !ok {
		response.NotFound(c, 20006, "Semester not found.")
		return "", false
	}
	return id, true
}
