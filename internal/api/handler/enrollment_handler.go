package handler

import (
	"github.com/gin-gonic/gin"

	"project-tracker/internal/dto"
	"project-tracker/internal/model"
	"project-tracker/internal/service"
	"project-tracker/pkg/response"
)

// EnrollmentHandler 选课与角色的 HTTP 处理器
type EnrollmentHandler struct {
	gw service.Gateway
}

// NewEnrollmentHandler 创建 EnrollmentHandler
func NewEnrollmentHandler(gw service.Gateway) *EnrollmentHandler {
	return &EnrollmentHandler{gw: gw}
}

// EnrollStudent 教职人员录入学生
// POST /api/v1/enrollments
func (h *EnrollmentHandler) EnrollStudent(c *gin.Context) {
	var req dto.EnrollStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	enrollment, err := h.gw.EnrollStudent(c.Request.Context(), &req)
	if err != nil {
		handleMutationError(c, err)
		return
	}

	response.Created(c, enrollment)
}

// JoinByCourseCode 学生凭课程码加入
// POST /api/v1/enrollments/join
func (h *EnrollmentHandler) JoinByCourseCode(c *gin.Context) {
	var req dto.JoinByCourseCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	enrollment, err := h.gw.JoinByCourseCode(c.Request.Context(), &req)
	if err != nil {
		handleMutationError(c, err)
		return
	}

	response.Created(c, enrollment)
}

// ChangeRole 修改档案角色
// PUT /api/v1/profiles/:id/role
func (h *EnrollmentHandler) ChangeRole(c *gin.Context) {
	var req dto.ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	profile, err := h.gw.ChangeRole(c.Request.Context(), c.Param("id"), model.Role(req.Role))
	if err != nil {
		handleMutationError(c, err)
		return
	}

	response.OK(c, profile)
}
