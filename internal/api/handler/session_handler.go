package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"project-tracker/internal/auth"
	"project-tracker/internal/dto"
	"project-tracker/internal/model"
	"project-tracker/internal/service"
	"project-tracker/pkg/response"
)

// SessionService 会话操作（*service.SessionStore 实现）
type SessionService interface {
	SignIn(ctx context.Context, email, password string) (*auth.Session, error)
	SignUp(ctx context.Context, email, password, displayName string) (*auth.SignUpResult, error)
	SignOut(ctx context.Context) error
	State() service.SessionState
	Profile() (model.Profile, bool)
	Session() (auth.Session, bool)
}

// SessionHandler 会话模块 HTTP 处理器
type SessionHandler struct {
	session SessionService
}

// NewSessionHandler 创建 SessionHandler
func NewSessionHandler(session SessionService) *SessionHandler {
	return &SessionHandler{session: session}
}

// SignIn 邮箱密码登录
// POST /api/v1/session/sign-in
func (h *SessionHandler) SignIn(c *gin.Context) {
	var req dto.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	sess, err := h.session.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	response.OK(c, h.describe(sess))
}

// SignUp 注册；需要邮件确认时返回 pending 且无 Token
// POST /api/v1/session/sign-up
func (h *SessionHandler) SignUp(c *gin.Context) {
	var req dto.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.session.SignUp(c.Request.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	if result.Pending {
		response.Created(c, dto.SessionResponse{State: string(service.StateAnonymous), Pending: true})
		return
	}
	response.Created(c, h.describe(result.Session))
}

// SignOut 登出并吊销当前 Token
// POST /api/v1/session/sign-out
func (h *SessionHandler) SignOut(c *gin.Context) {
	if err := h.session.SignOut(c.Request.Context()); err != nil && !errors.Is(err, auth.ErrNoSession) {
		h.handleAuthError(c, err)
		return
	}
	response.OK(c, nil)
}

// Me 当前会话与档案
// GET /api/v1/session
func (h *SessionHandler) Me(c *gin.Context) {
	resp := dto.SessionResponse{State: string(h.session.State())}
	if sess, ok := h.session.Session(); ok {
		resp.ExpiresAt = sess.ExpiresAt.UTC().Format(time.RFC3339)
	}
	resp.Profile = h.profile()
	response.OK(c, resp)
}

func (h *SessionHandler) describe(sess *auth.Session) dto.SessionResponse {
	resp := dto.SessionResponse{State: string(h.session.State())}
	if sess != nil {
		resp.Token = sess.Token
		resp.ExpiresAt = sess.ExpiresAt.UTC().Format(time.RFC3339)
	}
	resp.Profile = h.profile()
	return resp
}

func (h *SessionHandler) profile() *dto.ProfileResponse {
	p, ok := h.session.Profile()
	if !ok {
		return nil
	}
	return &dto.ProfileResponse{
		ID:          p.ID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		Role:        string(p.Role),
		Synthesized: p.Synthesized,
	}
}

func (h *SessionHandler) handleAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotConnected):
		response.ServiceUnavailable(c, 20001, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		response.Unauthorized(c, 11001, err.Error())
	case errors.Is(err, auth.ErrEmailNotConfirmed):
		response.Forbidden(c, 11002, err.Error())
	case errors.Is(err, auth.ErrEmailTaken):
		response.Conflict(c, 11003, err.Error())
	case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrWeakPassword):
		response.BadRequest(c, 11004, err.Error())
	case errors.Is(err, auth.ErrNoSession), errors.Is(err, auth.ErrTokenRevoked):
		response.Unauthorized(c, 10002, err.Error())
	default:
		response.Error(c, http.StatusBadGateway, 20005, err.Error())
	}
}
