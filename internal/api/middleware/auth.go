package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"project-tracker/internal/auth"
	"project-tracker/internal/model"
	"project-tracker/internal/service"
	"project-tracker/pkg/response"
)

// TokenValidator 校验 Bearer Token（*service.SessionStore 实现）
type TokenValidator interface {
	Validate(ctx context.Context, token string) (*auth.Principal, error)
}

// ProfileSource 当前会话档案（*service.SessionStore 实现）
type ProfileSource interface {
	Profile() (model.Profile, bool)
}

// SessionAuth 会话认证中间件
// 从 Authorization: Bearer <token> 中提取并验证会话 Token
func SessionAuth(v TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, 10002, "Missing authorization header.")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, 10002, "Malformed authorization header.")
			c.Abort()
			return
		}

		principal, err := v.Validate(c.Request.Context(), parts[1])
		if err != nil {
			if errors.Is(err, service.ErrNotConnected) {
				response.ServiceUnavailable(c, 20001, service.ErrNotConnected.Error())
			} else {
				response.Unauthorized(c, 10002, "Session is invalid or has expired.")
			}
			c.Abort()
			return
		}

		c.Set("user_id", principal.ID)
		c.Set("email", principal.Email)

		c.Next()
	}
}

// ActiveProfile 会话档案与 Token 必须属于同一用户
// 切换账号期间档案尚未就绪时拒绝请求，避免以旧用户身份读写
func ActiveProfile(profiles ProfileSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := boundProfile(c, profiles); !ok {
			response.Unauthorized(c, 10002, "Not signed in.")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RoleAuth 角色权限中间件
// 以会话档案的角色为准；档案与 Token 不属于同一用户时视为未认证
func RoleAuth(profiles ProfileSource, allowedRoles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, ok := boundProfile(c, profiles)
		if !ok {
			response.Unauthorized(c, 10002, "Not signed in.")
			c.Abort()
			return
		}

		for _, r := range allowedRoles {
			if profile.Role == r {
				c.Set("role", string(profile.Role))
				c.Next()
				return
			}
		}

		response.Forbidden(c, 10003, service.PermissionDeniedMessage)
		c.Abort()
	}
}

func boundProfile(c *gin.Context, profiles ProfileSource) (model.Profile, bool) {
	profile, ok := profiles.Profile()
	if !ok || profile.ID != c.GetString("user_id") {
		return model.Profile{}, false
	}
	return profile, true
}
