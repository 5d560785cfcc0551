package dto

// ── 会话模块 DTO ──

// SignInRequest 登录请求
type SignInRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// SignUpRequest 注册请求
type SignUpRequest struct {
	Email       string `json:"email"        binding:"required,email"`
	Password    string `json:"password"     binding:"required,min=6,max=72"`
	DisplayName string `json:"display_name" binding:"omitempty,max=200"`
}

// SessionResponse 当前会话信息
type SessionResponse struct {
	State     string           `json:"state"`
	Token     string           `json:"token,omitempty"`
	ExpiresAt string           `json:"expires_at,omitempty"`
	Profile   *ProfileResponse `json:"profile,omitempty"`
	Pending   bool             `json:"pending,omitempty"` // 注册后等待邮件确认
}

// ProfileResponse 档案信息
type ProfileResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	Synthesized bool   `json:"synthesized,omitempty"`
}
