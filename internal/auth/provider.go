package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"project-tracker/internal/model"
	"project-tracker/internal/repository"
	pkgerrors "project-tracker/pkg/errors"
	"project-tracker/pkg/jwt"
)

var (
	ErrInvalidCredentials = errors.New("Invalid email or password.")
	ErrEmailNotConfirmed  = errors.New("Email address has not been confirmed yet.")
	ErrEmailTaken         = errors.New("An account with this email already exists.")
	ErrInvalidEmail       = errors.New("Please enter a valid email address.")
	ErrWeakPassword       = errors.New("Password must be at least 6 characters.")
	ErrTokenRevoked       = errors.New("Session has been signed out.")
	ErrNoSession          = errors.New("No active session.")
)

const minPasswordLen = 6

// EventType 会话事件类型
type EventType string

const (
	EventSignedIn  EventType = "signed_in"
	EventSignedOut EventType = "signed_out"
)

// Principal 已认证身份
type Principal struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// Session 认证会话
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Principal Principal `json:"principal"`

	jti string
}

// Event 会话事件；signed_out 时 Session 为 nil
type Event struct {
	Type    EventType
	Session *Session
}

// SignUpResult 注册结果；需要邮件确认时 Pending 为 true 且无会话
type SignUpResult struct {
	Session *Session `json:"session,omitempty"`
	Pending bool     `json:"pending"`
}

// TokenStore 会话 Token 持久化与吊销（Redis 实现见 pkg/redis）
type TokenStore interface {
	SaveSessionToken(ctx context.Context, token string, ttl time.Duration) error
	LoadSessionToken(ctx context.Context) (string, error)
	ClearSessionToken(ctx context.Context) error
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// Provider 认证提供方
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password, displayName string) (*SignUpResult, error)
	SignOut(ctx context.Context) error
	// Restore 恢复会话；token 为空时读取持久化的 Token
	Restore(ctx context.Context, token string) (*Session, error)
	// Validate 校验 Token 属于当前会话
	Validate(ctx context.Context, token string) (*Principal, error)
	Current() *Session
	Events() <-chan Event
}

type provider struct {
	accounts            repository.AccountRepository
	jwtMgr              *jwt.Manager
	tokens              TokenStore
	requireConfirmation bool
	logger              *zap.Logger

	mu      sync.Mutex
	current *Session
	events  chan Event
	now     func() time.Time
}

// NewProvider 创建认证提供方；tokens 可为 nil（不持久化、不支持吊销）
func NewProvider(
	accounts repository.AccountRepository,
	jwtMgr *jwt.Manager,
	tokens TokenStore,
	requireConfirmation bool,
	logger *zap.Logger,
) Provider {
	return &provider{
		accounts:            accounts,
		jwtMgr:              jwtMgr,
		tokens:              tokens,
		requireConfirmation: requireConfirmation,
		logger:              logger,
		events:              make(chan Event, 16),
		now:                 time.Now,
	}
}

func (p *provider) Events() <-chan Event {
	return p.events
}

func (p *provider) Current() *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil
	}
	cp := *p.current
	return &cp
}

// ────────────────────── SignIn ──────────────────────

func (p *provider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	account, err := p.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		p.logger.Error("查询账号失败", zap.String("email", email), zap.Error(err))
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if p.requireConfirmation && account.ConfirmedAt == nil {
		return nil, ErrEmailNotConfirmed
	}

	return p.establish(ctx, account)
}

// ────────────────────── SignUp ──────────────────────

func (p *provider) SignUp(ctx context.Context, email, password, displayName string) (*SignUpResult, error) {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(password) < minPasswordLen {
		return nil, ErrWeakPassword
	}
	if displayName = strings.TrimSpace(displayName); displayName == "" {
		displayName = strings.SplitN(email, "@", 2)[0]
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("密码哈希失败: %w", err)
	}

	account := &model.Account{
		Email:        strings.ToLower(email),
		PasswordHash: string(hash),
		DisplayName:  displayName,
	}
	if !p.requireConfirmation {
		now := p.now()
		account.ConfirmedAt = &now
	}
	profile := &model.Profile{Role: model.RoleStudent}

	if err := p.accounts.CreateWithProfile(ctx, account, profile); err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeUniqueViolation) {
			return nil, ErrEmailTaken
		}
		p.logger.Error("创建账号失败", zap.String("email", email), zap.Error(err))
		return nil, err
	}
	p.logger.Info("账号已创建", zap.String("account_id", account.ID), zap.Bool("pending", p.requireConfirmation))

	if p.requireConfirmation {
		return &SignUpResult{Pending: true}, nil
	}

	sess, err := p.establish(ctx, account)
	if err != nil {
		return nil, err
	}
	return &SignUpResult{Session: sess}, nil
}

// ────────────────────── SignOut ──────────────────────

func (p *provider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	sess := p.current
	p.current = nil
	p.mu.Unlock()

	if sess == nil {
		return nil
	}

	if p.tokens != nil {
		if err := p.tokens.BlacklistToken(ctx, sess.jti, time.Until(sess.ExpiresAt)); err != nil {
			p.logger.Warn("Token 加入黑名单失败", zap.Error(err))
		}
		if err := p.tokens.ClearSessionToken(ctx); err != nil {
			p.logger.Warn("清除持久化 Token 失败", zap.Error(err))
		}
	}

	p.emit(ctx, Event{Type: EventSignedOut})
	return nil
}

// ────────────────────── Restore ──────────────────────

func (p *provider) Restore(ctx context.Context, token string) (*Session, error) {
	if token == "" && p.tokens != nil {
		saved, err := p.tokens.LoadSessionToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("读取持久化 Token 失败: %w", err)
		}
		token = saved
	}
	if token == "" {
		return nil, ErrNoSession
	}

	claims, err := p.parse(ctx, token)
	if err != nil {
		return nil, err
	}

	account, err := p.accounts.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	sess := &Session{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		Principal: Principal{ID: account.ID, Email: account.Email, DisplayName: account.DisplayName},
		jti:       claims.ID,
	}
	p.setCurrent(ctx, sess)
	return sess, nil
}

// ────────────────────── Validate ──────────────────────

func (p *provider) Validate(ctx context.Context, token string) (*Principal, error) {
	claims, err := p.parse(ctx, token)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	cur := p.current
	p.mu.Unlock()
	if cur == nil || cur.jti != claims.ID {
		return nil, ErrNoSession
	}
	principal := cur.Principal
	return &principal, nil
}

// ────────────────────── internal ──────────────────────

func (p *provider) parse(ctx context.Context, token string) (*jwt.Claims, error) {
	claims, err := p.jwtMgr.ParseToken(token)
	if err != nil {
		return nil, err
	}
	if p.tokens != nil {
		revoked, err := p.tokens.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			p.logger.Warn("查询 Token 黑名单失败", zap.Error(err))
		} else if revoked {
			return nil, ErrTokenRevoked
		}
	}
	return claims, nil
}

func (p *provider) establish(ctx context.Context, account *model.Account) (*Session, error) {
	token, expiresAt, err := p.jwtMgr.GenerateSessionToken(account.ID, account.Email, account.DisplayName)
	if err != nil {
		p.logger.Error("生成会话 Token 失败", zap.Error(err))
		return nil, err
	}
	claims, err := p.jwtMgr.ParseToken(token)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		Token:     token,
		ExpiresAt: expiresAt,
		Principal: Principal{ID: account.ID, Email: account.Email, DisplayName: account.DisplayName},
		jti:       claims.ID,
	}

	if p.tokens != nil {
		if err := p.tokens.SaveSessionToken(ctx, token, p.jwtMgr.TTL()); err != nil {
			p.logger.Warn("持久化会话 Token 失败", zap.Error(err))
		}
	}

	p.setCurrent(ctx, sess)
	return sess, nil
}

func (p *provider) setCurrent(ctx context.Context, sess *Session) {
	p.mu.Lock()
	p.current = sess
	p.mu.Unlock()

	cp := *sess
	p.emit(ctx, Event{Type: EventSignedIn, Session: &cp})
}

func (p *provider) emit(ctx context.Context, ev Event) {
	select {
	case p.events <- ev:
	case <-ctx.Done():
		p.logger.Warn("会话事件未送达", zap.String("type", string(ev.Type)), zap.Error(ctx.Err()))
	}
}
