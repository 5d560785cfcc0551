package service

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"project-tracker/internal/auth"
	"project-tracker/internal/model"
	"project-tracker/internal/repository"
	"project-tracker/internal/store"
)

// SessionState 会话状态
type SessionState string

const (
	StateAnonymous      SessionState = "anonymous"
	StateAuthenticating SessionState = "authenticating"
	StateAuthenticated  SessionState = "authenticated"
)

// Identity 写操作所需的当前身份
type Identity interface {
	Profile() (model.Profile, bool)
	RefreshProfile(ctx context.Context) error
}

// SessionStore 持有当前身份与档案，由认证事件驱动状态迁移
type SessionStore struct {
	provider   auth.Provider
	repo       *repository.Repository
	store      *store.Store
	loader     *Loader
	linker     *Linker
	reconciler *Reconciler
	logger     *zap.Logger

	mu        sync.RWMutex
	state     SessionState
	session   *auth.Session
	profile   *model.Profile
	lastError error
}

// NewSessionStore 创建 SessionStore；provider 为 nil 表示未连接
func NewSessionStore(
	provider auth.Provider,
	repo *repository.Repository,
	st *store.Store,
	loader *Loader,
	linker *Linker,
	reconciler *Reconciler,
	logger *zap.Logger,
) *SessionStore {
	return &SessionStore{
		provider:   provider,
		repo:       repo,
		store:      st,
		loader:     loader,
		linker:     linker,
		reconciler: reconciler,
		logger:     logger,
		state:      StateAnonymous,
	}
}

// ────────────────────── 事件循环 ──────────────────────

// Run 串行消费认证事件直到 ctx 结束，退出前释放订阅
func (s *SessionStore) Run(ctx context.Context) {
	defer s.reconciler.Stop()
	if s.provider == nil {
		<-ctx.Done()
		return
	}

	events := s.provider.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.HandleEvent(ctx, ev)
		}
	}
}

// HandleEvent 处理单个认证事件
func (s *SessionStore) HandleEvent(ctx context.Context, ev auth.Event) {
	switch ev.Type {
	case auth.EventSignedIn:
		if ev.Session == nil {
			return
		}
		s.signedIn(ctx, ev.Session)
	case auth.EventSignedOut:
		s.teardown()
		s.logger.Info("会话已结束")
	}
}

func (s *SessionStore) signedIn(ctx context.Context, sess *auth.Session) {
	s.mu.Lock()
	if s.state == StateAuthenticated && s.session != nil && s.session.Principal.ID == sess.Principal.ID {
		// Token 刷新
		s.session = sess
		s.mu.Unlock()
		return
	}
	switchingUser := s.state != StateAnonymous
	s.mu.Unlock()

	if switchingUser {
		s.teardown()
	}

	s.mu.Lock()
	s.state = StateAuthenticating
	s.session = sess
	s.lastError = nil
	s.mu.Unlock()

	profile := s.resolveProfile(ctx, sess.Principal)

	s.mu.Lock()
	s.profile = &profile
	s.state = StateAuthenticated
	s.mu.Unlock()

	s.logger.Info("会话已建立",
		zap.String("profile_id", profile.ID),
		zap.String("role", string(profile.Role)),
	)

	if err := s.reconciler.Start(ctx); err != nil {
		s.logger.Error("实时订阅失败", zap.Error(err))
		s.setLastError(err)
	}
	if _, err := s.linker.Link(ctx, profile.ID, profile.Email); err != nil {
		s.logger.Error("关联待处理选课失败", zap.Error(err))
		s.setLastError(err)
	}
	if err := s.loader.Load(ctx); err != nil {
		s.setLastError(err)
	}
}

// resolveProfile 读取档案；缺失时以最小权限合成
func (s *SessionStore) resolveProfile(ctx context.Context, p auth.Principal) model.Profile {
	if s.repo != nil {
		row, err := s.repo.Profile.GetByID(ctx, p.ID)
		if err == nil {
			return *row
		}
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("读取档案失败", zap.String("profile_id", p.ID), zap.Error(err))
		}
	}

	s.logger.Warn("档案缺失，以 student 角色合成临时档案",
		zap.String("profile_id", p.ID),
		zap.String("email", p.Email),
	)
	name := p.DisplayName
	if name == "" {
		name = p.Email
	}
	return model.Profile{
		ID:          p.ID,
		Email:       p.Email,
		DisplayName: name,
		Role:        model.RoleStudent,
		Synthesized: true,
	}
}

// teardown 退订并清空缓存
func (s *SessionStore) teardown() {
	s.reconciler.Stop()
	s.store.Reset()

	s.mu.Lock()
	s.state = StateAnonymous
	s.session = nil
	s.profile = nil
	s.lastError = nil
	s.mu.Unlock()
}

func (s *SessionStore) setLastError(err error) {
	s.mu.Lock()
	s.lastError = err
	s.mu.Unlock()
}

// ────────────────────── 查询 ──────────────────────

// State 当前状态
func (s *SessionStore) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Profile 当前档案
func (s *SessionStore) Profile() (model.Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return model.Profile{}, false
	}
	return *s.profile, true
}

// Session 当前认证会话
func (s *SessionStore) Session() (auth.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return auth.Session{}, false
	}
	return *s.session, true
}

// LastError 最近一次建立会话流程中的错误
func (s *SessionStore) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// RefreshProfile 重读本人档案（角色变更后使用）
func (s *SessionStore) RefreshProfile(ctx context.Context) error {
	s.mu.RLock()
	cur := s.profile
	s.mu.RUnlock()
	if cur == nil {
		return ErrNotSignedIn
	}
	if s.repo == nil {
		return ErrNotConnected
	}

	row, err := s.repo.Profile.GetByID(ctx, cur.ID)
	if err != nil {
		return err
	}
	s.store.UpsertProfile(*row)

	s.mu.Lock()
	if s.profile != nil && s.profile.ID == row.ID {
		s.profile = row
	}
	s.mu.Unlock()
	return nil
}

// ────────────────────── 认证委托 ──────────────────────

// SignIn 登录；会话建立由事件循环异步完成
func (s *SessionStore) SignIn(ctx context.Context, email, password string) (*auth.Session, error) {
	if s.provider == nil {
		return nil, ErrNotConnected
	}
	return s.provider.SignIn(ctx, email, password)
}

// SignUp 注册
func (s *SessionStore) SignUp(ctx context.Context, email, password, displayName string) (*auth.SignUpResult, error) {
	if s.provider == nil {
		return nil, ErrNotConnected
	}
	return s.provider.SignUp(ctx, email, password, displayName)
}

// SignOut 登出
func (s *SessionStore) SignOut(ctx context.Context) error {
	if s.provider == nil {
		return ErrNotConnected
	}
	return s.provider.SignOut(ctx)
}

// Restore 启动时恢复持久化会话；无会话时返回 auth.ErrNoSession
func (s *SessionStore) Restore(ctx context.Context) (*auth.Session, error) {
	if s.provider == nil {
		return nil, ErrNotConnected
	}
	return s.provider.Restore(ctx, "")
}

// Validate 校验请求携带的 Token
func (s *SessionStore) Validate(ctx context.Context, token string) (*auth.Principal, error) {
	if s.provider == nil {
		return nil, ErrNotConnected
	}
	return s.provider.Validate(ctx, token)
}
