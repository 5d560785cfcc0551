package service

import (
	"go.uber.org/zap"

	"project-tracker/internal/auth"
	"project-tracker/internal/realtime"
	"project-tracker/internal/repository"
	"project-tracker/internal/store"
	"project-tracker/pkg/storage"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Store      *store.Store
	Session    *SessionStore
	Loader     *Loader
	Linker     *Linker
	Reconciler *Reconciler
	Gateway    Gateway
}

// NewService 创建 Service 聚合。
// repo / provider 为 nil 表示未连接后端；feed / uploader 为 nil 时对应功能关闭。
func NewService(
	repo *repository.Repository,
	provider auth.Provider,
	feed realtime.Feed,
	uploader storage.Uploader,
	logger *zap.Logger,
) *Service {
	st := store.New()
	loader := NewLoader(repo, st, logger.Named("loader"))
	linker := NewLinker(repo, st, logger.Named("linker"))
	reconciler := NewReconciler(feed, repo, st, logger.Named("realtime"))
	session := NewSessionStore(provider, repo, st, loader, linker, reconciler, logger.Named("session"))

	return &Service{
		Store:      st,
		Session:    session,
		Loader:     loader,
		Linker:     linker,
		Reconciler: reconciler,
		Gateway:    NewGateway(repo, st, session, loader, uploader, logger.Named("gateway")),
	}
}

// Connected 是否配置了后端
func (s *Service) Connected() bool {
	return s.Loader.repo != nil
}
