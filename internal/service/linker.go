package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"project-tracker/internal/model"
	"project-tracker/internal/repository"
	"project-tracker/internal/store"
)

// Linker 把待关联的选课行绑定到新登录的档案
type Linker struct {
	repo   *repository.Repository
	store  *store.Store
	logger *zap.Logger
}

// NewLinker 创建 Linker
func NewLinker(repo *repository.Repository, st *store.Store, logger *zap.Logger) *Linker {
	return &Linker{repo: repo, store: st, logger: logger}
}

// Link 查找邮箱匹配的待关联行，批量写入 profileID 后重读选课集合。
// 没有待关联行时不做任何写入，返回 0。
func (l *Linker) Link(ctx context.Context, profileID, email string) (int64, error) {
	if l.repo == nil {
		return 0, ErrNotConnected
	}
	if profileID == "" || email == "" {
		return 0, nil
	}

	pending, err := l.repo.Enrollment.ListPendingByEmail(ctx, email)
	if err != nil {
		return 0, fmt.Errorf("查询待关联选课失败: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	ids := make([]string, len(pending))
	for i, e := range pending {
		ids[i] = e.ID
	}

	n, err := l.repo.Enrollment.LinkProfile(ctx, ids, profileID)
	if err != nil {
		return 0, fmt.Errorf("关联选课失败: %w", err)
	}
	l.logger.Info("已关联待处理选课", zap.String("profile_id", profileID), zap.Int64("count", n))

	rows, err := l.repo.Enrollment.List(ctx)
	if err != nil {
		return n, fmt.Errorf("重读选课失败: %w", err)
	}
	l.store.ReplaceEnrollments(rows)

	if n > 0 {
		l.store.Notify(model.NotifyInfo, fmt.Sprintf("Linked %d pending enrollment(s) to your account.", n))
	}
	return n, nil
}
