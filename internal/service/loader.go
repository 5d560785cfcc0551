package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"project-tracker/internal/repository"
	"project-tracker/internal/store"
	"project-tracker/pkg/metrics"
)

// Loader 批量加载器：并发读取各集合并写入缓存
type Loader struct {
	repo   *repository.Repository
	store  *store.Store
	logger *zap.Logger
}

// NewLoader 创建 Loader；repo 为 nil 表示未连接
func NewLoader(repo *repository.Repository, st *store.Store, logger *zap.Logger) *Loader {
	return &Loader{repo: repo, store: st, logger: logger}
}

// Load 加载全部七个集合，期间置 loading 标记。
// 单个集合失败不影响其他集合，返回第一个错误。
func (l *Loader) Load(ctx context.Context) error {
	l.store.SetLoading(true)
	defer l.store.SetLoading(false)

	err := l.Reload(ctx, store.AllCollections()...)
	if err != nil {
		l.logger.Warn("批量加载部分失败", zap.Error(err))
		return err
	}
	l.logger.Info("批量加载完成")
	return nil
}

// Reload 按需重新读取指定集合
func (l *Loader) Reload(ctx context.Context, collections ...store.Collection) error {
	if l.repo == nil {
		return ErrNotConnected
	}

	var g errgroup.Group
	for _, c := range collections {
		g.Go(func() error {
			if err := l.fetch(ctx, c); err != nil {
				metrics.BulkLoadFailures.WithLabelValues(string(c)).Inc()
				l.logger.Error("集合加载失败", zap.String("collection", string(c)), zap.Error(err))
				return fmt.Errorf("加载 %s 失败: %w", c, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// fetch 读取单个集合，成功后立即替换
func (l *Loader) fetch(ctx context.Context, c store.Collection) error {
	switch c {
	case store.Semesters:
		rows, err := l.repo.Semester.List(ctx)
		if err != nil {
			return err
		}
		l.store.ReplaceSemesters(rows)
	case store.Projects:
		rows, err := l.repo.Project.List(ctx)
		if err != nil {
			return err
		}
		l.store.ReplaceProjects(rows)
	case store.ScheduleItems:
		rows, err := l.repo.ScheduleItem.List(ctx)
		if err != nil {
			return err
		}
		l.store.ReplaceScheduleItems(rows)
	case store.Profiles:
		rows, err := l.repo.Profile.List(ctx)
		if err != nil {
			return err
		}
		l.store.ReplaceProfiles(rows)
	case store.Enrollments:
		rows, err := l.repo.Enrollment.List(ctx)
		if err != nil {
			return err
		}
		l.store.ReplaceEnrollments(rows)
	case store.CheckIns:
		rows, err := l.repo.CheckIn.List(ctx)
		if err != nil {
			return err
		}
		l.store.ReplaceCheckIns(rows)
	case store.ProjectStates:
		rows, err := l.repo.ProjectState.List(ctx)
		if err != nil {
			return err
		}
		l.store.ReplaceProjectStates(rows)
	default:
		return fmt.Errorf("未知集合 %q", c)
	}
	return nil
}
