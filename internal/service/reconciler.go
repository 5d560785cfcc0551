package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"project-tracker/internal/model"
	"project-tracker/internal/realtime"
	"project-tracker/internal/repository"
	"project-tracker/internal/store"
	"project-tracker/pkg/metrics"
)

// 订阅的表
const (
	tableCheckIns      = "check_ins"
	tableProjectStates = "project_states"
)

// Reconciler 把实时变更合并进缓存
type Reconciler struct {
	feed   realtime.Feed
	repo   *repository.Repository
	store  *store.Store
	logger *zap.Logger

	mu   sync.Mutex
	sub  *realtime.Subscription
	done chan struct{}
}

// NewReconciler 创建 Reconciler；feed 为 nil 时 Start 为空操作
func NewReconciler(feed realtime.Feed, repo *repository.Repository, st *store.Store, logger *zap.Logger) *Reconciler {
	return &Reconciler{feed: feed, repo: repo, store: st, logger: logger}
}

// Start 订阅变更流并启动消费 goroutine；已启动时直接返回
func (r *Reconciler) Start(ctx context.Context) error {
	if r.feed == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sub != nil {
		return nil
	}

	sub, err := r.feed.Subscribe(ctx, tableCheckIns, tableProjectStates)
	if err != nil {
		return err
	}
	r.sub = sub
	r.done = make(chan struct{})

	go r.consume(ctx, sub, r.done)
	return nil
}

// Stop 取消订阅并等待消费 goroutine 退出
func (r *Reconciler) Stop() {
	r.mu.Lock()
	sub, done := r.sub, r.done
	r.sub, r.done = nil, nil
	r.mu.Unlock()

	if sub == nil {
		return
	}
	sub.Close()
	<-done
}

// Running 是否存在活动订阅
func (r *Reconciler) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sub != nil
}

func (r *Reconciler) consume(ctx context.Context, sub *realtime.Subscription, done chan struct{}) {
	defer close(done)
	for ev := range sub.Events() {
		r.Apply(ctx, ev)
	}
}

// Apply 按事件类型合并：check-in 插入前置，project-state 任意事件整表重读
func (r *Reconciler) Apply(ctx context.Context, ev realtime.Event) {
	switch ev.Table {
	case tableCheckIns:
		if ev.Type != realtime.EventInsert {
			return
		}
		row, err := r.checkInFromEvent(ctx, ev)
		if err != nil {
			r.logger.Warn("无法获取 check-in 事件行", zap.String("id", ev.ID), zap.Error(err))
			return
		}
		r.store.PrependCheckIn(*row)

	case tableProjectStates:
		if r.repo == nil {
			return
		}
		rows, err := r.repo.ProjectState.List(ctx)
		if err != nil {
			r.logger.Error("重读项目进度失败", zap.Error(err))
			return
		}
		r.store.ReplaceProjectStates(rows)

	default:
		return
	}
	metrics.RealtimeEvents.WithLabelValues(ev.Table, string(ev.Type)).Inc()
}

// checkInFromEvent 负载带整行时直接解码，否则按 id 回查
func (r *Reconciler) checkInFromEvent(ctx context.Context, ev realtime.Event) (*model.CheckIn, error) {
	if ev.HasNew() {
		var row model.CheckIn
		if err := ev.DecodeNew(&row); err != nil {
			return nil, err
		}
		return &row, nil
	}
	if r.repo == nil || ev.ID == "" {
		return nil, fmt.Errorf("check-in 事件既无整行也无法回查")
	}
	return r.repo.CheckIn.GetByID(ctx, ev.ID)
}
