package realtime

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"project-tracker/config"
)

// PGFeed 基于 PostgreSQL LISTEN/NOTIFY 的推送源。
// 每个订阅独占一条 pgx 连接，触发器见 migrations/000002 与 000003。
type PGFeed struct {
	dsn     string
	channel string
	buffer  int
	logger  *zap.Logger
}

// NewPGFeed 创建 PGFeed
func NewPGFeed(dsn string, cfg *config.RealtimeConfig, logger *zap.Logger) *PGFeed {
	channel := cfg.Channel
	if channel == "" {
		channel = "realtime_changes"
	}
	buffer := cfg.Buffer
	if buffer <= 0 {
		buffer = 64
	}
	return &PGFeed{dsn: dsn, channel: channel, buffer: buffer, logger: logger}
}

// Subscribe 建立专用连接并 LISTEN
func (f *PGFeed) Subscribe(ctx context.Context, tables ...string) (*Subscription, error) {
	conn, err := pgx.Connect(ctx, f.dsn)
	if err != nil {
		return nil, fmt.Errorf("实时订阅连接失败: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{f.channel}.Sanitize()); err != nil {
		_ = conn.Close(context.Background())
		return nil, fmt.Errorf("LISTEN %s 失败: %w", f.channel, err)
	}

	f.logger.Info("实时订阅已建立", zap.String("channel", f.channel), zap.Strings("tables", tables))

	pump := func(ctx context.Context, emit func(Event) bool) {
		for {
			n, err := conn.WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() == nil {
					f.logger.Error("实时订阅中断", zap.Error(err))
				}
				return
			}
			ev, err := Decode(n.Payload)
			if err != nil {
				f.logger.Warn("忽略无法解析的实时事件", zap.Error(err))
				continue
			}
			if !emit(ev) {
				return
			}
		}
	}
	closeConn := func() {
		_ = conn.Close(context.Background())
		f.logger.Info("实时订阅已关闭", zap.String("channel", f.channel))
	}

	return newSubscription(ctx, f.buffer, tables, pump, closeConn), nil
}
