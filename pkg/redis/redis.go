package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"project-tracker/config"
)

// Client Redis 客户端封装
// 用于持久化客户端状态（后端地址、凭据、会话 Token）以及 Token 黑名单
type Client struct {
	rdb    goredis.UniversalClient
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// NewFromUniversal 包装已有连接（测试或共享连接池时使用）
func NewFromUniversal(rdb goredis.UniversalClient, logger *zap.Logger) *Client {
	return &Client{rdb: rdb, logger: logger}
}

// ── 客户端状态 ──

const (
	stateEndpointKey   = "tracker:client:backend_endpoint"
	stateCredentialKey = "tracker:client:backend_credential"
	stateSessionKey    = "tracker:client:session_token"
)

// ClientState 持久化的客户端状态，进程启动时读取一次
type ClientState struct {
	Endpoint   string
	Credential string
}

// LoadClientState 读取后端地址与凭据；键不存在时对应字段为空串
func (c *Client) LoadClientState(ctx context.Context) (ClientState, error) {
	vals, err := c.rdb.MGet(ctx, stateEndpointKey, stateCredentialKey).Result()
	if err != nil {
		return ClientState{}, err
	}
	var st ClientState
	if s, ok := vals[0].(string); ok {
		st.Endpoint = s
	}
	if s, ok := vals[1].(string); ok {
		st.Credential = s
	}
	return st, nil
}

// SaveClientState 写入后端地址与凭据（无过期时间）
func (c *Client) SaveClientState(ctx context.Context, st ClientState) error {
	return c.rdb.MSet(ctx, stateEndpointKey, st.Endpoint, stateCredentialKey, st.Credential).Err()
}

// SaveSessionToken 保存会话 Token，ttl 与 Token 有效期一致
func (c *Client) SaveSessionToken(ctx context.Context, token string, ttl time.Duration) error {
	return c.rdb.Set(ctx, stateSessionKey, token, ttl).Err()
}

// LoadSessionToken 读取会话 Token；不存在时返回空串
func (c *Client) LoadSessionToken(ctx context.Context) (string, error) {
	token, err := c.rdb.Get(ctx, stateSessionKey).Result()
	if errors.Is(err, goredis.Nil) {
		return "", nil
	}
	return token, err
}

// ClearSessionToken 删除会话 Token
func (c *Client) ClearSessionToken(ctx context.Context) error {
	return c.rdb.Del(ctx, stateSessionKey).Err()
}

// ── Token 黑名单 ──

const blacklistPrefix = "tracker:token:blacklist:"

// BlacklistToken 将 JWT ID 加入黑名单，TTL 与 Token 剩余有效期一致
func (c *Client) BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // Token 已过期，无需加入黑名单
	}
	return c.rdb.Set(ctx, blacklistPrefix+jti, "1", ttl).Err()
}

// IsBlacklisted 检查 JWT ID 是否在黑名单中
func (c *Client) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := c.rdb.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ── 速率限制 ──

// CheckRateLimit 固定窗口计数；窗口内第 limit+1 次起返回 false
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	pipe := c.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return incr.Val() <= int64(limit), nil
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
