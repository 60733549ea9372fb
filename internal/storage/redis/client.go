package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	cfgpkg "github.com/taoyao-code/radio-hub/internal/config"
)

// Client Redis客户端封装
type Client struct {
	*redis.Client
}

// NewClient 创建Redis客户端并探活
func NewClient(cfg cfgpkg.RedisConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("redis is not enabled")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Client{Client: rdb}, nil
}

// Wrap 包装已有连接
func Wrap(rdb *redis.Client) *Client { return &Client{Client: rdb} }

// Close 关闭Redis连接
func (c *Client) Close() error {
	if c.Client != nil {
		return c.Client.Close()
	}
	return nil
}

// HealthCheck 健康检查
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

// Stats 连接池统计
func (c *Client) Stats() *redis.PoolStats {
	return c.PoolStats()
}

// LineSink 一行出站数据的去向；空键对应的动作跳过
type LineSink struct {
	Channel string // PUBLISH
	List    string // RPUSH 后 LTRIM 到 MaxLen
	MaxLen  int64
}

// PushLine 单次往返完成发布与有界追加
func (c *Client) PushLine(ctx context.Context, s LineSink, line string) error {
	if s.Channel == "" && s.List == "" {
		return nil
	}
	pipe := c.Pipeline()
	if s.Channel != "" {
		pipe.Publish(ctx, s.Channel, line)
	}
	if s.List != "" {
		pipe.RPush(ctx, s.List, line)
		if s.MaxLen > 0 {
			pipe.LTrim(ctx, s.List, -s.MaxLen, -1)
		}
	}
	_, err := pipe.Exec(ctx)
	return err
}

// PopLine 阻塞弹出列表头部；超时返回 ok=false 且 err=nil
func (c *Client) PopLine(ctx context.Context, key string, timeout time.Duration) (string, bool, error) {
	res, err := c.BLPop(ctx, timeout, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if len(res) != 2 {
		return "", false, nil
	}
	return res[1], true, nil
}
