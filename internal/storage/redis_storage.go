package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/charging-platform/charge-point-simulator/internal/config"
)

// RedisStorage 使用 Redis 来存储 C12 工作池的站点归属映射，供多个
// supervisor 进程共享同一套模板集时协调"哪个 worker/host 持有站点 X"。
type RedisStorage struct {
	Client *redis.Client // 将 client 字段改为公共字段，以便测试访问
	Prefix string        // 将 prefix 字段改为公共字段，以便测试访问
}

// NewRedisStorage 创建一个新的 RedisStorage 实例
func NewRedisStorage(cfg config.RegistryConfig) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}

	// 尝试 ping Redis 以验证连接
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	_, err := client.Ping(ctx).Result()
	if err != nil {
		// 包装原始错误，提供更多上下文信息
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr, err)
	}

	return &RedisStorage{Client: client, Prefix: "station-owner:"}, nil
}

// SetOwner 注册或更新一个站点的归属 worker
func (r *RedisStorage) SetOwner(ctx context.Context, stationID string, workerID string, ttl time.Duration) error {
	key := fmt.Sprintf("%s%s", r.Prefix, stationID)
	return r.Client.Set(ctx, key, workerID, ttl).Err()
}

// GetOwner 获取指定站点当前的归属 worker ID
func (r *RedisStorage) GetOwner(ctx context.Context, stationID string) (string, error) {
	key := fmt.Sprintf("%s%s", r.Prefix, stationID)
	val, err := r.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", redis.Nil // 明确返回 redis.Nil 错误
	}
	return val, err
}

// DeleteOwner 删除一个站点的归属记录
func (r *RedisStorage) DeleteOwner(ctx context.Context, stationID string) error {
	key := fmt.Sprintf("%s%s", r.Prefix, stationID)
	return r.Client.Del(ctx, key).Err()
}

// Close 关闭与存储后端的连接
func (r *RedisStorage) Close() error {
	return r.Client.Close()
}
