package storage

import (
	"context"
	"time"
)

// Registry 定义了 C12 工作池的站点归属索引接口：记录某个站点当前由哪个
// worker/host 持有，供多个 supervisor 进程共享同一套模板时协调归属。
type Registry interface {
	// SetOwner 注册或更新一个站点的归属 worker
	// stationID: 站点的唯一标识（template.HashID 的结果）
	// workerID: 当前持有该站点的 worker 的唯一标识
	// ttl: 键的过期时间，用于自动清理失联 worker 留下的僵尸归属记录
	SetOwner(ctx context.Context, stationID string, workerID string, ttl time.Duration) error

	// GetOwner 获取指定站点当前的归属 worker ID
	// 如果键不存在，应返回 redis.Nil 错误
	GetOwner(ctx context.Context, stationID string) (string, error)

	// DeleteOwner 删除一个站点的归属记录（例如，该站点从本进程移除时）
	DeleteOwner(ctx context.Context, stationID string) error

	// Close 关闭与存储后端的连接
	Close() error
}
