// internal/pkg/session/manager.go
package session

import (
	"context"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	"waimai/internal/pkg/redis"
)

const (
	keyPrefix  = "session:user_gateway:"
	sessionTTL = 24 * time.Hour
)

// Manager 在 Redis 里维护 用户 -> 推送网关节点 的会话映射，
// 多网关部署时路由层根据它决定把消息投递到哪个节点。
type Manager struct {
	rdb *redis.Client
}

func NewManager(rdb *redis.Client) *Manager {
	return &Manager{rdb: rdb}
}

// SetUserGateway 记录用户连接到了哪个网关节点
func (m *Manager) SetUserGateway(ctx context.Context, userID, nodeID string) error {
	return m.rdb.GetClient().Set(ctx, keyPrefix+userID, nodeID, sessionTTL).Err()
}

// GetUserGateway 返回用户当前连接的网关节点，未连接时返回空串
func (m *Manager) GetUserGateway(ctx context.Context, userID string) (string, error) {
	nodeID, err := m.rdb.GetClient().Get(ctx, keyPrefix+userID).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", nil
		}
		return "", err
	}
	return nodeID, nil
}

// RemoveUserGateway 用户断开连接时清理会话
func (m *Manager) RemoveUserGateway(ctx context.Context, userID string) error {
	return m.rdb.GetClient().Del(ctx, keyPrefix+userID).Err()
}
