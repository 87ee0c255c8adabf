// internal/zookeeper/conn.go
package zookeeper

import (
	"time"

	"github.com/go-zookeeper/zk"
	"github.com/pkg/errors"

	"waimai/internal/pkg/logger"
)

// Conn 封装 zk.Conn，统一建连与关闭
type Conn struct {
	*zk.Conn
}

// Connect 连接 ZooKeeper 集群，addrs 为 "host1:port1,host2:port2" 的切片
func Connect(addrs []string, sessionTimeout time.Duration) (*Conn, error) {
	conn, _, err := zk.Connect(addrs, sessionTimeout, zk.WithLogInfo(false))
	if err != nil {
		return nil, errors.Wrap(err, "connect zookeeper")
	}
	logger.Logger.Info().Strs("addrs", addrs).Msg("zookeeper connected")
	return &Conn{Conn: conn}, nil
}

func (c *Conn) Close() {
	c.Conn.Close()
}
