// internal/service/order/domain/number.go
package domain

import (
	"strconv"
	"sync"
	"time"
)

// NumberSource 生成单调递增的订单号：毫秒时间戳，同一毫秒内并发下单时
// 追加进程内序号。跨进程的碰撞由提交流程的唯一约束加重试兜底。
type NumberSource struct {
	mu         sync.Mutex
	lastMillis int64
	seq        int64
}

func NewNumberSource() *NumberSource {
	return &NumberSource{}
}

// Next 返回下一个订单号
func (s *NumberSource) Next(now time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	millis := now.UnixMilli()
	if millis == s.lastMillis {
		s.seq++
		return strconv.FormatInt(millis, 10) + strconv.FormatInt(s.seq, 10)
	}
	s.lastMillis = millis
	s.seq = 0
	return strconv.FormatInt(millis, 10)
}
