// internal/service/order/application/sweeper.go
package application

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"waimai/internal/pkg/logger"
	"waimai/internal/service/order/domain"
)

var (
	sweptOrders = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_sweeper_swept_total",
		Help: "Orders force-transitioned by the sweeper.",
	}, []string{"sweep"})

	sweepConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_sweeper_conflicts_total",
		Help: "Orders skipped in a sweep pass after losing a conditional write.",
	}, []string{"sweep"})
)

// SweepLock 是清扫任务的互斥锁抽象，多副本部署时用 ZooKeeper 锁保证
// 同一时刻只有一个实例在扫描。锁只用来省掉重复扫描，
// 正确性仍然由每个订单的条件写保证。
type SweepLock interface {
	Lock() error
	Unlock() error
}

// SweeperConfig 两类清扫的周期和判定时限
type SweeperConfig struct {
	PaymentInterval  time.Duration `yaml:"paymentInterval"`  // 支付超时扫描周期，默认 60s
	PaymentTimeout   time.Duration `yaml:"paymentTimeout"`   // 待付款判定超时，默认 15min
	DeliveryInterval time.Duration `yaml:"deliveryInterval"` // 滞留派送扫描周期，默认 24h
	DeliveryTimeout  time.Duration `yaml:"deliveryTimeout"`  // 派送中判定滞留，默认 1h
}

func (c SweeperConfig) withDefaults() SweeperConfig {
	if c.PaymentInterval <= 0 {
		c.PaymentInterval = time.Minute
	}
	if c.PaymentTimeout <= 0 {
		c.PaymentTimeout = 15 * time.Minute
	}
	if c.DeliveryInterval <= 0 {
		c.DeliveryInterval = 24 * time.Hour
	}
	if c.DeliveryTimeout <= 0 {
		c.DeliveryTimeout = time.Hour
	}
	return c
}

// OrderSweeper 定时清扫卡在瞬态状态的订单：
// 超时未付款的取消，长时间停留在派送中的强制完成。
// 每个订单用与生命周期引擎相同的条件写落库，输给并发用户操作就跳过，
// 单个订单的失败不会中断整批扫描。
type OrderSweeper struct {
	orderRepo domain.OrderRepository
	cfg       SweeperConfig
	lock      SweepLock // 可为 nil（单实例部署）
	tracer    trace.Tracer

	now func() time.Time
}

func NewOrderSweeper(orderRepo domain.OrderRepository, cfg SweeperConfig, lock SweepLock, tracer trace.Tracer) *OrderSweeper {
	return &OrderSweeper{
		orderRepo: orderRepo,
		cfg:       cfg.withDefaults(),
		lock:      lock,
		tracer:    tracer,
		now:       time.Now,
	}
}

// Start 启动两个独立周期的清扫循环，阻塞直到 ctx 结束
func (s *OrderSweeper) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.runLoop(ctx, "payment_timeout", s.cfg.PaymentInterval, s.sweepPaymentTimeout)
		return nil
	})
	g.Go(func() error {
		s.runLoop(ctx, "stuck_delivery", s.cfg.DeliveryInterval, s.sweepStuckDelivery)
		return nil
	})
	return g.Wait()
}

func (s *OrderSweeper) runLoop(ctx context.Context, name string, interval time.Duration, sweep func(ctx context.Context)) {
	logger.Ctx(ctx).Info().Str("sweep", name).Dur("interval", interval).Msg("sweeper loop started")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runOnce(ctx, name, sweep)
		case <-ctx.Done():
			logger.Ctx(ctx).Info().Str("sweep", name).Msg("sweeper loop stopped")
			return
		}
	}
}

// runOnce 执行一轮扫描，多副本时先抢清扫锁，抢不到这轮就让给别的实例
func (s *OrderSweeper) runOnce(ctx context.Context, name string, sweep func(ctx context.Context)) {
	if s.lock != nil {
		if err := s.lock.Lock(); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("sweep", name).Msg("could not acquire sweep lock, skipping this pass")
			return
		}
		defer func() {
			if err := s.lock.Unlock(); err != nil {
				logger.Ctx(ctx).Error().Err(err).Str("sweep", name).Msg("failed to release sweep lock")
			}
		}()
	}

	ctx, span := s.tracer.Start(ctx, "sweeper."+name)
	defer span.End()
	sweep(ctx)
}

// sweepPaymentTimeout 取消下单超过时限仍未付款的订单
func (s *OrderSweeper) sweepPaymentTimeout(ctx context.Context) {
	now := s.now()
	deadline := now.Add(-s.cfg.PaymentTimeout)

	orders, err := s.orderRepo.ListByStatusAndOrderTimeBefore(ctx, domain.StatusPendingPayment, deadline)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("payment timeout scan failed")
		return
	}

	for _, ord := range orders {
		expected := ord.Status
		if err := ord.CancelForTimeout(now); err != nil {
			// 扫描和处理之间订单已经离开待付款，正常跳过
			continue
		}
		if err := s.orderRepo.UpdateConditional(ctx, ord, expected); err != nil {
			s.skip(ctx, "payment_timeout", ord.ID, err)
			continue
		}
		sweptOrders.WithLabelValues("payment_timeout").Inc()
		logger.Ctx(ctx).Info().Int64("order_id", ord.ID).Str("number", ord.Number).Msg("unpaid order cancelled by sweeper")
	}
}

// sweepStuckDelivery 强制完成长时间停留在派送中的订单
func (s *OrderSweeper) sweepStuckDelivery(ctx context.Context) {
	now := s.now()
	deadline := now.Add(-s.cfg.DeliveryTimeout)

	orders, err := s.orderRepo.ListByStatusAndOrderTimeBefore(ctx, domain.StatusDeliveryInProgress, deadline)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("stuck delivery scan failed")
		return
	}

	for _, ord := range orders {
		expected := ord.Status
		if err := ord.Complete(now); err != nil {
			continue
		}
		if err := s.orderRepo.UpdateConditional(ctx, ord, expected); err != nil {
			s.skip(ctx, "stuck_delivery", ord.ID, err)
			continue
		}
		sweptOrders.WithLabelValues("stuck_delivery").Inc()
		logger.Ctx(ctx).Info().Int64("order_id", ord.ID).Msg("stuck delivery order completed by sweeper")
	}
}

// skip 记录单个订单的清扫失败并继续处理下一个。
// 输掉条件写说明用户或商家的操作抢先一步，这不是错误。
func (s *OrderSweeper) skip(ctx context.Context, sweep string, orderID int64, err error) {
	if errors.Is(err, domain.ErrConflict) {
		sweepConflicts.WithLabelValues(sweep).Inc()
		logger.Ctx(ctx).Warn().Int64("order_id", orderID).Str("sweep", sweep).Msg("lost race to a concurrent action, order skipped")
		return
	}
	logger.Ctx(ctx).Error().Err(err).Int64("order_id", orderID).Str("sweep", sweep).Msg("sweep update failed, order skipped")
}
