package application

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"waimai/internal/service/order/domain"
)

var sweepNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.Local)

func newTestSweeper(repo *memOrderRepo, cfg SweeperConfig, lock SweepLock) *OrderSweeper {
	s := NewOrderSweeper(repo, cfg, lock, noop.NewTracerProvider().Tracer("test"))
	s.now = func() time.Time { return sweepNow }
	return s
}

var seedSeq atomic.Int64

// seedOrder 直接往内存仓储里放一个指定状态和下单时间的订单
func seedOrder(t *testing.T, repo *memOrderRepo, status domain.Status, orderTime time.Time) *domain.Order {
	t.Helper()
	ord, err := domain.NewOrder(42, fmt.Sprintf("%d%d", orderTime.UnixMilli(), seedSeq.Add(1)), domain.AddressSnapshot{
		AddressBookID: 3, Phone: "13900000000", Consignee: "李四", Address: "上海市浦东新区世纪大道100号",
	}, []domain.CartLine{{Name: "鱼香肉丝", Amount: 26, Quantity: 1}}, orderTime)
	require.NoError(t, err)
	require.NoError(t, repo.CreateFromCart(context.Background(), ord, 42))

	if status != domain.StatusPendingPayment {
		expected := ord.Status
		require.NoError(t, ord.MarkPaid(orderTime))
		if status != domain.StatusToBeConfirmed {
			require.NoError(t, ord.Confirm())
			require.NoError(t, ord.Dispatch())
		}
		require.NoError(t, repo.UpdateConditional(context.Background(), ord, expected))
	}
	return ord
}

func TestSweepPaymentTimeout(t *testing.T) {
	repo := newMemOrderRepo()
	stale := seedOrder(t, repo, domain.StatusPendingPayment, sweepNow.Add(-16*time.Minute))
	fresh := seedOrder(t, repo, domain.StatusPendingPayment, sweepNow.Add(-14*time.Minute))

	sweeper := newTestSweeper(repo, SweeperConfig{}, nil)
	sweeper.sweepPaymentTimeout(context.Background())

	swept := repo.mustGet(t, stale.ID)
	assert.Equal(t, domain.StatusCancelled, swept.Status)
	assert.Equal(t, domain.CancelReasonPaymentTimeout, swept.CancelReason)
	require.NotNil(t, swept.CancelTime)
	assert.Equal(t, sweepNow, *swept.CancelTime)

	// 没到时限的订单不受影响
	assert.Equal(t, domain.StatusPendingPayment, repo.mustGet(t, fresh.ID).Status)
}

func TestSweepStuckDelivery(t *testing.T) {
	repo := newMemOrderRepo()
	stuck := seedOrder(t, repo, domain.StatusDeliveryInProgress, sweepNow.Add(-2*time.Hour))
	recent := seedOrder(t, repo, domain.StatusDeliveryInProgress, sweepNow.Add(-30*time.Minute))

	sweeper := newTestSweeper(repo, SweeperConfig{}, nil)
	sweeper.sweepStuckDelivery(context.Background())

	swept := repo.mustGet(t, stuck.ID)
	assert.Equal(t, domain.StatusCompleted, swept.Status)
	require.NotNil(t, swept.DeliveryTime)

	assert.Equal(t, domain.StatusDeliveryInProgress, repo.mustGet(t, recent.ID).Status)
}

func TestSweepConflictSkipsOrderAndContinues(t *testing.T) {
	repo := newMemOrderRepo()
	a := seedOrder(t, repo, domain.StatusPendingPayment, sweepNow.Add(-20*time.Minute))
	b := seedOrder(t, repo, domain.StatusPendingPayment, sweepNow.Add(-20*time.Minute))

	// 扫描和处理之间用户抢先支付了 a，条件写必须落空
	paid, err := repo.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	expected := paid.Status
	require.NoError(t, paid.MarkPaid(sweepNow))
	require.NoError(t, repo.UpdateConditional(context.Background(), paid, expected))

	sweeper := newTestSweeper(repo, SweeperConfig{}, nil)
	sweeper.sweepPaymentTimeout(context.Background())

	// a 保持用户支付后的状态，b 正常被清扫
	assert.Equal(t, domain.StatusToBeConfirmed, repo.mustGet(t, a.ID).Status)
	assert.Equal(t, domain.StatusCancelled, repo.mustGet(t, b.ID).Status)
}

type fakeLock struct {
	failLock bool
	locks    int
	unlocks  int
}

func (l *fakeLock) Lock() error {
	if l.failLock {
		return assert.AnError
	}
	l.locks++
	return nil
}

func (l *fakeLock) Unlock() error {
	l.unlocks++
	return nil
}

func TestRunOnceSkipsPassWithoutLock(t *testing.T) {
	repo := newMemOrderRepo()
	ord := seedOrder(t, repo, domain.StatusPendingPayment, sweepNow.Add(-20*time.Minute))

	lock := &fakeLock{failLock: true}
	sweeper := newTestSweeper(repo, SweeperConfig{}, lock)
	sweeper.runOnce(context.Background(), "payment_timeout", sweeper.sweepPaymentTimeout)

	// 没抢到锁，这一轮什么都不做
	assert.Equal(t, domain.StatusPendingPayment, repo.mustGet(t, ord.ID).Status)
}

func TestRunOnceAcquiresAndReleasesLock(t *testing.T) {
	repo := newMemOrderRepo()
	ord := seedOrder(t, repo, domain.StatusPendingPayment, sweepNow.Add(-20*time.Minute))

	lock := &fakeLock{}
	sweeper := newTestSweeper(repo, SweeperConfig{}, lock)
	sweeper.runOnce(context.Background(), "payment_timeout", sweeper.sweepPaymentTimeout)

	assert.Equal(t, 1, lock.locks)
	assert.Equal(t, 1, lock.unlocks)
	assert.Equal(t, domain.StatusCancelled, repo.mustGet(t, ord.ID).Status)
}

func TestSweeperConfigDefaults(t *testing.T) {
	cfg := SweeperConfig{}.withDefaults()
	assert.Equal(t, time.Minute, cfg.PaymentInterval)
	assert.Equal(t, 15*time.Minute, cfg.PaymentTimeout)
	assert.Equal(t, 24*time.Hour, cfg.DeliveryInterval)
	assert.Equal(t, time.Hour, cfg.DeliveryTimeout)
}
