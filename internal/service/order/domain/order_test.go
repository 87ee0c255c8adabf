package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSnapshot = AddressSnapshot{
	AddressBookID: 7,
	Phone:         "13800000000",
	Consignee:     "张三",
	Address:       "北京市海淀区中关村大街1号",
}

func testLines() []CartLine {
	return []CartLine{
		{Name: "宫保鸡丁", Image: "gbjd.png", Amount: 28.5, Quantity: 2},
		{Name: "米饭", Image: "rice.png", Amount: 2, Quantity: 3},
	}
}

func newTestOrder(t *testing.T) *Order {
	t.Helper()
	ord, err := NewOrder(42, "1700000000000", testSnapshot, testLines(), time.Now())
	require.NoError(t, err)
	return ord
}

func TestNewOrder(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.Local)
	ord, err := NewOrder(42, "1700000000000", testSnapshot, testLines(), now)
	require.NoError(t, err)

	assert.Equal(t, StatusPendingPayment, ord.Status)
	assert.Equal(t, PayStatusUnpaid, ord.PayStatus)
	assert.Equal(t, int64(42), ord.UserID)
	assert.Equal(t, int64(7), ord.AddressBookID)
	assert.Equal(t, "13800000000", ord.Phone)
	assert.Equal(t, "张三", ord.Consignee)
	assert.Equal(t, now, ord.OrderTime)
	assert.InDelta(t, 28.5*2+2*3, ord.Amount, 1e-9)
	assert.Len(t, ord.Details, 2)
	assert.Nil(t, ord.CheckoutTime)
}

func TestNewOrderEmptyCart(t *testing.T) {
	_, err := NewOrder(42, "1700000000000", testSnapshot, nil, time.Now())
	assert.ErrorIs(t, err, ErrCartEmpty)
}

func TestOrderLifecycleHappyPath(t *testing.T) {
	ord := newTestOrder(t)
	now := time.Now()

	require.NoError(t, ord.MarkPaid(now))
	assert.Equal(t, StatusToBeConfirmed, ord.Status)
	assert.Equal(t, PayStatusPaid, ord.PayStatus)
	require.NotNil(t, ord.CheckoutTime)
	assert.Equal(t, now, *ord.CheckoutTime)

	require.NoError(t, ord.Confirm())
	assert.Equal(t, StatusConfirmed, ord.Status)

	require.NoError(t, ord.Dispatch())
	assert.Equal(t, StatusDeliveryInProgress, ord.Status)

	require.NoError(t, ord.Complete(now))
	assert.Equal(t, StatusCompleted, ord.Status)
	require.NotNil(t, ord.DeliveryTime)
}

func TestInvalidTransitionsLeaveOrderUnchanged(t *testing.T) {
	cases := []struct {
		name    string
		prepare func(*Order)
		attempt func(*Order) error
	}{
		{"confirm before payment", func(o *Order) {}, func(o *Order) error { return o.Confirm() }},
		{"dispatch before confirm", func(o *Order) {
			_ = o.MarkPaid(time.Now())
		}, func(o *Order) error { return o.Dispatch() }},
		{"complete before dispatch", func(o *Order) {
			_ = o.MarkPaid(time.Now())
			_ = o.Confirm()
		}, func(o *Order) error { return o.Complete(time.Now()) }},
		{"pay twice", func(o *Order) {
			_ = o.MarkPaid(time.Now())
		}, func(o *Order) error { return o.MarkPaid(time.Now()) }},
		{"reject after confirm", func(o *Order) {
			_ = o.MarkPaid(time.Now())
			_ = o.Confirm()
		}, func(o *Order) error { return o.Reject("菜卖完了", time.Now()) }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ord := newTestOrder(t)
			tc.prepare(ord)
			before := *ord

			err := tc.attempt(ord)
			var transitionErr *InvalidTransitionError
			require.ErrorAs(t, err, &transitionErr)
			assert.Equal(t, before.Status, transitionErr.Current)

			// 非法流转不产生任何副作用
			assert.Equal(t, before.Status, ord.Status)
			assert.Equal(t, before.PayStatus, ord.PayStatus)
			assert.Equal(t, before.CancelReason, ord.CancelReason)
		})
	}
}

func TestRejectRefundsPaidOrder(t *testing.T) {
	ord := newTestOrder(t)
	require.NoError(t, ord.MarkPaid(time.Now()))

	require.NoError(t, ord.Reject("地址太远", time.Now()))
	assert.Equal(t, StatusCancelled, ord.Status)
	assert.Equal(t, PayStatusRefunded, ord.PayStatus)
	assert.Equal(t, "地址太远", ord.RejectionReason)
	assert.Empty(t, ord.CancelReason)
	assert.NotNil(t, ord.CancelTime)
}

func TestCancelByUser(t *testing.T) {
	t.Run("before payment keeps unpaid", func(t *testing.T) {
		ord := newTestOrder(t)
		require.NoError(t, ord.CancelByUser(time.Now()))
		assert.Equal(t, StatusCancelled, ord.Status)
		assert.Equal(t, PayStatusUnpaid, ord.PayStatus)
		assert.Equal(t, CancelReasonUser, ord.CancelReason)
	})

	t.Run("after payment refunds", func(t *testing.T) {
		ord := newTestOrder(t)
		require.NoError(t, ord.MarkPaid(time.Now()))
		require.NoError(t, ord.CancelByUser(time.Now()))
		assert.Equal(t, PayStatusRefunded, ord.PayStatus)
	})

	t.Run("not allowed after merchant accepted", func(t *testing.T) {
		ord := newTestOrder(t)
		require.NoError(t, ord.MarkPaid(time.Now()))
		require.NoError(t, ord.Confirm())
		var transitionErr *InvalidTransitionError
		assert.ErrorAs(t, ord.CancelByUser(time.Now()), &transitionErr)
	})
}

func TestCancelByStaff(t *testing.T) {
	t.Run("allowed up to confirmed", func(t *testing.T) {
		ord := newTestOrder(t)
		require.NoError(t, ord.MarkPaid(time.Now()))
		require.NoError(t, ord.Confirm())
		require.NoError(t, ord.CancelByStaff("店铺打烊", time.Now()))
		assert.Equal(t, StatusCancelled, ord.Status)
		assert.Equal(t, PayStatusRefunded, ord.PayStatus)
		assert.Equal(t, "店铺打烊", ord.CancelReason)
	})

	t.Run("not allowed in delivery", func(t *testing.T) {
		ord := newTestOrder(t)
		require.NoError(t, ord.MarkPaid(time.Now()))
		require.NoError(t, ord.Confirm())
		require.NoError(t, ord.Dispatch())
		var transitionErr *InvalidTransitionError
		assert.ErrorAs(t, ord.CancelByStaff("店铺打烊", time.Now()), &transitionErr)
	})
}

func TestCancelForTimeout(t *testing.T) {
	ord := newTestOrder(t)
	require.NoError(t, ord.CancelForTimeout(time.Now()))
	assert.Equal(t, StatusCancelled, ord.Status)
	assert.Equal(t, CancelReasonPaymentTimeout, ord.CancelReason)

	paid := newTestOrder(t)
	require.NoError(t, paid.MarkPaid(time.Now()))
	var transitionErr *InvalidTransitionError
	assert.ErrorAs(t, paid.CancelForTimeout(time.Now()), &transitionErr)
}

func TestAlreadyPaid(t *testing.T) {
	ord := newTestOrder(t)
	assert.False(t, ord.AlreadyPaid())
	require.NoError(t, ord.MarkPaid(time.Now()))
	assert.True(t, ord.AlreadyPaid())
}
