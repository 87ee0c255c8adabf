package adapter

import (
	"context"

	"github.com/pkg/errors"

	"waimai/internal/pkg/httpclient"
	"waimai/internal/service/order/port"
)

// PaymentHTTPAdapter 是 port.PaymentGateway 的 HTTP 实现，
// 调用支付服务的确认接口。确认接口本身幂等，重复确认返回 alreadyConfirmed。
type PaymentHTTPAdapter struct {
	client  *httpclient.Client
	baseURL string
}

func NewPaymentHTTPAdapter(client *httpclient.Client, baseURL string) *PaymentHTTPAdapter {
	return &PaymentHTTPAdapter{client: client, baseURL: baseURL}
}

type confirmRequest struct {
	OrderNumber string `json:"orderNumber"`
}

type confirmResponse struct {
	Success          bool `json:"success"`
	AlreadyConfirmed bool `json:"alreadyConfirmed"`
}

func (a *PaymentHTTPAdapter) Confirm(ctx context.Context, orderNumber string) (*port.ConfirmResult, error) {
	var resp confirmResponse
	err := a.client.PostJSON(ctx, a.baseURL+"/confirm", confirmRequest{OrderNumber: orderNumber}, &resp)
	if err != nil {
		return nil, errors.Wrap(err, "payment gateway confirm")
	}
	return &port.ConfirmResult{
		Success:          resp.Success,
		AlreadyConfirmed: resp.AlreadyConfirmed,
	}, nil
}
