package port

import (
	"context"

	"waimai/internal/service/order/domain"
)

// AddressBook 是地址簿协作方的出站端口，只读。
// 记录不存在时返回 domain.ErrAddressMissing。
type AddressBook interface {
	GetByID(ctx context.Context, id int64) (*domain.AddressSnapshot, error)
}
