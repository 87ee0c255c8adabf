package adapter

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"waimai/internal/service/order/domain"
	"waimai/internal/service/order/infrastructure"
)

// AddressGormAdapter 是 port.AddressBook 的 GORM 实现，只读
type AddressGormAdapter struct {
	db *gorm.DB
}

func NewAddressGormAdapter(db *gorm.DB) *AddressGormAdapter {
	return &AddressGormAdapter{db: db}
}

// GetByID 查地址簿并拼出快照，省市区加详细地址拼成一个字符串存入订单
func (a *AddressGormAdapter) GetByID(ctx context.Context, id int64) (*domain.AddressSnapshot, error) {
	var model infrastructure.AddressBookModel
	err := a.db.WithContext(ctx).First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAddressMissing
		}
		return nil, errors.Wrap(err, "get address book record")
	}
	return &domain.AddressSnapshot{
		AddressBookID: model.ID,
		Phone:         model.Phone,
		Consignee:     model.Consignee,
		Address:       model.ProvinceName + model.CityName + model.DistrictName + model.Detail,
	}, nil
}
