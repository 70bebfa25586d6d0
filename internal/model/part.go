package model

import "time"

// Part is a seller-owned spare-part listing. AvailableStock and ReservedStock
// are shared counters mutated only through guarded updates in the store.
type Part struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement"`
	SellerUID      string    `gorm:"column:seller_uid;size:128;index;not null"`
	Name           string    `gorm:"size:120;not null"`
	Description    string    `gorm:"type:text"`
	UnitPrice      int64     `gorm:"column:unit_price;not null"`
	AvailableStock int       `gorm:"column:available_stock;not null"`
	ReservedStock  int       `gorm:"column:reserved_stock;not null"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

func (Part) TableName() string {
	return "parts"
}
