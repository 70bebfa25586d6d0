package model

import "time"

// Reservation is a buyer's claim on seller stock for a part. TotalPrice is a
// snapshot taken at creation and never recomputed; NegotiatedPrice, when set,
// is a total amount strictly below TotalPrice.
type Reservation struct {
	ID        string  `gorm:"primaryKey;size:36"`
	PartID    uint64  `gorm:"column:part_id;index;not null"`
	BuyerUID  string  `gorm:"column:buyer_uid;size:128;index;not null"`
	SellerUID string  `gorm:"column:seller_uid;size:128;index;not null"`
	VehicleID *string `gorm:"column:vehicle_id;size:64"`

	Quantity        int    `gorm:"not null"`
	UnitPrice       int64  `gorm:"column:unit_price;not null"`
	TotalPrice      int64  `gorm:"column:total_price;not null"`
	NegotiatedPrice *int64 `gorm:"column:negotiated_price"`
	NegotiatedBy    *Actor `gorm:"column:negotiated_by;size:16"`

	DeliveryMethod  DeliveryMethod `gorm:"column:delivery_method;size:16;not null"`
	DeliveryAddress *string        `gorm:"column:delivery_address;size:512"`

	PaymentMethod PaymentMethod `gorm:"column:payment_method;size:16;not null"`
	PaymentStatus PaymentStatus `gorm:"column:payment_status;size:16;not null"`

	Status             Status `gorm:"size:16;index;not null"`
	CancellationReason string `gorm:"column:cancellation_reason;size:512"`
	CancelledBy        *Actor `gorm:"column:cancelled_by;size:16"`
	StockRestored      bool   `gorm:"column:stock_restored;not null"`

	ExpiresAt   time.Time  `gorm:"column:expires_at;index;not null"`
	ConfirmedAt *time.Time `gorm:"column:confirmed_at"`
	CancelledAt *time.Time `gorm:"column:cancelled_at"`
	DeliveredAt *time.Time `gorm:"column:delivered_at"`
	CreatedAt   time.Time  `gorm:"autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime"`
}

func (Reservation) TableName() string {
	return "reservations"
}

// EffectivePrice is the total the sale settles at: the negotiated total if a
// negotiation round attached one, otherwise the snapshot price.
func (r *Reservation) EffectivePrice() int64 {
	if r.NegotiatedPrice != nil {
		return *r.NegotiatedPrice
	}
	return r.TotalPrice
}
