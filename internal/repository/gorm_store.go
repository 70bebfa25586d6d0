package repository

import (
	"context"
	"time"

	"github.com/RektefeMaster/parts-backend/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) InTx(ctx context.Context, fn func(Store) error) error {
	if s.db == nil {
		return ErrDBNotReady
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

func (s *gormStore) CreatePart(ctx context.Context, p *model.Part) error {
	if s.db == nil {
		return ErrDBNotReady
	}
	return s.db.WithContext(ctx).Create(p).Error
}

func (s *gormStore) FindPart(ctx context.Context, id uint64) (*model.Part, error) {
	if s.db == nil {
		return nil, ErrDBNotReady
	}
	var p model.Part
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *gormStore) FindPartForUpdate(ctx context.Context, id uint64) (*model.Part, error) {
	if s.db == nil {
		return nil, ErrDBNotReady
	}
	var p model.Part
	if err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *gormStore) ListParts(ctx context.Context, limit, offset int) ([]model.Part, int64, error) {
	if s.db == nil {
		return nil, 0, ErrDBNotReady
	}
	var (
		parts []model.Part
		total int64
	)
	if err := s.db.WithContext(ctx).Model(&model.Part{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := s.db.WithContext(ctx).
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&parts).Error; err != nil {
		return nil, 0, err
	}
	return parts, total, nil
}

func (s *gormStore) TakeStock(ctx context.Context, partID uint64, qty int) (bool, error) {
	if s.db == nil {
		return false, ErrDBNotReady
	}
	res := s.db.WithContext(ctx).
		Model(&model.Part{}).
		Where("id = ? AND available_stock >= ?", partID, qty).
		Updates(map[string]interface{}{
			"available_stock": gorm.Expr("available_stock - ?", qty),
			"reserved_stock":  gorm.Expr("reserved_stock + ?", qty),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *gormStore) ReturnStock(ctx context.Context, partID uint64, qty int) error {
	if s.db == nil {
		return ErrDBNotReady
	}
	return s.db.WithContext(ctx).
		Model(&model.Part{}).
		Where("id = ?", partID).
		Updates(map[string]interface{}{
			"available_stock": gorm.Expr("available_stock + ?", qty),
			"reserved_stock":  gorm.Expr("reserved_stock - ?", qty),
		}).Error
}

func (s *gormStore) DrainReserved(ctx context.Context, partID uint64, qty int) error {
	if s.db == nil {
		return ErrDBNotReady
	}
	return s.db.WithContext(ctx).
		Model(&model.Part{}).
		Where("id = ?", partID).
		Update("reserved_stock", gorm.Expr("reserved_stock - ?", qty)).Error
}

func (s *gormStore) CreateReservation(ctx context.Context, r *model.Reservation) error {
	if s.db == nil {
		return ErrDBNotReady
	}
	return s.db.WithContext(ctx).Create(r).Error
}

func (s *gormStore) FindReservation(ctx context.Context, id string) (*model.Reservation, error) {
	if s.db == nil {
		return nil, ErrDBNotReady
	}
	var r model.Reservation
	if err := s.db.WithContext(ctx).
		Where("id = ?", id).
		First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *gormStore) FindReservationForUpdate(ctx context.Context, id string) (*model.Reservation, error) {
	if s.db == nil {
		return nil, ErrDBNotReady
	}
	var r model.Reservation
	if err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *gormStore) SaveReservationIf(ctx context.Context, r *model.Reservation, expect model.Status) (bool, error) {
	if s.db == nil {
		return false, ErrDBNotReady
	}
	res := s.db.WithContext(ctx).
		Model(&model.Reservation{}).
		Where("id = ? AND status = ?", r.ID, expect).
		Select("*").
		Omit("id", "created_at").
		Updates(r)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *gormStore) ListByBuyer(ctx context.Context, buyerUID string, statuses []model.Status) ([]model.Reservation, error) {
	return s.listReservations(ctx, "buyer_uid", buyerUID, statuses)
}

func (s *gormStore) ListBySeller(ctx context.Context, sellerUID string, statuses []model.Status) ([]model.Reservation, error) {
	return s.listReservations(ctx, "seller_uid", sellerUID, statuses)
}

func (s *gormStore) listReservations(ctx context.Context, column, uid string, statuses []model.Status) ([]model.Reservation, error) {
	if s.db == nil {
		return nil, ErrDBNotReady
	}
	q := s.db.WithContext(ctx).Where(column+" = ?", uid)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	var list []model.Reservation
	if err := q.Order("created_at DESC, id DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (s *gormStore) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]model.Reservation, error) {
	if s.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Reservation
	if err := s.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", model.StatusPending, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
