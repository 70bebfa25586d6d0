package service

import (
	"context"
	"errors"
	"strings"

	"github.com/RektefeMaster/parts-backend/internal/model"
	"github.com/RektefeMaster/parts-backend/internal/repository"
	"gorm.io/gorm"
)

type PartService interface {
	Create(ctx context.Context, sellerUID, name, description string, unitPrice int64, stock int) (*model.Part, error)
	Get(ctx context.Context, id uint64) (*model.Part, error)
	List(ctx context.Context, limit, offset int) ([]model.Part, int64, error)
}

type partService struct {
	store repository.Store
}

func NewPartService(store repository.Store) PartService {
	return &partService{store: store}
}

func (s *partService) Create(ctx context.Context, sellerUID, name, description string, unitPrice int64, stock int) (*model.Part, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	if sellerUID == "" {
		return nil, errors.New("seller is required")
	}
	if name == "" || len(name) > 120 {
		return nil, errors.New("invalid name")
	}
	if unitPrice <= 0 {
		return nil, errors.New("unit price must be positive")
	}
	if stock < 0 {
		return nil, errors.New("stock must not be negative")
	}

	part := &model.Part{
		SellerUID:      sellerUID,
		Name:           name,
		Description:    description,
		UnitPrice:      unitPrice,
		AvailableStock: stock,
	}
	if err := s.store.CreatePart(ctx, part); err != nil {
		return nil, err
	}
	return part, nil
}

func (s *partService) Get(ctx context.Context, id uint64) (*model.Part, error) {
	part, err := s.store.FindPart(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return part, nil
}

func (s *partService) List(ctx context.Context, limit, offset int) ([]model.Part, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListParts(ctx, limit, offset)
}
