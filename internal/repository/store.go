package repository

import (
	"context"
	"errors"
	"time"

	"github.com/RektefeMaster/parts-backend/internal/model"
)

var ErrDBNotReady = errors.New("database not initialized")

// Store is the durable source of truth for parts and reservations. Every
// engine intent runs its read-validate-write sequence inside InTx so that
// concurrent intents on the same record serialize at the store.
type Store interface {
	// InTx runs fn against a transaction-bound Store. Mutations made through
	// that Store are committed only if fn returns nil.
	InTx(ctx context.Context, fn func(Store) error) error

	CreatePart(ctx context.Context, p *model.Part) error
	FindPart(ctx context.Context, id uint64) (*model.Part, error)
	// FindPartForUpdate locks the part row for the rest of the transaction.
	FindPartForUpdate(ctx context.Context, id uint64) (*model.Part, error)
	ListParts(ctx context.Context, limit, offset int) ([]model.Part, int64, error)
	// TakeStock atomically moves qty from available to reserved; reports
	// false without mutating anything when available stock is short.
	TakeStock(ctx context.Context, partID uint64, qty int) (bool, error)
	// ReturnStock credits qty back from reserved to available.
	ReturnStock(ctx context.Context, partID uint64, qty int) error
	// DrainReserved removes qty from the reserved counter without crediting
	// available stock (the units were handed over).
	DrainReserved(ctx context.Context, partID uint64, qty int) error

	CreateReservation(ctx context.Context, r *model.Reservation) error
	FindReservation(ctx context.Context, id string) (*model.Reservation, error)
	// FindReservationForUpdate locks the reservation row for the rest of the
	// transaction.
	FindReservationForUpdate(ctx context.Context, id string) (*model.Reservation, error)
	// SaveReservationIf persists r only while the stored status still equals
	// expect; reports false when another writer got there first.
	SaveReservationIf(ctx context.Context, r *model.Reservation, expect model.Status) (bool, error)
	ListByBuyer(ctx context.Context, buyerUID string, statuses []model.Status) ([]model.Reservation, error)
	ListBySeller(ctx context.Context, sellerUID string, statuses []model.Status) ([]model.Reservation, error)
	// ListExpiredPending returns pending reservations whose expiry clock has
	// run out, oldest first.
	ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]model.Reservation, error)
}
