package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/RektefeMaster/parts-backend/internal/model"
	"gorm.io/gorm"
)

// MemoryStore is an in-process Store used by tests and as a fallback when no
// database is configured. InTx serializes callers on a single mutex, which
// gives the same per-record linearizability as the row-locked gorm store;
// mutations inside a transaction apply immediately and are not rolled back
// on error.
type MemoryStore struct {
	mu sync.Mutex
	d  memData
}

type memData struct {
	parts        map[uint64]model.Part
	reservations map[string]model.Reservation
	nextPartID   uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		d: memData{
			parts:        make(map[uint64]model.Part),
			reservations: make(map[string]model.Reservation),
			nextPartID:   1,
		},
	}
}

func (m *MemoryStore) InTx(ctx context.Context, fn func(Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(&memTx{d: &m.d})
}

func (m *MemoryStore) locked(fn func(*memTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(&memTx{d: &m.d})
}

func (m *MemoryStore) CreatePart(ctx context.Context, p *model.Part) error {
	return m.locked(func(tx *memTx) error { return tx.CreatePart(ctx, p) })
}

func (m *MemoryStore) FindPart(ctx context.Context, id uint64) (*model.Part, error) {
	var out *model.Part
	err := m.locked(func(tx *memTx) error {
		p, err := tx.FindPart(ctx, id)
		out = p
		return err
	})
	return out, err
}

func (m *MemoryStore) FindPartForUpdate(ctx context.Context, id uint64) (*model.Part, error) {
	return m.FindPart(ctx, id)
}

func (m *MemoryStore) ListParts(ctx context.Context, limit, offset int) ([]model.Part, int64, error) {
	var (
		out   []model.Part
		total int64
	)
	err := m.locked(func(tx *memTx) error {
		var err error
		out, total, err = tx.ListParts(ctx, limit, offset)
		return err
	})
	return out, total, err
}

func (m *MemoryStore) TakeStock(ctx context.Context, partID uint64, qty int) (bool, error) {
	var ok bool
	err := m.locked(func(tx *memTx) error {
		var err error
		ok, err = tx.TakeStock(ctx, partID, qty)
		return err
	})
	return ok, err
}

func (m *MemoryStore) ReturnStock(ctx context.Context, partID uint64, qty int) error {
	return m.locked(func(tx *memTx) error { return tx.ReturnStock(ctx, partID, qty) })
}

func (m *MemoryStore) DrainReserved(ctx context.Context, partID uint64, qty int) error {
	return m.locked(func(tx *memTx) error { return tx.DrainReserved(ctx, partID, qty) })
}

func (m *MemoryStore) CreateReservation(ctx context.Context, r *model.Reservation) error {
	return m.locked(func(tx *memTx) error { return tx.CreateReservation(ctx, r) })
}

func (m *MemoryStore) FindReservation(ctx context.Context, id string) (*model.Reservation, error) {
	var out *model.Reservation
	err := m.locked(func(tx *memTx) error {
		r, err := tx.FindReservation(ctx, id)
		out = r
		return err
	})
	return out, err
}

func (m *MemoryStore) FindReservationForUpdate(ctx context.Context, id string) (*model.Reservation, error) {
	return m.FindReservation(ctx, id)
}

func (m *MemoryStore) SaveReservationIf(ctx context.Context, r *model.Reservation, expect model.Status) (bool, error) {
	var ok bool
	err := m.locked(func(tx *memTx) error {
		var err error
		ok, err = tx.SaveReservationIf(ctx, r, expect)
		return err
	})
	return ok, err
}

func (m *MemoryStore) ListByBuyer(ctx context.Context, buyerUID string, statuses []model.Status) ([]model.Reservation, error) {
	var out []model.Reservation
	err := m.locked(func(tx *memTx) error {
		var err error
		out, err = tx.ListByBuyer(ctx, buyerUID, statuses)
		return err
	})
	return out, err
}

func (m *MemoryStore) ListBySeller(ctx context.Context, sellerUID string, statuses []model.Status) ([]model.Reservation, error) {
	var out []model.Reservation
	err := m.locked(func(tx *memTx) error {
		var err error
		out, err = tx.ListBySeller(ctx, sellerUID, statuses)
		return err
	})
	return out, err
}

func (m *MemoryStore) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]model.Reservation, error) {
	var out []model.Reservation
	err := m.locked(func(tx *memTx) error {
		var err error
		out, err = tx.ListExpiredPending(ctx, now, limit)
		return err
	})
	return out, err
}

// memTx operates on the shared data without locking; the MemoryStore wrapper
// holds the mutex for the duration of every call.
type memTx struct {
	d *memData
}

func (t *memTx) InTx(ctx context.Context, fn func(Store) error) error {
	return fn(t)
}

func (t *memTx) CreatePart(ctx context.Context, p *model.Part) error {
	if p.ID == 0 {
		p.ID = t.d.nextPartID
		t.d.nextPartID++
	}
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	t.d.parts[p.ID] = *p
	return nil
}

func (t *memTx) FindPart(ctx context.Context, id uint64) (*model.Part, error) {
	p, ok := t.d.parts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := p
	return &cp, nil
}

func (t *memTx) FindPartForUpdate(ctx context.Context, id uint64) (*model.Part, error) {
	return t.FindPart(ctx, id)
}

func (t *memTx) ListParts(ctx context.Context, limit, offset int) ([]model.Part, int64, error) {
	all := make([]model.Part, 0, len(t.d.parts))
	for _, p := range t.d.parts {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	total := int64(len(all))
	if offset > len(all) {
		offset = len(all)
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (t *memTx) TakeStock(ctx context.Context, partID uint64, qty int) (bool, error) {
	p, ok := t.d.parts[partID]
	if !ok || p.AvailableStock < qty {
		return false, nil
	}
	p.AvailableStock -= qty
	p.ReservedStock += qty
	p.UpdatedAt = time.Now()
	t.d.parts[partID] = p
	return true, nil
}

func (t *memTx) ReturnStock(ctx context.Context, partID uint64, qty int) error {
	p, ok := t.d.parts[partID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.AvailableStock += qty
	p.ReservedStock -= qty
	p.UpdatedAt = time.Now()
	t.d.parts[partID] = p
	return nil
}

func (t *memTx) DrainReserved(ctx context.Context, partID uint64, qty int) error {
	p, ok := t.d.parts[partID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.ReservedStock -= qty
	p.UpdatedAt = time.Now()
	t.d.parts[partID] = p
	return nil
}

func (t *memTx) CreateReservation(ctx context.Context, r *model.Reservation) error {
	now := time.Now()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	t.d.reservations[r.ID] = *r
	return nil
}

func (t *memTx) FindReservation(ctx context.Context, id string) (*model.Reservation, error) {
	r, ok := t.d.reservations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := r
	return &cp, nil
}

func (t *memTx) FindReservationForUpdate(ctx context.Context, id string) (*model.Reservation, error) {
	return t.FindReservation(ctx, id)
}

func (t *memTx) SaveReservationIf(ctx context.Context, r *model.Reservation, expect model.Status) (bool, error) {
	cur, ok := t.d.reservations[r.ID]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	if cur.Status != expect {
		return false, nil
	}
	r.UpdatedAt = time.Now()
	t.d.reservations[r.ID] = *r
	return true, nil
}

func (t *memTx) ListByBuyer(ctx context.Context, buyerUID string, statuses []model.Status) ([]model.Reservation, error) {
	return t.list(func(r model.Reservation) bool { return r.BuyerUID == buyerUID }, statuses), nil
}

func (t *memTx) ListBySeller(ctx context.Context, sellerUID string, statuses []model.Status) ([]model.Reservation, error) {
	return t.list(func(r model.Reservation) bool { return r.SellerUID == sellerUID }, statuses), nil
}

func (t *memTx) list(match func(model.Reservation) bool, statuses []model.Status) []model.Reservation {
	out := make([]model.Reservation, 0)
	for _, r := range t.d.reservations {
		if !match(r) {
			continue
		}
		if len(statuses) > 0 {
			found := false
			for _, s := range statuses {
				if r.Status == s {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (t *memTx) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]model.Reservation, error) {
	out := make([]model.Reservation, 0)
	for _, r := range t.d.reservations {
		if r.Status == model.StatusPending && !r.ExpiresAt.After(now) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}
