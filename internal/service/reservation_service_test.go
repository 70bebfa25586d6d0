package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/RektefeMaster/parts-backend/internal/model"
	"github.com/RektefeMaster/parts-backend/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testBuyer  = "buyer-1"
	testSeller = "seller-1"
)

func newTestService(t *testing.T, window time.Duration) (*reservationService, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	svc := NewReservationService(store, nil, window).(*reservationService)
	return svc, store
}

func seedPart(t *testing.T, store *repository.MemoryStore, unitPrice int64, stock int) *model.Part {
	t.Helper()
	p := &model.Part{
		SellerUID:      testSeller,
		Name:           "brake pad set",
		UnitPrice:      unitPrice,
		AvailableStock: stock,
	}
	require.NoError(t, store.CreatePart(context.Background(), p))
	return p
}

func reserve(t *testing.T, svc ReservationService, partID uint64, qty int) *model.Reservation {
	t.Helper()
	r, err := svc.Reserve(context.Background(), testBuyer, ReserveInput{
		PartID:         partID,
		Quantity:       qty,
		DeliveryMethod: model.DeliveryPickup,
		PaymentMethod:  model.PaymentCash,
	})
	require.NoError(t, err)
	return r
}

func partState(t *testing.T, store *repository.MemoryStore, id uint64) *model.Part {
	t.Helper()
	p, err := store.FindPart(context.Background(), id)
	require.NoError(t, err)
	return p
}

func TestReserve(t *testing.T) {
	svc, store := newTestService(t, 30*time.Minute)
	part := seedPart(t, store, 500, 5)

	begin := time.Now()
	r := reserve(t, svc, part.ID, 2)

	assert.NotEmpty(t, r.ID)
	assert.Equal(t, model.StatusPending, r.Status)
	assert.Equal(t, int64(500), r.UnitPrice)
	assert.Equal(t, int64(1000), r.TotalPrice)
	assert.Nil(t, r.NegotiatedPrice)
	assert.Equal(t, int64(1000), r.EffectivePrice())
	assert.False(t, r.StockRestored)
	assert.Equal(t, testSeller, r.SellerUID)
	assert.False(t, r.ExpiresAt.Before(begin.Add(30*time.Minute)))

	p := partState(t, store, part.ID)
	assert.Equal(t, 3, p.AvailableStock)
	assert.Equal(t, 2, p.ReservedStock)
}

func TestReserveInsufficientStock(t *testing.T) {
	svc, store := newTestService(t, time.Minute)
	part := seedPart(t, store, 500, 1)

	_, err := svc.Reserve(context.Background(), testBuyer, ReserveInput{
		PartID:         part.ID,
		Quantity:       2,
		DeliveryMethod: model.DeliveryStandard,
		PaymentMethod:  model.PaymentCard,
	})
	assert.ErrorIs(t, err, ErrInsufficientStock)

	p := partState(t, store, part.ID)
	assert.Equal(t, 1, p.AvailableStock)
	assert.Equal(t, 0, p.ReservedStock)
}

func TestReserveOwnPart(t *testing.T) {
	svc, store := newTestService(t, time.Minute)
	part := seedPart(t, store, 500, 5)

	_, err := svc.Reserve(context.Background(), testSeller, ReserveInput{
		PartID:         part.ID,
		Quantity:       1,
		DeliveryMethod: model.DeliveryPickup,
		PaymentMethod:  model.PaymentCash,
	})
	assert.EqualError(t, err, "cannot reserve your own part")
}

func TestReserveUnknownPart(t *testing.T) {
	svc, _ := newTestService(t, time.Minute)
	_, err := svc.Reserve(context.Background(), testBuyer, ReserveInput{
		PartID:         999,
		Quantity:       1,
		DeliveryMethod: model.DeliveryPickup,
		PaymentMethod:  model.PaymentCash,
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

type fakeIdem struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (f *fakeIdem) Claim(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

func TestReserveIdempotency(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewReservationService(store, &fakeIdem{seen: map[string]bool{}}, time.Minute)
	part := seedPart(t, store, 500, 5)

	in := ReserveInput{
		PartID:         part.ID,
		Quantity:       1,
		DeliveryMethod: model.DeliveryPickup,
		PaymentMethod:  model.PaymentCash,
		IdempotencyKey: "req-1",
	}
	_, err := svc.Reserve(context.Background(), testBuyer, in)
	require.NoError(t, err)

	_, err = svc.Reserve(context.Background(), testBuyer, in)
	assert.ErrorIs(t, err, ErrDuplicateRequest)

	p := partState(t, store, part.ID)
	assert.Equal(t, 4, p.AvailableStock)
}

func TestNoLostStockUnderConcurrentReserves(t *testing.T) {
	svc, store := newTestService(t, time.Minute)
	part := seedPart(t, store, 500, 5)

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		depleted  int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Reserve(context.Background(), testBuyer, ReserveInput{
				PartID:         part.ID,
				Quantity:       1,
				DeliveryMethod: model.DeliveryPickup,
				PaymentMethod:  model.PaymentCash,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case err == ErrInsufficientStock:
				depleted++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, 3, depleted)
	p := partState(t, store, part.ID)
	assert.Equal(t, 0, p.AvailableStock)
	assert.Equal(t, 5, p.ReservedStock)
}

func TestProposeNegotiationBounds(t *testing.T) {
	tests := []struct {
		name    string
		price   int64
		wantErr error
	}{
		{"zero", 0, ErrInvalidNegotiationPrice},
		{"negative", -100, ErrInvalidNegotiationPrice},
		{"equal to total", 1000, ErrInvalidNegotiationPrice},
		{"above total", 1200, ErrInvalidNegotiationPrice},
		{"just below total", 999, nil},
		{"valid", 700, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestService(t, time.Minute)
			part := seedPart(t, store, 500, 5)
			r := reserve(t, svc, part.ID, 2)

			got, err := svc.ProposeNegotiation(context.Background(), testBuyer, r.ID, tt.price)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, got.NegotiatedPrice)
			assert.Equal(t, tt.price, *got.NegotiatedPrice)
			assert.Equal(t, model.StatusPending, got.Status)
		})
	}
}

func TestProposeNegotiationForbidden(t *testing.T) {
	svc, store := newTestService(t, time.Minute)
	part := seedPart(t, store, 500, 5)
	r := reserve(t, svc, part.ID, 2)

	_, err := svc.ProposeNegotiation(context.Background(), "somebody-else", r.ID, 700)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCounterOfferBounds(t *testing.T) {
	tests := []struct {
		name    string
		counter int64
		wantErr error
	}{
		{"below buyer ask", 650, ErrInvalidNegotiationPrice},
		{"equal to buyer ask", 700, ErrInvalidNegotiationPrice},
		{"equal to total", 1000, ErrInvalidNegotiationPrice},
		{"valid concession", 850, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestService(t, time.Minute)
			part := seedPart(t, store, 500, 5)
			r := reserve(t, svc, part.ID, 2)
			_, err := svc.ProposeNegotiation(context.Background(), testBuyer, r.ID, 700)
			require.NoError(t, err)

			counter := tt.counter
			got, err := svc.RespondToNegotiation(context.Background(), testSeller, r.ID, NegotiationResponse{
				Action:       NegotiationReject,
				CounterPrice: &counter,
			})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, got.NegotiatedPrice)
			assert.Equal(t, tt.counter, *got.NegotiatedPrice)
			assert.Equal(t, model.StatusPending, got.Status)
		})
	}
}

func TestPlainRejectClearsNegotiatedPrice(t *testing.T) {
	svc, store := newTestService(t, time.Minute)
	part := seedPart(t, store, 500, 5)
	r := reserve(t, svc, part.ID, 2)
	_, err := svc.ProposeNegotiation(context.Background(), testBuyer, r.ID, 700)
	require.NoError(t, err)

	got, err := svc.RespondToNegotiation(context.Background(), testSeller, r.ID, NegotiationResponse{
		Action: NegotiationReject,
	})
	require.NoError(t, err)
	assert.Nil(t, got.NegotiatedPrice)
	assert.Nil(t, got.NegotiatedBy)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Equal(t, int64(1000), got.EffectivePrice())
}

func TestRespondWithoutOutstandingOffer(t *testing.T) {
	svc, store := newTestService(t, time.Minute)
	part := seedPart(t, store, 500, 5)
	r := reserve(t, svc, part.ID, 2)

	_, err := svc.RespondToNegotiation(context.Background(), testSeller, r.ID, NegotiationResponse{
		Action: NegotiationAccept,
	})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestOfferRoleEnforcement(t *testing.T) {
	svc, store := newTestService(t, time.Minute)
	part := seedPart(t, store, 500, 5)
	r := reserve(t, svc, part.ID, 2)
	_, err := svc.ProposeNegotiation(context.Background(), testBuyer, r.ID, 700)
	require.NoError(t, err)

	// The buyer made the outstanding offer; the buyer cannot answer it.
	_, err = svc.RespondToNegotiation(context.Background(), testBuyer, r.ID, NegotiationResponse{
		Action: NegotiationAccept,
	})
	assert.ErrorIs(t, err, ErrForbidden)

	counter := int64(850)
	_, err = svc.RespondToNegotiation(context.Background(), testSeller, r.ID, NegotiationResponse{
		Action:       NegotiationReject,
		CounterPrice: &counter,
	})
	require.NoError(t, err)

	// Now the seller holds the outstanding counter; a seller reject of their
	// own counter is not a thing, and a buyer reject is expressed by
	// proposing again.
	_, err = svc.RespondToNegotiation(context.Background(), testSeller, r.ID, NegotiationResponse{
		Action: NegotiationAccept,
	})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.RespondToNegotiation(context.Background(), testBuyer, r.ID, NegotiationResponse{
		Action: NegotiationReject,
	})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestNegotiationScenario(t *testing.T) {
	svc, store := newTestService(t, time.Minute)
	part := seedPart(t, store, 500, 5)

	r := reserve(t, svc, part.ID, 2)
	assert.Equal(t, int64(1000), r.TotalPrice)
	assert.Equal(t, model.StatusPending, r.Status)

	got, err := svc.ProposeNegotiation(context.Background(), testBuyer, r.ID, 700)
	require.NoError(t, err)
	assert.Equal(t, int64(700), *got.NegotiatedPrice)
	assert.Equal(t, model.StatusPending, got.Status)

	counter := int64(850)
	got, err = svc.RespondToNegotiation(context.Background(), testSeller, r.ID, NegotiationResponse{
		Action:       NegotiationReject,
		CounterPrice: &counter,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(850), *got.NegotiatedPrice)
	assert.Equal(t, model.StatusPending, got.Status)

	// Buyer accepting the counter is the implicit approve.
	got, err = svc.RespondToNegotiation(context.Background(), testBuyer, r.ID, NegotiationResponse{
		Action: NegotiationAccept,
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, got.Status)
	assert.Equal(t, int64(850), got.EffectivePrice())
	assert.NotNil(t, got.ConfirmedAt)
}

func TestApprove(t *testing.T) {
	svc, store := newTestService(t, time.Minute)
	part := seedPart(t, store, 500, 5)
	r := reserve(t, svc, part.ID, 2)

	_, err := svc.Approve(context.Background(), "not-the-seller", r.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := svc.Approve(context.Background(), testSeller, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, got.Status)
	assert.Equal(t, int64(1000), got.EffectivePrice())
	assert.NotNil(t, got.ConfirmedAt)

	// Approving twice is a closed edge.
	_, err = svc.Approve(context.Background(), testSeller, r.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestApproveFreezesNegotiatedPrice(t *testing.T) {
	svc, store := newTestService(t, time.Minute)
	part := seedPart(t, store, 500, 5)
	r := reserve(t, svc, part.ID, 2)
	_, err := svc.ProposeNegotiation(context.Background(), testBuyer, r.ID, 700)
	require.NoError(t, err)

	got, err := svc.Approve(context.Background(), testSeller, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, got.Status)
	assert.Equal(t, int64(700), got.EffectivePrice())
}

func TestCancelReleasesStockOnce(t *testing.T) {
	svc, store := newTestService(t, time.Minute)
	part := seedPart(t, store, 500, 5)
	r := reserve(t, svc, part.ID, 2)

	got, err := svc.Cancel(context.Background(), testBuyer, model.ActorBuyer, r.ID, "changed my mind")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, got.Status)
	assert.True(t, got.StockRestored)
	assert.Equal(t, "changed my mind", got.CancellationReason)
	require.NotNil(t, got.CancelledBy)
	assert.Equal(t, model.ActorBuyer, *got.CancelledBy)
	assert.NotNil(t, got.CancelledAt)

	p := partState(t, store, part.ID)
	assert.Equal(t, 5, p.AvailableStock)
	assert.Equal(t, 0, p.ReservedStock)

	// A second cancel is a closed edge, and must not double-credit.
	_, err = svc.Cancel(context.Background(), testBuyer, model.ActorBuyer, r.ID, "again")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	p = partState(t, store, part.ID)
	assert.Equal(t, 5, p.AvailableStock)
}

func TestCancelFromConfirmedReleasesStock(t *testing.T) {
	svc, store := newTestService(t, time.Minute)
	part := seedPart(t, store, 500, 5)
	r := reserve(t, svc, part.ID, 2)
	_, err := svc.Approve(context.Background(), testSeller, r.ID)
	require.NoError(t, err)

	got, err := svc.Cancel(context.Background(), testSeller, model.ActorSeller, r.ID, "part damaged in storage")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, got.Status)
	assert.True(t, got.StockRestored)

	p := partState(t, store, part.ID)
	assert.Equal(t, 5, p.AvailableStock)
	assert.Equal(t, 0, p.ReservedStock)
}

func TestCancelRequiresReason(t *testing.T) {
	svc, store := newTestService(t, time.Minute)
	part := seedPart(t, store, 500, 5)
	r := reserve(t, svc, part.ID, 1)

	_, err := svc.Cancel(context.Background(), testBuyer, model.ActorBuyer, r.ID, "   ")
	assert.EqualError(t, err, "cancellation reason is required")
}

func TestIdempotentReleaseUnderCancelExpireRace(t *testing.T) {
	svc, store := newTestService(t, time.Minute)
	part := seedPart(t, store, 500, 5)
	r := reserve(t, svc, part.ID, 2)

	// Push the clock past the expiry deadline, then race a buyer cancel
	// against the sweep.
	svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = svc.Cancel(context.Background(), testBuyer, model.ActorBuyer, r.ID, "too slow")
	}()
	go func() {
		defer wg.Done()
		_, _ = svc.ExpireDue(context.Background(), svc.now(), 10)
	}()
	wg.Wait()

	got, err := svc.Get(context.Background(), testBuyer, r.ID)
	require.NoError(t, err)
	assert.True(t, got.Status == model.StatusCancelled || got.Status == model.StatusExpired)
	assert.True(t, got.StockRestored)

	p := partState(t, store, part.ID)
	assert.Equal(t, 5, p.AvailableStock)
	assert.Equal(t, 0, p.ReservedStock)
}

func TestExpiryScenario(t *testing.T) {
	svc, store := newTestService(t, time.Second)
	part := seedPart(t, store, 500, 3)
	r := reserve(t, svc, part.ID, 2)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Second) }

	n, err := svc.ExpireDue(context.Background(), svc.now(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := svc.Get(context.Background(), testBuyer, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusExpired, got.Status)
	assert.True(t, got.StockRestored)

	p := partState(t, store, part.ID)
	assert.Equal(t, 3, p.AvailableStock)
	assert.Equal(t, 0, p.ReservedStock)

	// The record already expired: cancel is a closed edge now.
	_, err = svc.Cancel(context.Background(), testBuyer, model.ActorBuyer, r.ID, "late cancel")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSweepSkipsRecordsAlreadyMoved(t *testing.T) {
	svc, store := newTestService(t, time.Second)
	part := seedPart(t, store, 500, 3)
	r := reserve(t, svc, part.ID, 1)
	_, err := svc.Approve(context.Background(), testSeller, r.ID)
	require.NoError(t, err)

	n, err := svc.ExpireDue(context.Background(), time.Now().Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	got, err := svc.Get(context.Background(), testBuyer, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, got.Status)
	assert.False(t, got.StockRestored)
}

func TestLazyExpiryOnIntent(t *testing.T) {
	svc, store := newTestService(t, time.Second)
	part := seedPart(t, store, 500, 3)
	r := reserve(t, svc, part.ID, 2)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Second) }

	_, err := svc.Approve(context.Background(), testSeller, r.ID)
	assert.ErrorIs(t, err, ErrExpired)

	got, err := svc.Get(context.Background(), testBuyer, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusExpired, got.Status)
	assert.True(t, got.StockRestored)

	p := partState(t, store, part.ID)
	assert.Equal(t, 3, p.AvailableStock)
}

func TestDeliverAndComplete(t *testing.T) {
	svc, store := newTestService(t, time.Minute)
	part := seedPart(t, store, 500, 5)
	r := reserve(t, svc, part.ID, 2)

	// Deliver before confirm is a closed edge.
	_, err := svc.MarkDelivered(context.Background(), testSeller, r.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.Approve(context.Background(), testSeller, r.ID)
	require.NoError(t, err)

	got, err := svc.MarkDelivered(context.Background(), testSeller, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDelivered, got.Status)
	assert.NotNil(t, got.DeliveredAt)
	// Delivery does not touch payment.
	assert.Equal(t, model.PaymentStatusPending, got.PaymentStatus)

	p := partState(t, store, part.ID)
	assert.Equal(t, 3, p.AvailableStock)
	assert.Equal(t, 0, p.ReservedStock)

	got, err = svc.Complete(context.Background(), testBuyer, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)
	assert.False(t, got.StockRestored)
}

func TestTransitionClosure(t *testing.T) {
	terminal := []model.Status{model.StatusCancelled, model.StatusExpired, model.StatusCompleted}
	for _, status := range terminal {
		t.Run(string(status), func(t *testing.T) {
			svc, store := newTestService(t, time.Minute)
			part := seedPart(t, store, 500, 5)
			r := reserve(t, svc, part.ID, 1)

			// Force the record into the terminal state directly.
			cur, err := store.FindReservation(context.Background(), r.ID)
			require.NoError(t, err)
			prev := cur.Status
			cur.Status = status
			cur.StockRestored = status == model.StatusCancelled || status == model.StatusExpired
			ok, err := store.SaveReservationIf(context.Background(), cur, prev)
			require.NoError(t, err)
			require.True(t, ok)

			_, err = svc.Approve(context.Background(), testSeller, r.ID)
			assert.ErrorIs(t, err, ErrInvalidTransition)
			_, err = svc.Cancel(context.Background(), testBuyer, model.ActorBuyer, r.ID, "reason")
			assert.ErrorIs(t, err, ErrInvalidTransition)
			_, err = svc.MarkDelivered(context.Background(), testSeller, r.ID)
			assert.ErrorIs(t, err, ErrInvalidTransition)
			_, err = svc.Complete(context.Background(), testBuyer, r.ID)
			assert.ErrorIs(t, err, ErrInvalidTransition)
			_, err = svc.ProposeNegotiation(context.Background(), testBuyer, r.ID, 300)
			assert.ErrorIs(t, err, ErrInvalidTransition)
		})
	}
}

func TestListByRoleAndStatus(t *testing.T) {
	svc, store := newTestService(t, time.Minute)
	part := seedPart(t, store, 500, 10)

	r1 := reserve(t, svc, part.ID, 1)
	r2 := reserve(t, svc, part.ID, 1)
	_, err := svc.Approve(context.Background(), testSeller, r2.ID)
	require.NoError(t, err)

	pending, err := svc.List(context.Background(), testBuyer, model.ActorBuyer, []model.Status{model.StatusPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, r1.ID, pending[0].ID)

	all, err := svc.List(context.Background(), testBuyer, model.ActorBuyer, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	sales, err := svc.List(context.Background(), testSeller, model.ActorSeller, []model.Status{model.StatusConfirmed})
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, r2.ID, sales[0].ID)

	_, err = svc.List(context.Background(), testBuyer, model.ActorBuyer, []model.Status{"bogus"})
	assert.Error(t, err)
}

func TestGetVisibility(t *testing.T) {
	svc, store := newTestService(t, time.Minute)
	part := seedPart(t, store, 500, 5)
	r := reserve(t, svc, part.ID, 1)

	_, err := svc.Get(context.Background(), testBuyer, r.ID)
	assert.NoError(t, err)
	_, err = svc.Get(context.Background(), testSeller, r.ID)
	assert.NoError(t, err)
	_, err = svc.Get(context.Background(), "stranger", r.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Get(context.Background(), testBuyer, "missing-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

// staleSaveStore simulates an optimistic-lock miss: the guarded save reports
// that another writer changed the record first.
type staleSaveStore struct {
	repository.Store
}

func (s *staleSaveStore) InTx(ctx context.Context, fn func(repository.Store) error) error {
	return s.Store.InTx(ctx, func(inner repository.Store) error {
		return fn(&staleSaveTx{Store: inner})
	})
}

type staleSaveTx struct {
	repository.Store
}

func (s *staleSaveTx) SaveReservationIf(ctx context.Context, r *model.Reservation, expect model.Status) (bool, error) {
	return false, nil
}

func TestConflictSurfacesToCaller(t *testing.T) {
	inner := repository.NewMemoryStore()
	svc := NewReservationService(&staleSaveStore{Store: inner}, nil, time.Minute)
	part := seedPart(t, inner, 500, 5)

	r, err := svc.Reserve(context.Background(), testBuyer, ReserveInput{
		PartID:         part.ID,
		Quantity:       1,
		DeliveryMethod: model.DeliveryPickup,
		PaymentMethod:  model.PaymentCash,
	})
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), testSeller, r.ID)
	assert.ErrorIs(t, err, ErrConflict)
}
