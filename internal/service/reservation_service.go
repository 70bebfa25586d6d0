package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/RektefeMaster/parts-backend/internal/model"
	"github.com/RektefeMaster/parts-backend/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IdempotencyStore guards retried reserve intents. Claim reports false when
// the key was already claimed inside its TTL window.
type IdempotencyStore interface {
	Claim(ctx context.Context, key string) (bool, error)
}

type ReserveInput struct {
	PartID          uint64
	Quantity        int
	VehicleID       *string
	DeliveryMethod  model.DeliveryMethod
	DeliveryAddress *string
	PaymentMethod   model.PaymentMethod
	IdempotencyKey  string
}

type NegotiationAction string

const (
	NegotiationAccept NegotiationAction = "accept"
	NegotiationReject NegotiationAction = "reject"
)

type NegotiationResponse struct {
	Action       NegotiationAction
	CounterPrice *int64
}

type ReservationService interface {
	Reserve(ctx context.Context, buyerUID string, in ReserveInput) (*model.Reservation, error)
	Get(ctx context.Context, uid, id string) (*model.Reservation, error)
	List(ctx context.Context, uid string, role model.Actor, statuses []model.Status) ([]model.Reservation, error)
	Approve(ctx context.Context, sellerUID, id string) (*model.Reservation, error)
	Cancel(ctx context.Context, uid string, actor model.Actor, id, reason string) (*model.Reservation, error)
	ProposeNegotiation(ctx context.Context, buyerUID, id string, price int64) (*model.Reservation, error)
	RespondToNegotiation(ctx context.Context, uid, id string, in NegotiationResponse) (*model.Reservation, error)
	MarkDelivered(ctx context.Context, sellerUID, id string) (*model.Reservation, error)
	Complete(ctx context.Context, uid, id string) (*model.Reservation, error)
	ExpireDue(ctx context.Context, now time.Time, limit int) (int, error)
}

type reservationService struct {
	store  repository.Store
	idem   IdempotencyStore
	window time.Duration
	now    func() time.Time
}

// NewReservationService builds the engine. idem may be nil, in which case
// reserve idempotency keys are not enforced.
func NewReservationService(store repository.Store, idem IdempotencyStore, window time.Duration) ReservationService {
	return &reservationService{
		store:  store,
		idem:   idem,
		window: window,
		now:    time.Now,
	}
}

func (s *reservationService) Reserve(ctx context.Context, buyerUID string, in ReserveInput) (*model.Reservation, error) {
	if buyerUID == "" {
		return nil, errors.New("buyer is required")
	}
	if in.Quantity < 1 {
		return nil, errors.New("quantity must be at least 1")
	}
	if !in.DeliveryMethod.Valid() {
		return nil, errors.New("invalid delivery method")
	}
	if !in.PaymentMethod.Valid() {
		return nil, errors.New("invalid payment method")
	}
	if s.idem != nil && in.IdempotencyKey != "" {
		key := fmt.Sprintf("reserve:%s:%s", buyerUID, in.IdempotencyKey)
		ok, err := s.idem.Claim(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("idempotency check failed: %w", err)
		}
		if !ok {
			return nil, ErrDuplicateRequest
		}
	}

	var out *model.Reservation
	err := s.store.InTx(ctx, func(st repository.Store) error {
		part, err := st.FindPartForUpdate(ctx, in.PartID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if part.SellerUID == buyerUID {
			return errors.New("cannot reserve your own part")
		}
		ok, err := st.TakeStock(ctx, part.ID, in.Quantity)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInsufficientStock
		}
		now := s.now()
		r := &model.Reservation{
			ID:              uuid.NewString(),
			PartID:          part.ID,
			BuyerUID:        buyerUID,
			SellerUID:       part.SellerUID,
			VehicleID:       in.VehicleID,
			Quantity:        in.Quantity,
			UnitPrice:       part.UnitPrice,
			TotalPrice:      part.UnitPrice * int64(in.Quantity),
			DeliveryMethod:  in.DeliveryMethod,
			DeliveryAddress: in.DeliveryAddress,
			PaymentMethod:   in.PaymentMethod,
			PaymentStatus:   model.PaymentStatusPending,
			Status:          model.StatusPending,
			ExpiresAt:       now.Add(s.window),
		}
		if err := st.CreateReservation(ctx, r); err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *reservationService) Get(ctx context.Context, uid, id string) (*model.Reservation, error) {
	r, err := s.store.FindReservation(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if uid != "" && uid != r.BuyerUID && uid != r.SellerUID {
		return nil, ErrForbidden
	}
	return r, nil
}

func (s *reservationService) List(ctx context.Context, uid string, role model.Actor, statuses []model.Status) ([]model.Reservation, error) {
	if uid == "" {
		return nil, errors.New("uid is required")
	}
	for _, st := range statuses {
		if !st.Valid() {
			return nil, fmt.Errorf("invalid status filter %q", st)
		}
	}
	switch role {
	case model.ActorBuyer:
		return s.store.ListByBuyer(ctx, uid, statuses)
	case model.ActorSeller:
		return s.store.ListBySeller(ctx, uid, statuses)
	default:
		return nil, fmt.Errorf("invalid role %q", role)
	}
}

func (s *reservationService) Approve(ctx context.Context, sellerUID, id string) (*model.Reservation, error) {
	return s.mutatePending(ctx, id,
		func(r *model.Reservation) error {
			if r.SellerUID != sellerUID {
				return ErrForbidden
			}
			return nil
		},
		func(st repository.Store, r *model.Reservation) error {
			return s.confirm(r)
		})
}

func (s *reservationService) Cancel(ctx context.Context, uid string, actor model.Actor, id, reason string) (*model.Reservation, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, errors.New("cancellation reason is required")
	}
	if !actor.Valid() {
		return nil, errors.New("invalid actor")
	}
	return s.mutatePending(ctx, id,
		func(r *model.Reservation) error {
			switch actor {
			case model.ActorBuyer:
				if r.BuyerUID != uid {
					return ErrForbidden
				}
			case model.ActorSeller:
				if r.SellerUID != uid {
					return ErrForbidden
				}
			}
			return nil
		},
		func(st repository.Store, r *model.Reservation) error {
			if !r.Status.CanTransitionTo(model.StatusCancelled) {
				return ErrInvalidTransition
			}
			now := s.now()
			a := actor
			r.Status = model.StatusCancelled
			r.CancellationReason = reason
			r.CancelledBy = &a
			r.CancelledAt = &now
			return s.releaseStock(ctx, st, r)
		})
}

func (s *reservationService) ProposeNegotiation(ctx context.Context, buyerUID, id string, price int64) (*model.Reservation, error) {
	return s.mutatePending(ctx, id,
		func(r *model.Reservation) error {
			if r.BuyerUID != buyerUID {
				return ErrForbidden
			}
			return nil
		},
		func(st repository.Store, r *model.Reservation) error {
			if r.Status != model.StatusPending {
				return ErrInvalidTransition
			}
			// A proposal must be a real reduction: below the snapshot total
			// and, per unit, below the listed unit price.
			if price <= 0 || price >= r.TotalPrice {
				return ErrInvalidNegotiationPrice
			}
			if price/int64(r.Quantity) >= r.UnitPrice {
				return ErrInvalidNegotiationPrice
			}
			buyer := model.ActorBuyer
			r.NegotiatedPrice = &price
			r.NegotiatedBy = &buyer
			return nil
		})
}

func (s *reservationService) RespondToNegotiation(ctx context.Context, uid, id string, in NegotiationResponse) (*model.Reservation, error) {
	if in.Action != NegotiationAccept && in.Action != NegotiationReject {
		return nil, fmt.Errorf("invalid negotiation action %q", in.Action)
	}
	return s.mutatePending(ctx, id,
		func(r *model.Reservation) error {
			if uid != r.BuyerUID && uid != r.SellerUID {
				return ErrForbidden
			}
			return nil
		},
		func(st repository.Store, r *model.Reservation) error {
			if r.Status != model.StatusPending || r.NegotiatedPrice == nil || r.NegotiatedBy == nil {
				return ErrInvalidTransition
			}
			// Only the party that did not make the outstanding offer may
			// answer it. A buyer accepting a seller counter is the implicit
			// approve.
			responder := model.ActorSeller
			if *r.NegotiatedBy == model.ActorSeller {
				responder = model.ActorBuyer
			}
			if (responder == model.ActorSeller && uid != r.SellerUID) ||
				(responder == model.ActorBuyer && uid != r.BuyerUID) {
				return ErrForbidden
			}

			if in.Action == NegotiationAccept {
				return s.confirm(r)
			}
			if responder != model.ActorSeller {
				// Buyers walk back a counter by proposing again, not
				// rejecting.
				return ErrForbidden
			}
			if in.CounterPrice == nil {
				// Plain reject: back to an un-negotiated pending record.
				r.NegotiatedPrice = nil
				r.NegotiatedBy = nil
				return nil
			}
			counter := *in.CounterPrice
			if counter <= *r.NegotiatedPrice || counter >= r.TotalPrice {
				return ErrInvalidNegotiationPrice
			}
			seller := model.ActorSeller
			r.NegotiatedPrice = &counter
			r.NegotiatedBy = &seller
			return nil
		})
}

func (s *reservationService) MarkDelivered(ctx context.Context, sellerUID, id string) (*model.Reservation, error) {
	return s.mutate(ctx, id, func(st repository.Store, r *model.Reservation) error {
		if r.SellerUID != sellerUID {
			return ErrForbidden
		}
		if !r.Status.CanTransitionTo(model.StatusDelivered) {
			return ErrInvalidTransition
		}
		now := s.now()
		r.Status = model.StatusDelivered
		r.DeliveredAt = &now
		// The units left the shop; they are no longer reserved and can no
		// longer be credited back.
		return st.DrainReserved(ctx, r.PartID, r.Quantity)
	})
}

func (s *reservationService) Complete(ctx context.Context, uid, id string) (*model.Reservation, error) {
	return s.mutate(ctx, id, func(st repository.Store, r *model.Reservation) error {
		if uid != "" && uid != r.BuyerUID && uid != r.SellerUID {
			return ErrForbidden
		}
		if !r.Status.CanTransitionTo(model.StatusCompleted) {
			return ErrInvalidTransition
		}
		r.Status = model.StatusCompleted
		return nil
	})
}

// ExpireDue moves stale pending reservations to expired and releases their
// stock. Per-record failures are logged and retried on the next sweep tick;
// records a client intent already moved out of pending are skipped.
func (s *reservationService) ExpireDue(ctx context.Context, now time.Time, limit int) (int, error) {
	due, err := s.store.ListExpiredPending(ctx, now, limit)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, r := range due {
		if _, err := s.expireOne(ctx, r.ID, now); err != nil {
			if errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrConflict) {
				continue
			}
			log.Printf("[sweep] expire %s: %v", r.ID, err)
			continue
		}
		expired++
	}
	return expired, nil
}

func (s *reservationService) expireOne(ctx context.Context, id string, now time.Time) (*model.Reservation, error) {
	return s.mutate(ctx, id, func(st repository.Store, r *model.Reservation) error {
		if r.Status != model.StatusPending || r.ExpiresAt.After(now) {
			return ErrInvalidTransition
		}
		return s.expire(ctx, st, r)
	})
}

// mutate runs fn against the locked current record and persists the result,
// guarded on the status fn observed. A guard miss means another writer raced
// in between, which the caller sees as Conflict.
func (s *reservationService) mutate(ctx context.Context, id string, fn func(repository.Store, *model.Reservation) error) (*model.Reservation, error) {
	var out *model.Reservation
	err := s.store.InTx(ctx, func(st repository.Store) error {
		r, err := st.FindReservationForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		prev := r.Status
		if err := fn(st, r); err != nil {
			return err
		}
		ok, err := st.SaveReservationIf(ctx, r, prev)
		if err != nil {
			return err
		}
		if !ok {
			return ErrConflict
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// mutatePending is mutate with lazy expiry: once the caller is authorized,
// a still-pending record whose clock has run out is expired in place of the
// caller's intent, the expiry is committed, and the caller gets Expired back.
func (s *reservationService) mutatePending(ctx context.Context, id string, authorize func(*model.Reservation) error, apply func(repository.Store, *model.Reservation) error) (*model.Reservation, error) {
	lazyExpired := false
	r, err := s.mutate(ctx, id, func(st repository.Store, r *model.Reservation) error {
		if err := authorize(r); err != nil {
			return err
		}
		if r.Status == model.StatusPending && !s.now().Before(r.ExpiresAt) {
			lazyExpired = true
			return s.expire(ctx, st, r)
		}
		return apply(st, r)
	})
	if err != nil {
		return nil, err
	}
	if lazyExpired {
		return nil, ErrExpired
	}
	return r, nil
}

// confirm is the single approve primitive shared by the plain approve intent
// and negotiation acceptance; the effective price is whatever
// EffectivePrice() reports at this moment, frozen by the status change.
func (s *reservationService) confirm(r *model.Reservation) error {
	if !r.Status.CanTransitionTo(model.StatusConfirmed) {
		return ErrInvalidTransition
	}
	now := s.now()
	r.Status = model.StatusConfirmed
	r.ConfirmedAt = &now
	return nil
}

func (s *reservationService) expire(ctx context.Context, st repository.Store, r *model.Reservation) error {
	r.Status = model.StatusExpired
	return s.releaseStock(ctx, st, r)
}

// releaseStock credits the reserved quantity back exactly once; a record
// whose StockRestored flag is already set is a no-op.
func (s *reservationService) releaseStock(ctx context.Context, st repository.Store, r *model.Reservation) error {
	if r.StockRestored {
		return nil
	}
	if err := st.ReturnStock(ctx, r.PartID, r.Quantity); err != nil {
		return err
	}
	r.StockRestored = true
	return nil
}
