package service

import "errors"

// Engine failures are terminal and caller-visible; none are retried here.
var (
	ErrNotFound                = errors.New("not found")
	ErrForbidden               = errors.New("forbidden")
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrInvalidTransition       = errors.New("invalid transition")
	ErrInvalidNegotiationPrice = errors.New("invalid negotiation price")
	ErrConflict                = errors.New("concurrent update conflict")
	ErrExpired                 = errors.New("reservation expired")
	ErrDuplicateRequest        = errors.New("duplicate request")
)
