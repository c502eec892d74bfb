package models

import "errors"

// Domain errors surfaced by the order and payment core. Handlers translate
// these into HTTP statuses; anything else is an internal error.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrMenuUnavailable   = errors.New("menu is not available at this time")
	ErrCapacityExceeded  = errors.New("not enough available orders for this menu")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrForbidden         = errors.New("not allowed to perform this action")
	ErrAlreadyAssigned   = errors.New("delivery already assigned for this order")
	ErrUpstreamFailure   = errors.New("upstream provider call failed")
)
