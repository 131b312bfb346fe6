package service

import "errors"

var (
	ErrEmptyCart         = errors.New("cart is empty, nothing to check out")
	ErrItemNotFound      = errors.New("item not found in cart")
	ErrInvalidQuantity   = errors.New("quantity must be greater than zero")
	ErrMissingAddress    = errors.New("shipping address is required")
	ErrInvalidStatus     = errors.New("unknown order status")
	ErrInvalidTransition = errors.New("illegal order status transition")

	// ErrStockRestoreFailed means a compensating increment did not go through:
	// stock counts may have drifted and need operator attention. Deliberately
	// distinct from the ordinary validation errors above.
	ErrStockRestoreFailed = errors.New("stock restoration failed")
)
