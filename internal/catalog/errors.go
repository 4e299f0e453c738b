package catalog

import "errors"

// Common errors
var (
	// ErrPoolExhausted means no available item is left to claim. It is a
	// normal outcome, reported to the caller and never silently retried.
	ErrPoolExhausted = errors.New("no available items in the pool")

	ErrItemNotFound = errors.New("item not found")

	// ErrSwitchDeclined means the caller's decision function rejected
	// switching the active item; both items are left unchanged.
	ErrSwitchDeclined = errors.New("switch to another item declined")
)
