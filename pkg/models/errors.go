package models

import "errors"

var (
	// ErrStoreNotFound is returned by the registry for an unknown store key.
	ErrStoreNotFound = errors.New("store not found")

	// ErrProductNotFound is returned when a product lookup misses.
	ErrProductNotFound = errors.New("product not found")
)
