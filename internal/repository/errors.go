// Package repository defines error types that are reused across the
// store implementations. These sentinel values allow higher layers such
// as the service package to distinguish between failure scenarios
// without knowing which database backs the store.
package repository

import "errors"

// ErrNotFound is returned when a user or crop lookup matches no row.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when a signup reuses a registered email.
var ErrEmailExists = errors.New("email already exists")

// ErrUsernameExists is returned when a signup reuses a taken username.
var ErrUsernameExists = errors.New("username already exists")

// ErrCropExists is returned when a crop is created with an identifier
// that is already in the ledger.
var ErrCropExists = errors.New("crop already exists")

// ErrDeliveryNumberTaken is returned when a distributor amendment uses a
// delivery number already recorded on a different crop.
var ErrDeliveryNumberTaken = errors.New("delivery number already assigned")
