package mitiq

import "errors"

var (
	// ErrConfiguration reports a backend/observable pairing that cannot be
	// evaluated, or backend results that do not match the declared type.
	ErrConfiguration = errors.New("configuration error")

	// ErrShape reports results or matrices whose dimensions do not line up
	// with the observable or the circuits that produced them.
	ErrShape = errors.New("shape error")

	// ErrInvalidPauli reports a malformed Pauli string.
	ErrInvalidPauli = errors.New("invalid pauli string")

	// ErrNotCommuting reports a Pauli string that cannot join a group.
	ErrNotCommuting = errors.New("pauli string does not commute with group")
)
