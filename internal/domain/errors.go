package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrInvalidPick     = errors.New("invalid pick")
	ErrInvalidProb     = errors.New("probability must be in (0, 1]")
	ErrNotRevealable   = errors.New("pick is not revealable")
	ErrPoolExhausted   = errors.New("pool exhausted")
	ErrPaymentRequired = errors.New("payment verification failed")
	ErrRateLimited     = errors.New("rate limited")
	ErrLockHeld        = errors.New("lock already held")
)
