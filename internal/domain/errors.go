package domain

import "errors"

var (
	ErrAlreadySettled = errors.New("market already settled")
	ErrSpecNotFound   = errors.New("oracle spec not found")
	ErrNotFound       = errors.New("not found")
	ErrNonceConflict  = errors.New("nonce conflict")
	ErrLockHeld       = errors.New("lock already held")
	ErrNotConfigured  = errors.New("not configured")
)
