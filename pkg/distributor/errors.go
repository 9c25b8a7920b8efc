package distributor

import "errors"

var (
	ErrNotEligible           = errors.New("not eligible")
	ErrAlreadyClaimed        = errors.New("already claimed")
	ErrActionPaused          = errors.New("action paused")
	ErrPastDeadline          = errors.New("past deadline")
	ErrInvalidRepresentative = errors.New("invalid representative")
	ErrUnauthorized          = errors.New("caller is not the admin")
	ErrNotContract           = errors.New("account is not a contract")
	ErrInsufficientBalance   = errors.New("transfer amount exceeds balance")
)
