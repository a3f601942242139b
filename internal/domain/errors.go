package domain

import "errors"

var (
	ErrJobNotFound            = errors.New("job not found")
	ErrJobNotFinished         = errors.New("job not finished")
	ErrTemporarilyUnavailable = errors.New("temporarily unavailable")
)
