package domain

import "errors"

var (
	ErrInvalidArgument         = errors.New("invalid argument")
	ErrSourceNotFound          = errors.New("source not found")
	ErrSourceNotEligible       = errors.New("source not eligible")
	ErrSourceUnavailable       = errors.New("source unavailable")
	ErrDispatch                = errors.New("dispatch failed")
	ErrDestinationUnresolvable = errors.New("destination unresolvable")
	ErrNoEligibleMedia         = errors.New("no eligible media")
)
