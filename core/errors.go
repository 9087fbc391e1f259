package core

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrInvalidID   = errors.New("invalid id")
	ErrInvalidItem = errors.New("invalid item")
)
