package model

import "errors"

// Sentinel kinds shared across the engine. Callers match with errors.Is;
// the HTTP adapter maps them to response codes.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation error")
	ErrExpired      = errors.New("expired")
)
