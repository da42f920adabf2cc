package security

import "errors"

var (
	ErrHashing      = errors.New("password hashing failed")
	ErrSigning      = errors.New("token signing failed")
	ErrTokenInvalid = errors.New("token invalid")
)
