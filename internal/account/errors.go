package account

import "errors"

var (
	// ErrNotFound is returned by GetAccount when no account has logged in yet.
	ErrNotFound = errors.New("account not found")

	// ErrInvalidCredentials is returned by Login for an unknown email or a
	// wrong password. The two cases are not distinguished.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrAccountExists is returned by Create for an email already registered.
	ErrAccountExists = errors.New("account already exists")

	// ErrInvalidInput is returned by Create for an empty email or password.
	ErrInvalidInput = errors.New("invalid account input")
)
