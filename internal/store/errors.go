package store

import "errors"

// ErrInvalidAction is returned by Dispatch for a nil action or an action
// without a valid tag. It is a programmer error.
var ErrInvalidAction = errors.New("invalid action")

// ErrStoreClosed is returned by Pipeline.Start after Shutdown or Dispose.
var ErrStoreClosed = errors.New("store closed")
