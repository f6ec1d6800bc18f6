package domain

import "errors"

var (
	// ErrNotFound is returned by stores when a key has no value.
	ErrNotFound = errors.New("not found")
	// ErrNoSession is returned when an operation needs a session and there is none.
	ErrNoSession = errors.New("no active session")
)
