package identity

import "errors"

var (
	ErrNotPrivileged = errors.New("you are not allowed to perform this action")
	ErrUnknownActor  = errors.New("actor is not a known employee")
)
