package sim

import "errors"

var (
	ErrInvalidSelection = errors.New("invalid hole selection")
	ErrInvalidSession   = errors.New("invalid session config")
	ErrUnknownPlayer    = errors.New("player not on the roster")
	ErrQueueRejected    = errors.New("queue rejected session job")
)
