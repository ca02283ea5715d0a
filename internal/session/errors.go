package session

import "errors"

var (
	ErrInvalidTransition = errors.New("session: invalid status transition")
	ErrEmptyCode         = errors.New("session: no code to submit")
	ErrMaxHints          = errors.New("session: maximum hints reached")
	ErrNoQuestion        = errors.New("session: no current question")
	ErrOutOfRange        = errors.New("session: question index out of range")
	ErrLoopStopped       = errors.New("session: loop stopped")
)
