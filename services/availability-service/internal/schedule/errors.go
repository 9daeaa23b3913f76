package schedule

import "errors"

var (
	ErrInvalidRule   = errors.New("invalid rule")
	ErrInvalidWindow = errors.New("invalid window")
	ErrInvalidNotice = errors.New("invalid notice")
)
