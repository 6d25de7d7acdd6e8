package mqtt

import "errors"

var (
	ErrConnectTimeout = errors.New("mqtt: connection timeout")
	ErrPublishTimeout = errors.New("mqtt: publish timeout")
	ErrNotConnected   = errors.New("mqtt: not connected")
	ErrClosed         = errors.New("mqtt: bridge closed")
	ErrBadDecoded     = errors.New("mqtt: malformed decoded event")
)
