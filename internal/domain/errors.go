package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidMetric = errors.New("invalid metric value")
	ErrWSDisconnect  = errors.New("websocket disconnected")
	ErrUnrecognized  = errors.New("unrecognized feed message")
	ErrFeedClosed    = errors.New("feed connection closed")
)
