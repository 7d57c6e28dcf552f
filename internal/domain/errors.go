package domain

import "errors"

var (
	ErrDeviceNotFound    = errors.New("device not found")
	ErrConcertNotFound   = errors.New("concert not found")
	ErrEventNotFound     = errors.New("event not found")
	ErrRecordingNotFound = errors.New("recording not found")
)
